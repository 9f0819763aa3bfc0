// Copyright (c) 2025-present deep.rent GmbH (https://deep.rent)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pki_test

import (
	"testing"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/pki"
	"github.com/deep-rent/sshpki/session"
	"github.com/stretchr/testify/assert"
)

type fakeSession struct {
	sessionID    []byte
	exchangeHash []byte
	extensions   session.Extensions
	fips         bool
	accepted     []string
	peerVersion  int
	peerVerKnown bool
}

func (f *fakeSession) SessionID() []byte             { return f.sessionID }
func (f *fakeSession) ExchangeHash() []byte           { return f.exchangeHash }
func (f *fakeSession) Extensions() session.Extensions { return f.extensions }
func (f *fakeSession) PeerOpenSSHVersion() (int, bool) {
	return f.peerVersion, f.peerVerKnown
}
func (f *fakeSession) FIPSMode() bool                 { return f.fips }
func (f *fakeSession) AcceptedHostKeyTypes() []string { return f.accepted }

func TestAlgorithmAllowedNilSession(t *testing.T) {
	assert.True(t, pki.AlgorithmAllowed(nil, "ssh-ed25519"))
	assert.False(t, pki.AlgorithmAllowed(nil, "not-a-real-algorithm"))
}

func TestAlgorithmAllowedChecksAcceptedList(t *testing.T) {
	sess := &fakeSession{accepted: []string{"ssh-ed25519"}}
	assert.True(t, pki.AlgorithmAllowed(sess, "ssh-ed25519"))
	assert.False(t, pki.AlgorithmAllowed(sess, "ssh-rsa"))
}

func TestTypeToHashRSANegotiation(t *testing.T) {
	d, err := pki.TypeToHash(nil, algo.RSA)
	assert.NoError(t, err)
	assert.Equal(t, algo.SHA1, d)

	sess256 := &fakeSession{extensions: session.ExtRSASHA2256}
	d, err = pki.TypeToHash(sess256, algo.RSA)
	assert.NoError(t, err)
	assert.Equal(t, algo.SHA256, d)

	sess512 := &fakeSession{extensions: session.ExtRSASHA2512}
	d, err = pki.TypeToHash(sess512, algo.RSA)
	assert.NoError(t, err)
	assert.Equal(t, algo.SHA512, d)
}

func TestTypeToHashFIPSRejectsSHA1(t *testing.T) {
	sess := &fakeSession{fips: true}
	_, err := pki.TypeToHash(sess, algo.RSA)
	assert.ErrorIs(t, err, pki.ErrCompat)
}

func TestTypeToHashNonRSAIgnoresSession(t *testing.T) {
	d, err := pki.TypeToHash(nil, algo.ED25519)
	assert.NoError(t, err)
	assert.Equal(t, algo.Auto, d)
}

func TestTypeToHashOldOpenSSHForcesSHA1ForRSACert(t *testing.T) {
	old := &fakeSession{
		extensions:   session.ExtRSASHA2512,
		peerVersion:  70100,
		peerVerKnown: true,
	}
	d, err := pki.TypeToHash(old, algo.RSACert)
	assert.NoError(t, err)
	assert.Equal(t, algo.SHA1, d)

	modern := &fakeSession{
		extensions:   session.ExtRSASHA2512,
		peerVersion:  70800,
		peerVerKnown: true,
	}
	d, err = pki.TypeToHash(modern, algo.RSACert)
	assert.NoError(t, err)
	assert.Equal(t, algo.SHA512, d)

	unknown := &fakeSession{extensions: session.ExtRSASHA2256}
	d, err = pki.TypeToHash(unknown, algo.RSACert)
	assert.NoError(t, err)
	assert.Equal(t, algo.SHA256, d)
}
