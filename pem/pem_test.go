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

package pem_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/key"
	"github.com/deep-rent/sshpki/pem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRSAKey(t *testing.T) *key.Key {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	priv.Precompute()
	return &key.Key{Tag: algo.RSA, TypeC: "ssh-rsa", Flags: key.Public | key.Private, RSA: priv}
}

func newECDSAKey(t *testing.T) *key.Key {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return &key.Key{Tag: algo.ECDSA256, TypeC: "ecdsa-sha2-nistp256", Flags: key.Public | key.Private, ECDSA: priv}
}

func TestRSARoundTrip(t *testing.T) {
	k := newRSAKey(t)
	text, err := pem.ToBase64(k)
	require.NoError(t, err)
	assert.True(t, pem.Sniff(text))

	got, err := pem.FromBase64(text, "", nil, nil)
	require.NoError(t, err)
	assert.True(t, key.Cmp(k, got, key.Public|key.Private))
}

func TestECDSARoundTrip(t *testing.T) {
	k := newECDSAKey(t)
	text, err := pem.ToBase64(k)
	require.NoError(t, err)

	got, err := pem.FromBase64(text, "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, algo.ECDSA256, got.Tag)
	assert.True(t, key.Cmp(k, got, key.Public|key.Private))
}

func TestSniffRejectsGarbage(t *testing.T) {
	assert.False(t, pem.Sniff("not a pem file"))
}

func TestFromBase64EmptyInput(t *testing.T) {
	_, err := pem.FromBase64("", "", nil, nil)
	assert.ErrorIs(t, err, pem.ErrParse)
}

func TestToBase64RejectsPublicOnlyKey(t *testing.T) {
	k := newRSAKey(t)
	pub, err := k.Duplicate(true)
	require.NoError(t, err)

	_, err = pem.ToBase64(pub)
	assert.ErrorIs(t, err, pem.ErrInput)
}

func TestToBase64NilKey(t *testing.T) {
	_, err := pem.ToBase64(nil)
	assert.ErrorIs(t, err, key.ErrNilKey)
}

func TestToBase64RejectsEd25519(t *testing.T) {
	k := &key.Key{
		Tag:         algo.ED25519,
		TypeC:       "ssh-ed25519",
		Flags:       key.Public | key.Private,
		Ed25519Pub:  make([]byte, 32),
		Ed25519Priv: make([]byte, 32),
	}
	_, err := pem.ToBase64(k)
	assert.ErrorIs(t, err, pem.ErrInput)
}
