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

package sig_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/key"
	"github.com/deep-rent/sshpki/sig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEd25519Key(t *testing.T) *key.Key {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &key.Key{
		Tag:         algo.ED25519,
		TypeC:       "ssh-ed25519",
		Flags:       key.Public | key.Private,
		Ed25519Pub:  append([]byte(nil), pub...),
		Ed25519Priv: append([]byte(nil), priv.Seed()...),
	}
}

func newRSAKey(t *testing.T, bits int) *key.Key {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	require.NoError(t, err)
	priv.Precompute()
	return &key.Key{Tag: algo.RSA, TypeC: "ssh-rsa", Flags: key.Public | key.Private, RSA: priv}
}

// newHybridKey builds an RSA-3072 + Dilithium2 hybrid key (spec §8 S6) by
// pairing a classical RSA key with post-quantum material from the registry's
// own generator, the same composition pki.generateHybrid performs.
func newHybridKey(t *testing.T) *key.Key {
	t.Helper()
	k := newRSAKey(t, 3072)
	oqs, err := sig.GenerateOQSKey(algo.HybridRSA3072Dilithium2)
	require.NoError(t, err)
	k.Tag = algo.HybridRSA3072Dilithium2
	k.TypeC = "ssh-rsa3072-dilithium2@openssh.com"
	k.OQS = oqs
	return k
}

func TestEd25519SignAndVerify(t *testing.T) {
	priv := newEd25519Key(t)
	pub, err := priv.Duplicate(true)
	require.NoError(t, err)

	msg := []byte("authenticate me")
	s, err := sig.Do(priv, msg, algo.Auto, false)
	require.NoError(t, err)
	defer s.Clean()

	err = sig.Verify(nil, s, pub, msg, false)
	assert.NoError(t, err)
}

func TestEd25519VerifyRejectsTamperedMessage(t *testing.T) {
	priv := newEd25519Key(t)
	pub, err := priv.Duplicate(true)
	require.NoError(t, err)

	msg := []byte("authenticate me")
	s, err := sig.Do(priv, msg, algo.Auto, false)
	require.NoError(t, err)
	defer s.Clean()

	err = sig.Verify(nil, s, pub, []byte("authenticate someone else"), false)
	assert.ErrorIs(t, err, sig.ErrVerify)
}

func TestRSASHA256SignAndVerify(t *testing.T) {
	priv := newRSAKey(t, 2048)
	pub, err := priv.Duplicate(true)
	require.NoError(t, err)

	msg := []byte("sign this file")
	s, err := sig.Do(priv, msg, algo.SHA256, false)
	require.NoError(t, err)
	defer s.Clean()

	assert.Equal(t, "rsa-sha2-256", s.TypeC)
	assert.NoError(t, sig.Verify(nil, s, pub, msg, false))
}

func TestRSASHA1RejectedInFIPSMode(t *testing.T) {
	priv := newRSAKey(t, 2048)
	_, err := sig.Do(priv, []byte("msg"), algo.SHA1, true)
	assert.ErrorIs(t, err, sig.ErrCompat)
}

func TestDoRejectsPublicOnlyKey(t *testing.T) {
	priv := newEd25519Key(t)
	pub, err := priv.Duplicate(true)
	require.NoError(t, err)

	_, err = sig.Do(pub, []byte("msg"), algo.Auto, false)
	assert.ErrorIs(t, err, sig.ErrInput)
}

func TestSecurityKeySignAndVerify(t *testing.T) {
	priv := newEd25519Key(t)
	pub, err := priv.Duplicate(true)
	require.NoError(t, err)
	pub.SKApplication = "ssh:"
	priv.SKApplication = "ssh:"

	msg := []byte("auth data")
	s, err := sig.SignSecurityKey(priv, "ssh:", 0x01, 7, msg, algo.Auto, false)
	require.NoError(t, err)
	defer s.Clean()

	assert.NoError(t, sig.Verify(nil, s, pub, msg, false))
}

func TestSecurityKeyVerifyRejectsCounterFlip(t *testing.T) {
	priv := newEd25519Key(t)
	pub, err := priv.Duplicate(true)
	require.NoError(t, err)
	pub.SKApplication = "ssh:"
	priv.SKApplication = "ssh:"

	msg := []byte("auth data")
	s, err := sig.SignSecurityKey(priv, "ssh:", 0x01, 7, msg, algo.Auto, false)
	require.NoError(t, err)
	defer s.Clean()

	s.SKCounter = 8 // attacker replays with a different counter than what was signed.
	assert.ErrorIs(t, sig.Verify(nil, s, pub, msg, false), sig.ErrVerify)
}

func TestCleanZeroizesSignatureMaterial(t *testing.T) {
	priv := newEd25519Key(t)
	s, err := sig.Do(priv, []byte("msg"), algo.Auto, false)
	require.NoError(t, err)
	raw := s.Raw

	s.Clean()

	allZero := true
	for _, b := range raw {
		if b != 0 {
			allZero = false
			break
		}
	}
	assert.True(t, allZero, "signature bytes were not zeroized")
}

func TestVerifyNilArguments(t *testing.T) {
	assert.ErrorIs(t, sig.Verify(nil, nil, nil, nil, false), key.ErrNilKey)
}

// TestHybridSignAndVerify covers spec §8 S6: signing with an RSA-3072 +
// Dilithium2 hybrid key produces a Signature whose classical half uses the
// registry's SHA256 digest (not Auto), and verification succeeds against
// both halves.
func TestHybridSignAndVerify(t *testing.T) {
	priv := newHybridKey(t)
	pub, err := priv.Duplicate(true)
	require.NoError(t, err)

	msg := []byte("hybrid signed payload")
	s, err := sig.Do(priv, msg, algo.SHA256, false)
	require.NoError(t, err)
	defer s.Clean()

	assert.Equal(t, algo.SHA256, s.Hash)
	assert.NotEmpty(t, s.Raw)
	assert.NotEmpty(t, s.PQ)
	assert.NoError(t, sig.Verify(nil, s, pub, msg, false))
}

// TestHybridDoRejectsAutoDigest: unlike pure-PQ and Ed25519, a hybrid's
// classical half is not auto-hashing (spec §4.1's digest table assigns it a
// concrete SHA256/384/512), so Auto is not an acceptable digest for it.
func TestHybridDoRejectsAutoDigest(t *testing.T) {
	priv := newHybridKey(t)
	_, err := sig.Do(priv, []byte("msg"), algo.Auto, false)
	assert.ErrorIs(t, err, sig.ErrCompat)
}

// TestHybridVerifyFailsWhenPQSignatureZeroed covers the S6 negative case:
// zeroing the post-quantum half of an otherwise-valid hybrid signature must
// fail verification even though the classical half still checks out.
func TestHybridVerifyFailsWhenPQSignatureZeroed(t *testing.T) {
	priv := newHybridKey(t)
	pub, err := priv.Duplicate(true)
	require.NoError(t, err)

	msg := []byte("hybrid signed payload")
	s, err := sig.Do(priv, msg, algo.SHA256, false)
	require.NoError(t, err)
	defer s.Clean()

	for i := range s.PQ {
		s.PQ[i] = 0
	}
	assert.ErrorIs(t, sig.Verify(nil, s, pub, msg, false), sig.ErrVerify)
}
