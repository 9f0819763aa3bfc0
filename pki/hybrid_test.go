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
	"github.com/deep-rent/sshpki/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHybridSignAndVerifyRoundTrip exercises spec §8 S6: an RSA-3072 +
// Dilithium2 hybrid key signs a message, and the resulting blob verifies
// against the derived public key.
func TestHybridSignAndVerifyRoundTrip(t *testing.T) {
	priv, err := pki.Generate(algo.HybridRSA3072Dilithium2, 0)
	require.NoError(t, err)
	pub, err := pki.ExportPrivateKeyToPublicKey(priv)
	require.NoError(t, err)

	msg := []byte("hybrid signed payload")
	blob, err := pki.Sign(nil, priv, msg, false)
	require.NoError(t, err)

	assert.NoError(t, pki.VerifyBlob(nil, pub, blob, msg, false))
}

// TestHybridSignatureBlobIsLengthPrefixedPair checks that the produced blob
// decodes as u32 len_c | classical_blob | u32 len_pq | pq_sig (spec §4.2,
// §8 S6), with the classical half carrying its own rsa-sha2-256 signature
// blob.
func TestHybridSignatureBlobIsLengthPrefixedPair(t *testing.T) {
	priv, err := pki.Generate(algo.HybridRSA3072Dilithium2, 0)
	require.NoError(t, err)

	msg := []byte("hybrid signed payload")
	blob, err := pki.Sign(nil, priv, msg, false)
	require.NoError(t, err)

	classicalBlob, pq, err := wire.ParseHybridSignatureBlob(blob)
	require.NoError(t, err)
	assert.NotEmpty(t, pq)

	name, raw, err := wire.ParseSignatureBlob(classicalBlob)
	require.NoError(t, err)
	assert.Equal(t, "rsa-sha2-256", name)
	assert.NotEmpty(t, raw)
}

// TestHybridVerifyFailsWhenPQPortionZeroed covers the S6 negative case:
// zeroing the post-quantum half must fail verification even though the
// classical half is untouched and still internally consistent.
func TestHybridVerifyFailsWhenPQPortionZeroed(t *testing.T) {
	priv, err := pki.Generate(algo.HybridRSA3072Dilithium2, 0)
	require.NoError(t, err)
	pub, err := pki.ExportPrivateKeyToPublicKey(priv)
	require.NoError(t, err)

	msg := []byte("hybrid signed payload")
	blob, err := pki.Sign(nil, priv, msg, false)
	require.NoError(t, err)

	classicalBlob, pq, err := wire.ParseHybridSignatureBlob(blob)
	require.NoError(t, err)
	for i := range pq {
		pq[i] = 0
	}
	tampered := wire.MarshalHybridSignatureBlob(classicalBlob, pq)

	assert.Error(t, pki.VerifyBlob(nil, pub, tampered, msg, false))
}
