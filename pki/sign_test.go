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

	"github.com/deep-rent/sshpki/pki"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyBlobEd25519(t *testing.T) {
	priv := newEd25519Key(t)
	pub, err := pki.ExportPrivateKeyToPublicKey(priv)
	require.NoError(t, err)

	msg := []byte("detached signature payload")
	blob, err := pki.Sign(nil, priv, msg, false)
	require.NoError(t, err)

	assert.NoError(t, pki.VerifyBlob(nil, pub, blob, msg, false))
}

func TestVerifyBlobRejectsTamperedPayload(t *testing.T) {
	priv := newEd25519Key(t)
	pub, err := pki.ExportPrivateKeyToPublicKey(priv)
	require.NoError(t, err)

	msg := []byte("detached signature payload")
	blob, err := pki.Sign(nil, priv, msg, false)
	require.NoError(t, err)

	err = pki.VerifyBlob(nil, pub, blob, []byte("tampered payload"), false)
	assert.Error(t, err)
}

func TestSignRejectsSecurityKeyMaterial(t *testing.T) {
	priv := newEd25519Key(t)
	priv.SKApplication = "ssh:"
	_, err := pki.Sign(nil, priv, []byte("msg"), false)
	assert.ErrorIs(t, err, pki.ErrInput)
}

func TestSignRejectsNilKey(t *testing.T) {
	_, err := pki.Sign(nil, nil, []byte("msg"), false)
	assert.Error(t, err)
}
