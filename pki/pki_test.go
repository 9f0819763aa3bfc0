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
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"path/filepath"
	"testing"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/key"
	"github.com/deep-rent/sshpki/pki"
	"github.com/deep-rent/sshpki/wire"
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

func buildEd25519CertBlob(t *testing.T, pub []byte) []byte {
	t.Helper()
	w := wire.NewWriter()
	defer w.Release()
	w.Str("ssh-ed25519-cert-v01@openssh.com")
	w.String([]byte("nonce-0123456789abcdef"))
	w.String(pub)
	// The remainder (serial, principals, validity, options, extensions, CA
	// key, CA signature) is opaque to this module; arbitrary bytes suffice.
	w.Str("serial-and-extensions-placeholder")
	return append([]byte(nil), w.Bytes()...)
}

func TestImportExportPrivateKeyBase64RoundTrip(t *testing.T) {
	k := newEd25519Key(t)
	text, err := pki.ExportPrivateKeyBase64(k, "", "", "", 0)
	require.NoError(t, err)

	got, err := pki.ImportPrivateKeyBase64(text, "", nil, nil)
	require.NoError(t, err)
	assert.True(t, key.Cmp(k, got, key.Public|key.Private))
}

func TestImportExportPrivateKeyFileEncrypted(t *testing.T) {
	k := newEd25519Key(t)
	path := filepath.Join(t.TempDir(), "id_ed25519")

	require.NoError(t, pki.ExportPrivateKeyFile(k, path, "hunter2", "test", "", 16, 0o600))

	got, err := pki.ImportPrivateKeyFile(path, "hunter2", nil, nil)
	require.NoError(t, err)
	assert.True(t, key.Cmp(k, got, key.Public|key.Private))
}

func TestImportPrivateKeyFileRejectsPKCS11(t *testing.T) {
	_, err := pki.ImportPrivateKeyFile("pkcs11:token=foo", "", nil, nil)
	assert.ErrorIs(t, err, pki.ErrNoPKCS11)
}

func TestImportPrivateKeyFileNotFound(t *testing.T) {
	_, err := pki.ImportPrivateKeyFile(filepath.Join(t.TempDir(), "missing"), "", nil, nil)
	assert.ErrorIs(t, err, pki.ErrNotFound)
	assert.Equal(t, pki.EOF, pki.Code(err))
}

func TestCodeMapping(t *testing.T) {
	assert.Equal(t, pki.OK, pki.Code(nil))
	assert.Equal(t, pki.ERROR, pki.Code(pki.ErrInput))
	assert.Equal(t, pki.EOF, pki.Code(pki.ErrNotFound))
}

func TestExportPrivateKeyToPublicKey(t *testing.T) {
	k := newEd25519Key(t)
	pub, err := pki.ExportPrivateKeyToPublicKey(k)
	require.NoError(t, err)
	assert.True(t, pub.IsPublic())
	assert.False(t, pub.IsPrivate())
}

func TestCopyCertToPrivateKey(t *testing.T) {
	priv := newEd25519Key(t)
	certKey, err := pki.ImportCertificateBlob(buildEd25519CertBlob(t, priv.Ed25519Pub))
	require.NoError(t, err)

	require.NoError(t, pki.CopyCertToPrivateKey(certKey, priv))
	assert.NotEmpty(t, priv.Cert)
	assert.Equal(t, certKey.Tag, priv.Tag)
}

func TestCopyCertToPrivateKeyRejectsDoubleAttach(t *testing.T) {
	priv := newEd25519Key(t)
	certKey, err := pki.ImportCertificateBlob(buildEd25519CertBlob(t, priv.Ed25519Pub))
	require.NoError(t, err)

	require.NoError(t, pki.CopyCertToPrivateKey(certKey, priv))
	err = pki.CopyCertToPrivateKey(certKey, priv)
	assert.ErrorIs(t, err, pki.ErrInput)
}

func TestCopyCertToPrivateKeyRejectsNilKeys(t *testing.T) {
	priv := newEd25519Key(t)
	assert.True(t, errors.Is(pki.CopyCertToPrivateKey(nil, priv), key.ErrNilKey))
	assert.True(t, errors.Is(pki.CopyCertToPrivateKey(priv, nil), key.ErrNilKey))
}

func TestIsDecryptErrorClassifiesWrongPassphrase(t *testing.T) {
	k := newEd25519Key(t)
	text, err := pki.ExportPrivateKeyBase64(k, "hunter2", "", "", 16)
	require.NoError(t, err)

	_, err = pki.ImportPrivateKeyBase64(text, "wrong", nil, nil)
	assert.True(t, pki.IsDecryptError(err))
}
