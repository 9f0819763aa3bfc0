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

// Package pki is the Public Façade (spec §4.7): import/export entrypoints
// for files, memory, and PKCS#11 URIs; generation; private-to-public
// projection; certificate attachment; hash-compatibility checks; and
// signature verification against a session. It is the only package most
// callers need to import directly — everything below it (algo, wire, key,
// pem, opensshv1, sig) is implementation detail.
package pki

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/deep-rent/sshpki/key"
	"github.com/deep-rent/sshpki/opensshv1"
	"github.com/deep-rent/sshpki/pem"
	"github.com/deep-rent/sshpki/sig"
)

// Exit-code constants mirroring the C API's SSH_OK/SSH_ERROR/SSH_EOF (spec
// §6 "Exit codes"). Go callers normally just check the returned error;
// these exist for bridging code that still speaks the numeric convention.
const (
	OK    = 0
	ERROR = -1
	EOF   = -2
)

// Code maps an error returned by this package to the SSH_OK/SSH_ERROR/
// SSH_EOF convention.
func Code(err error) int {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrNotFound):
		return EOF
	default:
		return ERROR
	}
}

// Size caps for imported key material (spec §6 "Environment",
// MAX_PRIVKEY_SIZE / MAX_PUBKEY_SIZE). This build always includes
// post-quantum support (see DESIGN.md, "PQ/hybrid Open Question"), so the
// larger cap applies unconditionally rather than behind a compile-time flag.
const (
	MaxPrivKeySize = 8 << 20 // 8 MiB
	MaxPubKeySize  = 1 << 20 // 1 MiB
)

// Sentinel errors distinguishing the error taxonomy classes from spec §7.
var (
	ErrInput    = errors.New("pki: input error")
	ErrNotFound = errors.New("pki: not found")
	ErrParse    = errors.New("pki: parse error")
	ErrDecrypt  = errors.New("pki: decrypt error")
	ErrCompat   = errors.New("pki: compatibility error")
	ErrNoPKCS11 = errors.New("pki: no PKCS#11 backend configured")
)

// IsDecryptError, IsCompatError, and IsParseError classify an error the way
// callers classify jwt.ErrInvalidSignature/ErrKeyNotFound in the teacher's
// jose/jwt package: by errors.Is against a small set of package sentinels.
func IsDecryptError(err error) bool { return errors.Is(err, ErrDecrypt) }
func IsCompatError(err error) bool  { return errors.Is(err, ErrCompat) || errors.Is(err, sig.ErrCompat) }
func IsParseError(err error) bool   { return errors.Is(err, ErrParse) }

// AuthFunc is invoked at most once, only when an encrypted private-key
// container is imported without an up-front passphrase.
type AuthFunc func() (string, error)

// PKCS11Backend is the external collaborator this façade routes "pkcs11:"
// URIs to (spec §1 "Out of scope"). This module ships no implementation:
// callers that need hardware-token keys must supply their own and pass it
// to the *WithPKCS11 variants below.
type PKCS11Backend interface {
	// ImportPublicKey resolves uri to a public Key. Private material is
	// never exported from a token (spec §9 "PKCS#11").
	ImportPublicKey(uri string) (*key.Key, error)
}

const pkcs11Prefix = "pkcs11:"

func orDefault(log *slog.Logger) *slog.Logger {
	if log != nil {
		return log
	}
	return slog.Default()
}

// ImportPrivateKeyBase64 imports a private key from in-memory PEM text,
// sniffing whether it is a legacy PEM or an openssh-key-v1 container (spec
// §4.7 "ssh_pki_import_privkey_base64").
func ImportPrivateKeyBase64(text, passphrase string, authFn AuthFunc, log *slog.Logger) (*key.Key, error) {
	log = orDefault(log)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty key text", ErrInput)
	}
	if strings.Contains(text, "OPENSSH PRIVATE KEY") {
		k, err := opensshv1.Parse(text, passphrase, opensshv1.AuthFunc(authFn), log)
		return k, wrapErr(err)
	}
	k, err := pem.FromBase64(text, passphrase, pem.AuthFunc(authFn), log)
	return k, wrapErr(err)
}

// ImportPrivateKeyFile imports a private key from path, rejecting files
// larger than MaxPrivKeySize. A "pkcs11:" path always fails with
// ErrNoPKCS11: private material is never exportable from a token (spec §9
// "PKCS#11"), so no PKCS11Backend parameter is offered here.
func ImportPrivateKeyFile(path, passphrase string, authFn AuthFunc, log *slog.Logger) (*key.Key, error) {
	log = orDefault(log)
	if strings.HasPrefix(path, pkcs11Prefix) {
		return nil, fmt.Errorf("%w: private material cannot be exported from a token", ErrNoPKCS11)
	}
	data, err := readCapped(path, MaxPrivKeySize)
	if err != nil {
		return nil, err
	}
	return ImportPrivateKeyBase64(string(data), passphrase, authFn, log)
}

func readCapped(path string, cap int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrInput, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrInput, path, err)
	}
	if info.Size() > cap {
		return nil, fmt.Errorf("%w: %s exceeds the %d byte size cap", ErrInput, path, cap)
	}
	data := make([]byte, info.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInput, path, err)
	}
	return data, nil
}

// ExportPrivateKeyBase64 serializes k in the container its type requires:
// legacy PEM for DSA/RSA/ECDSA, openssh-key-v1 for every other tag (spec
// §4.4 "Export mirrors import").
func ExportPrivateKeyBase64(k *key.Key, passphrase, comment, cipherName string, rounds int) (string, error) {
	if k == nil {
		return "", key.ErrNilKey
	}
	// Hybrid, certificate and security-key variants may also carry DSA/RSA/
	// ECDSA material, but legacy PEM cannot represent them.
	plain := k.OQS == nil && len(k.Cert) == 0 && k.SKApplication == ""
	if (k.DSA != nil || k.RSA != nil || k.ECDSA != nil) && plain && passphrase == "" {
		return pem.ToBase64(k)
	}
	// Legacy PEM encryption is deliberately not re-implemented for export
	// (see DESIGN.md "PEM legacy encryption export"): every encrypted
	// export goes through the openssh-key-v1 container, which every
	// OpenSSH-compatible consumer already accepts.
	return opensshv1.Serialize(k, passphrase, comment, cipherName, rounds)
}

// ExportPrivateKeyFile writes ExportPrivateKeyBase64's output to path,
// unlinking the partial file on any error after the write begins (spec §5
// "Resource discipline").
func ExportPrivateKeyFile(k *key.Key, path, passphrase, comment, cipherName string, rounds int, mode os.FileMode) error {
	text, err := ExportPrivateKeyBase64(k, passphrase, comment, cipherName, rounds)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), mode); err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: write %s: %v", ErrInput, path, err)
	}
	return nil
}

// ExportPrivateKeyToPublicKey returns a demoted, public-only duplicate of
// priv (spec §4.7 "ssh_pki_export_privkey_to_pubkey").
func ExportPrivateKeyToPublicKey(priv *key.Key) (*key.Key, error) {
	return priv.Duplicate(true)
}

// CopyCertToPrivateKey attaches certKey's serialized certificate blob to
// privKey, refusing if either is nil or privKey already carries a
// certificate (spec §4.7 "ssh_pki_copy_cert_to_privkey").
func CopyCertToPrivateKey(certKey, privKey *key.Key) error {
	if certKey == nil || privKey == nil {
		return key.ErrNilKey
	}
	if len(certKey.Cert) == 0 {
		return fmt.Errorf("%w: certKey carries no certificate blob", ErrInput)
	}
	if len(privKey.Cert) != 0 {
		return fmt.Errorf("%w: private key already carries a certificate", ErrInput)
	}
	privKey.Cert = append([]byte(nil), certKey.Cert...)
	privKey.CertInner = certKey.CertInner
	privKey.Tag = certKey.Tag
	privKey.TypeC = certKey.TypeC
	return nil
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, pem.ErrParse), errors.Is(err, opensshv1.ErrParse):
		return fmt.Errorf("%w: %v", ErrParse, err)
	case errors.Is(err, pem.ErrDecrypt), errors.Is(err, opensshv1.ErrPassphrase):
		return fmt.Errorf("%w: %v", ErrDecrypt, err)
	case errors.Is(err, pem.ErrInput), errors.Is(err, opensshv1.ErrInput):
		return fmt.Errorf("%w: %v", ErrInput, err)
	default:
		return err
	}
}

// encodeB64/decodeB64 are the standard-library base64 codec used for
// public-key and container bodies throughout this package.
func encodeB64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }
func decodeB64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}
