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

// Package opensshv1 parses and emits the "openssh-key-v1" binary private-key
// container (spec §4.5, §6 "OpenSSH v1"): magic, cipher name, KDF name, KDF
// options, per-key public blob, and an encrypted private section holding
// check bytes, the per-key private blob, a comment, and alignment padding.
package opensshv1

import (
	"crypto/rand"
	gopem "encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/key"
	"github.com/deep-rent/sshpki/wire"
)

// Sentinel errors distinguishing the error taxonomy classes from spec §7.
var (
	ErrInput      = errors.New("opensshv1: input error")
	ErrParse      = errors.New("opensshv1: parse error")
	ErrPassphrase = errors.New("opensshv1: bad passphrase")
)

const (
	blockType = "OPENSSH PRIVATE KEY"
	magic     = "openssh-key-v1\x00"

	// DefaultCipher and DefaultKDFRounds match ssh-keygen's own defaults for
	// a passphrase-protected container.
	DefaultCipher    = "aes256-ctr"
	DefaultKDFRounds = 16
)

// AuthFunc is invoked at most once, only when the container is encrypted and
// no passphrase was supplied up front.
type AuthFunc func() (string, error)

// Parse decodes a PEM-armored openssh-key-v1 container. If the container is
// encrypted and passphrase is empty, authFn is invoked once; its result is
// truncated at the first NUL byte, matching the C-string convention spec §4.4
// specifies for the sibling PEM container.
func Parse(text string, passphrase string, authFn AuthFunc, log *slog.Logger) (*key.Key, error) {
	log = orDefault(log)
	block, _ := gopem.Decode([]byte(text))
	if block == nil || block.Type != blockType {
		return nil, fmt.Errorf("%w: not an OPENSSH PRIVATE KEY block", ErrParse)
	}
	return ParseBlob(block.Bytes, passphrase, authFn, log)
}

// ParseBlob decodes the raw (post-base64, pre-PEM-armor) container bytes,
// for callers that already stripped the PEM wrapper.
func ParseBlob(body []byte, passphrase string, authFn AuthFunc, log *slog.Logger) (*key.Key, error) {
	log = orDefault(log)
	if !strings.HasPrefix(string(body), magic) {
		return nil, fmt.Errorf("%w: bad magic", ErrParse)
	}
	r := wire.NewReader(body[len(magic):])

	cipherName, err := r.Str()
	if err != nil {
		return nil, fmt.Errorf("%w: read cipher name: %v", ErrParse, err)
	}
	kdfName, err := r.Str()
	if err != nil {
		return nil, fmt.Errorf("%w: read kdf name: %v", ErrParse, err)
	}
	kdfOptions, err := r.String()
	if err != nil {
		return nil, fmt.Errorf("%w: read kdf options: %v", ErrParse, err)
	}
	nkeys, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("%w: read key count: %v", ErrParse, err)
	}
	if nkeys != 1 {
		return nil, fmt.Errorf("%w: nkeys = %d, must be 1", ErrParse, nkeys)
	}
	pubBlob, err := r.String()
	if err != nil {
		return nil, fmt.Errorf("%w: read public key blob: %v", ErrParse, err)
	}
	encrypted, err := r.String()
	if err != nil {
		return nil, fmt.Errorf("%w: read encrypted private section: %v", ErrParse, err)
	}

	if cipherName == "none" && kdfName != "none" {
		return nil, fmt.Errorf("%w: cipher \"none\" requires kdf \"none\"", ErrParse)
	}

	var bc blockCipher
	if cipherName == "none" {
		bc = passthrough{}
	} else {
		spec, ok := lookupCipher(cipherName)
		if !ok {
			return nil, fmt.Errorf("%w: unknown cipher %q", ErrParse, cipherName)
		}
		if kdfName != "bcrypt" {
			return nil, fmt.Errorf("%w: unsupported kdf %q", ErrParse, kdfName)
		}
		pass := passphrase
		if pass == "" {
			if authFn == nil {
				return nil, fmt.Errorf("%w: encrypted key requires a passphrase", ErrPassphrase)
			}
			got, authErr := authFn()
			if authErr != nil {
				return nil, fmt.Errorf("%w: passphrase callback failed: %v", ErrPassphrase, authErr)
			}
			pass = truncateAtNUL(got)
		}
		kr := wire.NewReader(kdfOptions)
		salt, err1 := kr.String()
		rounds, err2 := kr.Uint32()
		if err := firstErr(err1, err2); err != nil {
			return nil, fmt.Errorf("%w: read bcrypt kdf options: %v", ErrParse, err)
		}
		keyIV, err := bcryptPBKDF([]byte(pass), salt, int(rounds), spec.keyLen+spec.ivLen)
		if err != nil {
			return nil, fmt.Errorf("%w: derive key material: %v", ErrParse, err)
		}
		bc, err = newBlockCipher(cipherName, keyIV)
		if err != nil {
			return nil, err
		}
	}

	if len(encrypted)%bc.blockSize() != 0 {
		return nil, fmt.Errorf("%w: encrypted section is not block-aligned", ErrParse)
	}
	decrypted := make([]byte, len(encrypted))
	if err := bc.decrypt(decrypted, encrypted); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	k, err := parsePrivateSection(decrypted, pubBlob, log)
	if err != nil {
		return nil, err
	}
	return k, nil
}

func parsePrivateSection(decrypted, pubBlob []byte, log *slog.Logger) (*key.Key, error) {
	pr := wire.NewReader(decrypted)
	check1, err1 := pr.Uint32()
	check2, err2 := pr.Uint32()
	if err := firstErr(err1, err2); err != nil {
		return nil, fmt.Errorf("%w: read check bytes: %v", ErrParse, err)
	}
	if check1 != check2 {
		// Per spec §4.5/§7, a check-bytes mismatch is always reported as a
		// passphrase error, never a generic parse error, even though a
		// corrupt (not just misdecrypted) container would also fail here.
		return nil, ErrPassphrase
	}

	typeName, err := pr.Str()
	if err != nil {
		return nil, fmt.Errorf("%w: read key type name: %v", ErrParse, err)
	}
	tag := algo.TagOf(typeName)
	if tag == algo.Unknown {
		return nil, fmt.Errorf("%w: unknown key type %q", ErrParse, typeName)
	}

	var k *key.Key
	if algo.IsCert(tag) {
		certKey, err := wire.ParseCertificate(pubBlob)
		if err != nil {
			return nil, fmt.Errorf("%w: read certificate public blob: %v", ErrParse, err)
		}
		plain := algo.PlainOf(tag)
		plainName, _ := algo.NameOf(plain)
		priv, err := wire.ParsePrivateKey(pr, plain, plainName)
		if err != nil {
			return nil, fmt.Errorf("%w: read private key body: %v", ErrParse, err)
		}
		priv.Tag, priv.TypeC = tag, typeName
		priv.Cert = certKey.Cert
		priv.CertInner = certKey.CertInner
		k = priv
	} else {
		priv, err := wire.ParsePrivateKey(pr, tag, typeName)
		if err != nil {
			return nil, fmt.Errorf("%w: read private key body: %v", ErrParse, err)
		}
		k = priv
	}

	comment, err := pr.Str()
	if err != nil {
		return nil, fmt.Errorf("%w: read comment: %v", ErrParse, err)
	}
	log.Debug("opensshv1: parsed private key container", "type", typeName, "comment", comment)

	pad := pr.Rest()
	for i, b := range pad {
		if int(b) != i+1 {
			return nil, fmt.Errorf("%w: bad padding byte at offset %d", ErrParse, i)
		}
	}
	return k, nil
}

// Serialize encodes k as a PEM-armored openssh-key-v1 container. If
// passphrase is empty, the container is written with cipher "none" and kdf
// "none" regardless of cipherName/rounds. A zero rounds defaults to
// DefaultKDFRounds, and an empty cipherName defaults to DefaultCipher.
func Serialize(k *key.Key, passphrase, comment, cipherName string, rounds int) (string, error) {
	body, err := SerializeBlob(k, passphrase, comment, cipherName, rounds)
	if err != nil {
		return "", err
	}
	return string(gopem.EncodeToMemory(&gopem.Block{Type: blockType, Bytes: body})), nil
}

// SerializeBlob is Serialize without the PEM armor, for callers that want
// the raw container bytes.
func SerializeBlob(k *key.Key, passphrase, comment, cipherName string, rounds int) ([]byte, error) {
	if k == nil {
		return nil, key.ErrNilKey
	}
	if !k.IsPrivate() {
		return nil, fmt.Errorf("%w: key has no private material", ErrInput)
	}

	if passphrase == "" {
		cipherName = "none"
	} else {
		if cipherName == "" {
			cipherName = DefaultCipher
		}
		if rounds <= 0 {
			rounds = DefaultKDFRounds
		}
	}

	pubBlob, err := wire.MarshalPublicKey(k)
	if err != nil {
		return nil, fmt.Errorf("opensshv1: marshal public key: %w", err)
	}
	privBlob, err := wire.MarshalPrivateKey(k)
	if err != nil {
		return nil, fmt.Errorf("opensshv1: marshal private key: %w", err)
	}

	var check [4]byte
	if _, err := rand.Read(check[:]); err != nil {
		return nil, fmt.Errorf("opensshv1: generate check bytes: %w", err)
	}

	priv := wire.NewWriter()
	defer priv.Release()
	priv.Raw(check[:]).Raw(check[:])
	priv.Str(k.TypeC).Raw(privBlob).Str(comment)

	var bc blockCipher
	var kdfName string
	var kdfOptions []byte
	if cipherName == "none" {
		bc = passthrough{}
		kdfName = "none"
	} else {
		spec, ok := lookupCipher(cipherName)
		if !ok {
			return nil, fmt.Errorf("%w: unknown cipher %q", ErrInput, cipherName)
		}
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("opensshv1: generate kdf salt: %w", err)
		}
		keyIV, err := bcryptPBKDF([]byte(passphrase), salt, rounds, spec.keyLen+spec.ivLen)
		if err != nil {
			return nil, fmt.Errorf("opensshv1: derive key material: %w", err)
		}
		bc, err = newBlockCipher(cipherName, keyIV)
		if err != nil {
			return nil, err
		}
		kdfName = "bcrypt"
		kw := wire.NewWriter()
		defer kw.Release()
		kw.String(salt).Uint32(uint32(rounds))
		kdfOptions = append([]byte(nil), kw.Bytes()...)
	}

	// Pad to a multiple of the cipher block size with the sequence
	// 1, 2, 3, ... (PKCS-style, spec §4.5 "On export").
	padded := append([]byte(nil), priv.Bytes()...)
	for i := 1; len(padded)%bc.blockSize() != 0; i++ {
		padded = append(padded, byte(i))
	}
	encrypted := make([]byte, len(padded))
	bc.encrypt(encrypted, padded)

	w := wire.NewWriter()
	defer w.Release()
	w.Raw([]byte(magic))
	w.Str(cipherName).Str(kdfName).String(kdfOptions)
	w.Uint32(1)
	w.String(pubBlob)
	w.String(encrypted)
	return append([]byte(nil), w.Bytes()...), nil
}

func truncateAtNUL(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func orDefault(log *slog.Logger) *slog.Logger {
	if log != nil {
		return log
	}
	return slog.Default()
}
