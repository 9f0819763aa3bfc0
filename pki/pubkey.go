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

package pki

import (
	"fmt"
	"os"
	"strings"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/key"
	"github.com/deep-rent/sshpki/wire"
)

// AuthorizedKey is one parsed line of an authorized_keys-style file: the
// algorithm name, the decoded key, an optional comment, and any leading
// option string (e.g. "command=...,no-port-forwarding").
type AuthorizedKey struct {
	Key     *key.Key
	Comment string
	Options string
}

const rfc4716Begin = "---- BEGIN SSH2 PUBLIC KEY ----"
const rfc4716End = "---- END SSH2 PUBLIC KEY ----"

// ImportPublicKeyBlob decodes a raw SSH public-key wire blob (spec
// §4.7 "ssh_pki_import_pubkey_blob"). A blob whose leading algorithm name
// is a certificate type is routed to ParseCertificate, matching how
// ImportCertificateBase64 and a caller just handed an authorized_keys
// line expect either form to work through this single entry point.
func ImportPublicKeyBlob(blob []byte) (*key.Key, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty public key blob", ErrInput)
	}
	if algo.IsCert(algo.TagOf(wire.PeekAlgorithmName(blob))) {
		k, err := wire.ParseCertificate(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		return k, nil
	}
	k, err := wire.ParsePublicKey(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return k, nil
}

// ImportPublicKeyBase64 parses a single authorized_keys-style line or an
// RFC 4716 "new OpenSSH format" block (spec §4.7
// "ssh_pki_import_pubkey_base64"). Exactly one key is expected; multi-line
// authorized_keys files should be split by the caller and fed one line at a
// time, matching how the teacher's config loader processes one directive
// per call rather than parsing a whole file in one pass.
func ImportPublicKeyBase64(text string) (*AuthorizedKey, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty public key text", ErrInput)
	}
	if strings.HasPrefix(text, rfc4716Begin) {
		return parseRFC4716(text)
	}
	return parseAuthorizedKeysLine(text)
}

func parseAuthorizedKeysLine(line string) (*AuthorizedKey, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: malformed authorized_keys line", ErrInput)
	}

	// An options prefix has no recognizable algorithm name in its first
	// field; skip it and retry against field[1:].
	idx := 0
	if !looksLikeAlgorithmName(fields[0]) {
		idx = 1
	}
	if idx+1 >= len(fields) {
		return nil, fmt.Errorf("%w: missing key body", ErrInput)
	}

	blob, err := decodeB64(fields[idx+1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64 key body: %v", ErrInput, err)
	}
	k, err := ImportPublicKeyBlob(blob)
	if err != nil {
		return nil, err
	}

	ak := &AuthorizedKey{Key: k}
	if idx == 1 {
		ak.Options = fields[0]
	}
	if rest := fields[idx+2:]; len(rest) > 0 {
		ak.Comment = strings.Join(rest, " ")
	}
	return ak, nil
}

func looksLikeAlgorithmName(field string) bool {
	return strings.HasPrefix(field, "ssh-") || strings.HasPrefix(field, "ecdsa-") ||
		strings.HasPrefix(field, "sk-")
}

// parseRFC4716 parses the "new OpenSSH format" public key container (RFC
// 4716 §3.3): a BEGIN/END marker pair wrapping optional "Keyword: value"
// header lines (with backslash line continuations) followed by base64 body
// lines.
func parseRFC4716(text string) (*AuthorizedKey, error) {
	lines := strings.Split(text, "\n")
	var body strings.Builder
	var comment string
	inHeader := true
	for i := 1; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if strings.HasPrefix(line, rfc4716End) {
			break
		}
		if inHeader {
			if strings.Contains(line, ":") {
				parts := strings.SplitN(line, ":", 2)
				isComment := strings.EqualFold(strings.TrimSpace(parts[0]), "Comment")
				var value strings.Builder
				value.WriteString(strings.TrimPrefix(strings.TrimSuffix(parts[1], "\\"), " "))
				for strings.HasSuffix(line, "\\") {
					i++
					if i >= len(lines) {
						break
					}
					line = strings.TrimRight(lines[i], "\r")
					value.WriteString(strings.TrimSuffix(line, "\\"))
				}
				if isComment {
					comment = strings.Trim(value.String(), "\"")
				}
				continue
			}
			inHeader = false
		}
		body.WriteString(strings.TrimSpace(line))
	}
	blob, err := decodeB64(body.String())
	if err != nil {
		return nil, fmt.Errorf("%w: bad RFC 4716 body: %v", ErrInput, err)
	}
	k, err := ImportPublicKeyBlob(blob)
	if err != nil {
		return nil, err
	}
	return &AuthorizedKey{Key: k, Comment: comment}, nil
}

// ImportPublicKeyFile reads path (capped at MaxPubKeySize) and parses its
// first non-blank, non-comment line as a public key. A "pkcs11:" path is
// routed to backend instead of being read as a file (spec §1, external
// PKCS#11 collaborator); backend == nil fails such paths with ErrNoPKCS11.
func ImportPublicKeyFile(path string, backend PKCS11Backend) (*AuthorizedKey, error) {
	if strings.HasPrefix(path, pkcs11Prefix) {
		if backend == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoPKCS11, path)
		}
		k, err := backend.ImportPublicKey(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInput, err)
		}
		return &AuthorizedKey{Key: k}, nil
	}
	data, err := readCapped(path, MaxPubKeySize)
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return ImportPublicKeyBase64(line)
	}
	return nil, fmt.Errorf("%w: %s contains no public key line", ErrInput, path)
}

// ExportPublicKeyBlob serializes k's public-key wire blob (spec §4.7
// "ssh_pki_export_pubkey_blob"); for certificate-tagged keys this is the
// full certificate blob.
func ExportPublicKeyBlob(k *key.Key) ([]byte, error) {
	return wire.MarshalPublicKey(k)
}

// ExportPublicKeyBase64 renders k as a single authorized_keys-style line:
// "<algorithm> <base64> [comment]".
func ExportPublicKeyBase64(k *key.Key, comment string) (string, error) {
	name, blob, err := nameAndBlob(k)
	if err != nil {
		return "", err
	}
	line := name + " " + encodeB64(blob)
	if comment != "" {
		line += " " + comment
	}
	return line, nil
}

func nameAndBlob(k *key.Key) (string, []byte, error) {
	if k == nil {
		return "", nil, key.ErrNilKey
	}
	blob, err := wire.MarshalPublicKey(k)
	if err != nil {
		return "", nil, err
	}
	name := k.TypeC
	if name == "" {
		return "", nil, fmt.Errorf("%w: key has no algorithm name", ErrInput)
	}
	return name, blob, nil
}

// ExportPublicKeyFile writes ExportPublicKeyBase64's output, terminated by
// a newline, to path.
func ExportPublicKeyFile(k *key.Key, comment, path string, mode os.FileMode) error {
	line, err := ExportPublicKeyBase64(k, comment)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(line+"\n"), mode); err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: write %s: %v", ErrInput, path, err)
	}
	return nil
}

// ImportCertificateBlob decodes a v01 certificate wire blob (spec §4.7
// "ssh_pki_import_cert_blob").
func ImportCertificateBlob(blob []byte) (*key.Key, error) {
	k, err := wire.ParseCertificate(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return k, nil
}

// ImportCertificateBase64 parses a single authorized_keys-style line whose
// algorithm is a certificate type (spec §4.7 "ssh_pki_import_cert_base64").
func ImportCertificateBase64(text string) (*AuthorizedKey, error) {
	ak, err := ImportPublicKeyBase64(text)
	if err != nil {
		return nil, err
	}
	if len(ak.Key.Cert) == 0 {
		return nil, fmt.Errorf("%w: line does not carry a certificate", ErrInput)
	}
	return ak, nil
}

// ExportCertificateBase64 renders certKey's certificate blob as an
// authorized_keys-style line.
func ExportCertificateBase64(certKey *key.Key, comment string) (string, error) {
	return ExportPublicKeyBase64(certKey, comment)
}
