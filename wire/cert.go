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

package wire

import (
	"fmt"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/key"
)

// ParseCertificate decodes a v01 certificate public-key blob: a type
// string, a nonce string, the inner public-key components of the
// corresponding plain type, and a remainder (serial, principals, validity
// window, critical options, extensions, CA key, and CA signature) that this
// module preserves verbatim rather than re-parsing (spec §4.2). The
// returned Key's Cert field holds the entire blob unchanged; CertInner
// holds the embedded plain public key materialized from the portion this
// package does parse (invariant I4).
func ParseCertificate(blob []byte) (*key.Key, error) {
	r := NewReader(blob)
	name, err := r.Str()
	if err != nil {
		return nil, fmt.Errorf("wire: read certificate algorithm name: %w", err)
	}
	tag := algo.TagOf(name)
	if !algo.IsCert(tag) {
		return nil, fmt.Errorf("wire: %q is not a certificate type", name)
	}
	if _, err := r.String(); err != nil { // nonce; opaque, not reused by this core.
		return nil, fmt.Errorf("wire: read certificate nonce: %w", err)
	}

	plain := algo.PlainOf(tag)
	plainName, ok := algo.NameOf(plain)
	if !ok {
		return nil, fmt.Errorf("wire: certificate type %q has no plain-type projection", name)
	}
	inner, err := readPublicBody(r, plain, plainName)
	if err != nil {
		return nil, fmt.Errorf("wire: read embedded public key for %q: %w", name, err)
	}
	// The remainder (serial, principals, validity, options, extensions,
	// signature key, and CA signature) is preserved only inside Cert below;
	// this core never re-parses or re-derives it.

	return &key.Key{
		Tag:       tag,
		TypeC:     name,
		Flags:     key.Public,
		Cert:      append([]byte(nil), blob...),
		CertInner: inner,
	}, nil
}

// MarshalCertificate returns k's already-serialized certificate blob
// unchanged. This core does not mint new certificates (no CA signing is in
// scope, spec §1 "Out of scope"/"Non-goals"); it only imports, attaches,
// and re-exports the bytes a CA produced.
func MarshalCertificate(k *key.Key) ([]byte, error) {
	if k == nil {
		return nil, key.ErrNilKey
	}
	if !algo.IsCert(k.Tag) {
		return nil, fmt.Errorf("wire: key of tag %d is not a certificate", k.Tag)
	}
	if len(k.Cert) == 0 {
		return nil, fmt.Errorf("wire: certificate key has no attached blob")
	}
	return append([]byte(nil), k.Cert...), nil
}
