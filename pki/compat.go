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
	"slices"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/session"
)

// AlgorithmAllowed reports whether name is acceptable for host-key
// authentication under sess (spec §4.7 "ssh_key_algorithm_allowed"): it
// must be a recognized identifier, and, if sess is non-nil, it must also
// appear in sess.AcceptedHostKeyTypes.
func AlgorithmAllowed(sess session.Session, name string) bool {
	if algo.SignatureTagOf(name) == algo.Unknown {
		return false
	}
	if sess == nil {
		return true
	}
	return slices.Contains(sess.AcceptedHostKeyTypes(), name)
}

// preOpenSSH72 is the version threshold spec §4.7 names: peers older than
// this silently mishandle RSA-cert-01 signatures made with a SHA-2 digest,
// so TypeToHash downgrades to SHA-1 for them regardless of advertised
// extensions (spec §7 "Compatibility error", "downgraded, not failed").
const preOpenSSH72 = 70200

// TypeToHash returns the digest a signature over a key of tag tag should use
// against sess (spec §4.7 "ssh_key_type_to_hash"): RSA prefers SHA-512 when
// the peer advertised rsa-sha2-512, else SHA-256 when it advertised
// rsa-sha2-256, else falls back to the legacy SHA-1 "ssh-rsa" unless sess is
// in FIPS mode, in which case SHA-1 is refused outright (spec §4.6 "FIPS
// mode"). If tag is an RSA v01 certificate and sess reports a peer OpenSSH
// version older than 7.2.0, the negotiated extensions are ignored and SHA-1
// is forced, matching the old-OpenSSH RSA-cert quirk spec §4.7 and §9 call
// out by name. Every other key type's digest is fixed by the registry and
// ignores sess entirely.
func TypeToHash(sess session.Session, tag algo.Tag) (algo.Digest, error) {
	plain := algo.PlainOf(tag)
	if plain != algo.RSA {
		d, ok := algo.HashOf(mustName(plain))
		if !ok {
			return algo.Auto, ErrCompat
		}
		return d, nil
	}

	if sess == nil {
		return algo.SHA1, nil
	}
	if tag == algo.RSACert {
		if v, ok := sess.PeerOpenSSHVersion(); ok && v < preOpenSSH72 {
			if sess.FIPSMode() {
				return algo.Auto, ErrCompat
			}
			return algo.SHA1, nil
		}
	}
	if sess.Extensions().Has(session.ExtRSASHA2512) {
		return algo.SHA512, nil
	}
	if sess.Extensions().Has(session.ExtRSASHA2256) {
		return algo.SHA256, nil
	}
	if sess.FIPSMode() {
		return algo.Auto, ErrCompat
	}
	return algo.SHA1, nil
}

func mustName(tag algo.Tag) string {
	name, _ := algo.NameOf(tag)
	return name
}
