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

// Package session declares the read-only contract this module expects from
// the caller's SSH session object (spec §6, "Session object"). The core
// never constructs a Session; it only consults one during signing and
// verification to bind signatures to a session id or exchange hash, to
// select RFC 8332 RSA digest variants, and to apply FIPS-mode restrictions.
package session

// Extensions is a bitmask of RFC 8332 signature-algorithm extensions the
// peer advertised during key exchange.
type Extensions uint8

const (
	// ExtRSASHA2256 indicates the peer advertised "server-sig-algs" support
	// for rsa-sha2-256.
	ExtRSASHA2256 Extensions = 1 << iota
	// ExtRSASHA2512 indicates the peer advertised rsa-sha2-512 support.
	ExtRSASHA2512
)

// Has reports whether e includes every bit set in want.
func (e Extensions) Has(want Extensions) bool { return e&want == want }

// Session is the read-only view this module needs of an SSH session: the
// current key-exchange session id and hash, negotiated extensions, peer
// version, FIPS mode, and the accepted host-key algorithm list used for
// compatibility checks (spec §4.7 "ssh_key_algorithm_allowed"). It has no
// accessor for the wanted host-key methods, so those are never consulted.
type Session interface {
	// SessionID returns the current session's binding id (the first key
	// exchange hash), used as-is by client authentication signatures.
	SessionID() []byte

	// ExchangeHash returns the current key-exchange hash, used in place of
	// the session id by the server host-signature variant.
	ExchangeHash() []byte

	// Extensions returns the RFC 8332 extensions the peer advertised.
	Extensions() Extensions

	// PeerOpenSSHVersion returns the peer's OpenSSH version as a comparable
	// integer (major*10000 + minor*100 + patch, e.g. 7.2.0 -> 70200), and
	// false if the peer is not OpenSSH or the version is unknown.
	PeerOpenSSHVersion() (version int, ok bool)

	// FIPSMode reports whether the session is operating under FIPS
	// restrictions (disallowing SHA1 and other non-approved primitives).
	FIPSMode() bool

	// AcceptedHostKeyTypes returns the algorithm identifiers the session's
	// options accept for host-key authentication.
	AcceptedHostKeyTypes() []string
}
