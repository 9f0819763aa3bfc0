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

// Package key holds the polymorphic Key value: a single struct wide enough
// to carry any classical, security-key, certificate, post-quantum, or
// hybrid key material this module supports, plus the lifecycle operations
// (duplication, comparison, destruction) that operate on it independent of
// the specific algorithm populated.
//
// This package intentionally does not know how to read or write any wire
// or container format — that is the job of the wire, pem, and opensshv1
// packages, which construct and consume Key values. Key only knows how to
// hold, duplicate, compare, and scrub its own material.
package key

import (
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/subtle"
	"errors"
	"math/big"

	"github.com/deep-rent/sshpki/algo"
)

// Flags is a bitset over a Key's public/private/empty state. Public and
// Private may coexist on the same Key (invariant I1).
type Flags uint8

const (
	Public Flags = 1 << iota
	Private
	Empty
)

// Has reports whether f includes every bit set in want.
func (f Flags) Has(want Flags) bool { return f&want == want }

// OQS holds the post-quantum half of a pure-PQ or hybrid Key's material.
// Public and Secret lengths must equal the lengths the registry's scheme
// declares for algo.OQSScheme(Type) (invariant carried by the constructors
// in this package; wire/pem/opensshv1 never forge an OQS value directly).
type OQS struct {
	Scheme string
	Public []byte
	Secret []byte // nil for a public-only Key.
}

// Key is a value owning exactly one non-null classical material slot as
// implied by Type (invariant I1), plus whatever certificate, security-key,
// or post-quantum material that Type requires.
//
// This is the flat record-of-optionals shape spec.md §3 describes
// directly, rather than the sum-type-with-interface encoding floated as an
// alternative in §9's Design Notes — see DESIGN.md for why the literal
// struct was kept.
type Key struct {
	Tag   algo.Tag
	TypeC string // canonical wire identifier for Tag; mirrors algo.NameOf(Tag).
	Flags Flags

	DSA   *dsa.PrivateKey
	RSA   *rsa.PrivateKey
	ECDSA *ecdsa.PrivateKey

	Ed25519Pub  []byte // 32 bytes, set whenever Flags has Public.
	Ed25519Priv []byte // 32-byte seed only; the 64-byte expanded form is
	// regenerated on demand rather than stored.

	SKApplication string // non-empty iff Tag is a security-key variant.

	Cert      []byte // the serialized v01 certificate blob, set iff Tag is a cert variant.
	CertInner *Key   // the embedded plain key materialized from Cert (invariant I4).

	OQS *OQS // set iff Tag is pure-PQ or hybrid (invariant I5 for hybrids).
}

// ErrNilKey is returned by operations given a nil *Key where one is
// required.
var ErrNilKey = errors.New("key: nil key")

// New returns an empty Key with no material populated.
func New() *Key {
	return &Key{Tag: algo.Unknown, Flags: Empty}
}

// IsPublic reports whether k carries public material.
func (k *Key) IsPublic() bool { return k != nil && k.Flags.Has(Public) }

// IsPrivate reports whether k carries private material.
func (k *Key) IsPrivate() bool { return k != nil && k.Flags.Has(Private) }

// zero overwrites b with zero bytes in place. This is module's
// explicit_bzero equivalent (§6): it does not guarantee the compiler will
// never have copied b elsewhere, but it does guarantee the bytes at this
// address are gone before the slice is released, matching the zero-before-
// release discipline the Go ecosystem commonly applies to key material
// (e.g. crypto/ed25519's own scrubbing of expanded private keys).
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Clean scrubs every secret byte this Key owns and resets it to the empty
// state (invariant I2). It is idempotent and safe to call on an already-
// clean or nil Key.
func (k *Key) Clean() {
	if k == nil {
		return
	}
	if k.Flags.Has(Private) {
		if k.DSA != nil {
			zeroScalar(k.DSA.X)
		}
		if k.RSA != nil {
			zeroScalar(k.RSA.D)
			for _, p := range k.RSA.Primes {
				zeroScalar(p)
			}
		}
		if k.ECDSA != nil {
			zeroScalar(k.ECDSA.D)
		}
		zero(k.Ed25519Priv)
		if k.OQS != nil {
			zero(k.OQS.Secret)
		}
	}
	if k.CertInner != nil {
		k.CertInner.Clean()
	}
	*k = Key{Tag: algo.Unknown, Flags: Empty}
}

// zeroScalar overwrites a big.Int's backing words. It is best-effort in the
// same sense as zero: it cannot reclaim copies made by earlier arithmetic,
// but it does scrub the value the Key was holding onto.
func zeroScalar(n *big.Int) {
	if n == nil {
		return
	}
	words := n.Bits()
	for i := range words {
		words[i] = 0
	}
	n.SetInt64(0)
}

// Free is an alias for Clean, named to mirror the C API's ssh_key_free and
// make the caller's "destruction is the caller's responsibility" duty
// (spec.md §3 "Lifecycle") explicit at call sites even though Go's garbage
// collector reclaims the struct itself.
func (k *Key) Free() { k.Clean() }

// Duplicate returns a deep copy of k. If demote is true, the copy carries
// only public material (Private is cleared and every private-only field is
// left nil/empty), satisfying property P5:
// duplicate(k, demote=true).is_public && !duplicate(k, demote=true).is_private.
func (k *Key) Duplicate(demote bool) (*Key, error) {
	if k == nil {
		return nil, ErrNilKey
	}
	out := &Key{
		Tag:           k.Tag,
		TypeC:         k.TypeC,
		Flags:         k.Flags,
		SKApplication: k.SKApplication,
	}
	if demote {
		out.Flags &^= Private
		out.Flags |= Public
	}
	if k.DSA != nil {
		pub := k.DSA.PublicKey
		out.DSA = &dsa.PrivateKey{PublicKey: pub}
		if out.Flags.Has(Private) {
			out.DSA.X = new(big.Int).Set(k.DSA.X)
		}
	}
	if k.RSA != nil {
		out.RSA = &rsa.PrivateKey{PublicKey: rsa.PublicKey{
			N: new(big.Int).Set(k.RSA.N),
			E: k.RSA.E,
		}}
		if out.Flags.Has(Private) {
			out.RSA.D = new(big.Int).Set(k.RSA.D)
			out.RSA.Primes = make([]*big.Int, len(k.RSA.Primes))
			for i, p := range k.RSA.Primes {
				out.RSA.Primes[i] = new(big.Int).Set(p)
			}
			out.RSA.Precompute()
		}
	}
	if k.ECDSA != nil {
		out.ECDSA = &ecdsa.PrivateKey{PublicKey: ecdsa.PublicKey{
			Curve: k.ECDSA.Curve,
			X:     new(big.Int).Set(k.ECDSA.X),
			Y:     new(big.Int).Set(k.ECDSA.Y),
		}}
		if out.Flags.Has(Private) {
			out.ECDSA.D = new(big.Int).Set(k.ECDSA.D)
		}
	}
	if len(k.Ed25519Pub) > 0 {
		out.Ed25519Pub = append([]byte(nil), k.Ed25519Pub...)
	}
	if out.Flags.Has(Private) && len(k.Ed25519Priv) > 0 {
		out.Ed25519Priv = append([]byte(nil), k.Ed25519Priv...)
	}
	if k.OQS != nil {
		out.OQS = &OQS{Scheme: k.OQS.Scheme, Public: append([]byte(nil), k.OQS.Public...)}
		if out.Flags.Has(Private) && len(k.OQS.Secret) > 0 {
			out.OQS.Secret = append([]byte(nil), k.OQS.Secret...)
		}
	}
	if len(k.Cert) > 0 {
		out.Cert = append([]byte(nil), k.Cert...)
	}
	if k.CertInner != nil {
		inner, err := k.CertInner.Duplicate(demote)
		if err != nil {
			return nil, err
		}
		out.CertInner = inner
	}
	return out, nil
}

// Cmp compares two Keys for equality over the material selected by what,
// which must be Public, Private, or both. For Ed25519 and SK-Ed25519 it
// compares raw bytes directly; for DSA, RSA, and ECDSA it compares the
// underlying big.Int components; for OQS/hybrid material it compares raw
// bytes. Two nil Keys are never equal.
func Cmp(a, b *Key, what Flags) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Tag != b.Tag {
		return false
	}
	if what.Has(Public) {
		if !cmpPublic(a, b) {
			return false
		}
	}
	if what.Has(Private) {
		if !a.IsPrivate() || !b.IsPrivate() {
			return false
		}
		if !cmpPrivate(a, b) {
			return false
		}
	}
	return true
}

func cmpPublic(a, b *Key) bool {
	switch {
	case a.DSA != nil && b.DSA != nil:
		return eqInt(a.DSA.P, b.DSA.P) && eqInt(a.DSA.Q, b.DSA.Q) &&
			eqInt(a.DSA.G, b.DSA.G) && eqInt(a.DSA.Y, b.DSA.Y)
	case a.RSA != nil && b.RSA != nil:
		return eqInt(a.RSA.N, b.RSA.N) && a.RSA.E == b.RSA.E
	case a.ECDSA != nil && b.ECDSA != nil:
		return a.ECDSA.Curve == b.ECDSA.Curve &&
			eqInt(a.ECDSA.X, b.ECDSA.X) && eqInt(a.ECDSA.Y, b.ECDSA.Y)
	case len(a.Ed25519Pub) > 0 && len(b.Ed25519Pub) > 0:
		return subtle.ConstantTimeCompare(a.Ed25519Pub, b.Ed25519Pub) == 1
	case a.OQS != nil && b.OQS != nil:
		return a.OQS.Scheme == b.OQS.Scheme &&
			subtle.ConstantTimeCompare(a.OQS.Public, b.OQS.Public) == 1
	default:
		return false
	}
}

func cmpPrivate(a, b *Key) bool {
	switch {
	case a.DSA != nil && b.DSA != nil:
		return eqInt(a.DSA.X, b.DSA.X)
	case a.RSA != nil && b.RSA != nil:
		return eqInt(a.RSA.D, b.RSA.D)
	case a.ECDSA != nil && b.ECDSA != nil:
		return eqInt(a.ECDSA.D, b.ECDSA.D)
	case len(a.Ed25519Priv) > 0 && len(b.Ed25519Priv) > 0:
		return subtle.ConstantTimeCompare(a.Ed25519Priv, b.Ed25519Priv) == 1
	case a.OQS != nil && b.OQS != nil:
		return subtle.ConstantTimeCompare(a.OQS.Secret, b.OQS.Secret) == 1
	default:
		return false
	}
}

func eqInt(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}
