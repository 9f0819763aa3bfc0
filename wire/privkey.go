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
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
	"math/big"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/key"
)

// MarshalPrivateKey encodes k's private-key blob, the representation only
// meaningful inside the OpenSSH v1 container (spec §4.2 "private-key blob").
// k must carry private material.
func MarshalPrivateKey(k *key.Key) ([]byte, error) {
	if k == nil {
		return nil, key.ErrNilKey
	}
	if !k.IsPrivate() {
		return nil, fmt.Errorf("wire: key has no private material to encode")
	}

	w := NewWriter()
	defer w.Release()

	switch {
	case k.DSA != nil:
		w.MPInt(k.DSA.P).MPInt(k.DSA.Q).MPInt(k.DSA.G).MPInt(k.DSA.Y).MPInt(k.DSA.X)
	case k.RSA != nil:
		// Note the unusual ordering relative to CRT convention: n, e, d,
		// iqmp, p, q. This must be preserved exactly.
		if len(k.RSA.Primes) != 2 || k.RSA.Precomputed.Qinv == nil {
			k.RSA.Precompute()
		}
		p, q := k.RSA.Primes[0], k.RSA.Primes[1]
		w.MPInt(k.RSA.N).MPInt(big.NewInt(int64(k.RSA.E))).MPInt(k.RSA.D).
			MPInt(k.RSA.Precomputed.Qinv).MPInt(p).MPInt(q)
	case k.ECDSA != nil:
		cname, curve, err := curveName(k.Tag)
		if err != nil {
			return nil, err
		}
		w.Str(cname).String(elliptic.Marshal(curve, k.ECDSA.X, k.ECDSA.Y)).MPInt(k.ECDSA.D)
	case len(k.Ed25519Pub) == 32:
		if len(k.Ed25519Priv) != 32 {
			return nil, fmt.Errorf("wire: Ed25519 private seed has length %d, want 32", len(k.Ed25519Priv))
		}
		expanded := append(append([]byte(nil), k.Ed25519Priv...), k.Ed25519Pub...)
		w.String(k.Ed25519Pub).String(expanded)
	case algo.IsOQS(k.Tag):
		// A pure post-quantum key has no classical half; its components are
		// written below.
	default:
		return nil, fmt.Errorf("wire: key of tag %d has no private material to encode", k.Tag)
	}

	if algo.IsHybrid(k.Tag) {
		if k.OQS == nil || len(k.OQS.Secret) == 0 {
			return nil, fmt.Errorf("wire: hybrid key of tag %d is missing its post-quantum secret component", k.Tag)
		}
		w.String(k.OQS.Public).String(k.OQS.Secret)
	} else if algo.IsOQS(k.Tag) {
		if k.OQS == nil || len(k.OQS.Secret) == 0 {
			return nil, fmt.Errorf("wire: post-quantum key of tag %d is missing its secret component", k.Tag)
		}
		w.String(k.OQS.Public).String(k.OQS.Secret)
	}

	return append([]byte(nil), w.Bytes()...), nil
}

// ParsePrivateKey decodes a private-key blob for the algorithm tag, as
// produced by MarshalPrivateKey. The caller supplies tag and typeC (read
// separately from the OpenSSH v1 container's per-key type_name field) since
// the private-key blob itself carries no leading identifier string.
func ParsePrivateKey(r *Reader, tag algo.Tag, typeC string) (*key.Key, error) {
	k := &key.Key{Tag: tag, TypeC: typeC, Flags: key.Public | key.Private}

	switch {
	case tag == algo.DSS:
		p, e1 := r.MPInt()
		q, e2 := r.MPInt()
		g, e3 := r.MPInt()
		y, e4 := r.MPInt()
		x, e5 := r.MPInt()
		if err := firstErr(e1, e2, e3, e4, e5); err != nil {
			return nil, fmt.Errorf("wire: read DSS private components: %w", err)
		}
		k.DSA = &dsa.PrivateKey{PublicKey: dsa.PublicKey{Parameters: dsa.Parameters{P: p, Q: q, G: g}, Y: y}, X: x}
	case tag == algo.RSA:
		n, e1 := r.MPInt()
		e, e2 := r.MPInt()
		d, e3 := r.MPInt()
		_, e4 := r.MPInt() // iqmp; recomputed below via Precompute for canonical form.
		p, e5 := r.MPInt()
		q, e6 := r.MPInt()
		if err := firstErr(e1, e2, e3, e4, e5, e6); err != nil {
			return nil, fmt.Errorf("wire: read RSA private components: %w", err)
		}
		priv := &rsa.PrivateKey{
			PublicKey: rsa.PublicKey{N: n, E: int(e.Int64())},
			D:         d,
			Primes:    []*big.Int{p, q},
		}
		priv.Precompute()
		k.RSA = priv
	case tag == algo.ECDSA256 || tag == algo.ECDSA384 || tag == algo.ECDSA521:
		cname, err := r.Str()
		if err != nil {
			return nil, fmt.Errorf("wire: read ECDSA curve name: %w", err)
		}
		curve, ok := curveNames[cname]
		if !ok {
			return nil, fmt.Errorf("wire: unknown ECDSA curve %q", cname)
		}
		point, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("wire: read ECDSA point: %w", err)
		}
		x, y := elliptic.Unmarshal(curve, point)
		if x == nil {
			return nil, fmt.Errorf("wire: malformed ECDSA point for curve %q", cname)
		}
		d, err := r.MPInt()
		if err != nil {
			return nil, fmt.Errorf("wire: read ECDSA private scalar: %w", err)
		}
		k.ECDSA = &ecdsa.PrivateKey{PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y}, D: d}
	case tag == algo.ED25519:
		pub, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("wire: read Ed25519 public key: %w", err)
		}
		expanded, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("wire: read Ed25519 private key: %w", err)
		}
		if len(expanded) != 64 {
			return nil, fmt.Errorf("wire: Ed25519 private key has length %d, want 64", len(expanded))
		}
		k.Ed25519Pub = append([]byte(nil), pub...)
		k.Ed25519Priv = append([]byte(nil), expanded[:32]...)
	case algo.IsOQS(tag):
		pub, e1 := r.String()
		sec, e2 := r.String()
		if err := firstErr(e1, e2); err != nil {
			return nil, fmt.Errorf("wire: read post-quantum private components: %w", err)
		}
		scheme, _ := algo.OQSScheme(tag)
		k.OQS = &key.OQS{Scheme: scheme, Public: append([]byte(nil), pub...), Secret: append([]byte(nil), sec...)}
		return k, nil
	case algo.IsHybrid(tag):
		inner, err := ParsePrivateKey(r, classicalHalf(tag), typeC)
		if err != nil {
			return nil, err
		}
		*k = *inner
		k.Tag, k.TypeC = tag, typeC
		pub, e1 := r.String()
		sec, e2 := r.String()
		if err := firstErr(e1, e2); err != nil {
			return nil, fmt.Errorf("wire: read hybrid post-quantum private components: %w", err)
		}
		scheme, _ := algo.OQSScheme(tag)
		k.OQS = &key.OQS{Scheme: scheme, Public: append([]byte(nil), pub...), Secret: append([]byte(nil), sec...)}
		return k, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTag, tag)
	}

	return k, nil
}
