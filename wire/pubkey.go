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

// ErrUnsupportedTag is returned when a blob codec is asked to handle an
// algorithm tag it has no encoding for.
var ErrUnsupportedTag = fmt.Errorf("wire: unsupported algorithm tag")

var curveNames = map[string]elliptic.Curve{
	"nistp256": elliptic.P256(),
	"nistp384": elliptic.P384(),
	"nistp521": elliptic.P521(),
}

func curveName(tag algo.Tag) (string, elliptic.Curve, error) {
	switch tag {
	case algo.ECDSA256, algo.ECDSA256Cert, algo.ECDSA256SK, algo.ECDSA256SKCert,
		algo.HybridECDSA256Dilithium2:
		return "nistp256", elliptic.P256(), nil
	case algo.ECDSA384, algo.ECDSA384Cert, algo.HybridECDSA384Dilithium3:
		return "nistp384", elliptic.P384(), nil
	case algo.ECDSA521, algo.ECDSA521Cert, algo.HybridECDSA521Dilithium5:
		return "nistp521", elliptic.P521(), nil
	default:
		return "", nil, fmt.Errorf("%w: %d is not an ECDSA tag", ErrUnsupportedTag, tag)
	}
}

// MarshalPublicKey encodes k's public-key blob per spec §4.2: a leading
// algorithm-identifier string followed by one or more algorithm-specific
// fields. Certificate-tagged keys are encoded as their already-serialized
// Cert buffer, unchanged.
func MarshalPublicKey(k *key.Key) ([]byte, error) {
	if k == nil {
		return nil, key.ErrNilKey
	}
	if algo.IsCert(k.Tag) {
		if len(k.Cert) == 0 {
			return nil, fmt.Errorf("wire: cert-tagged key has no attached certificate blob")
		}
		return append([]byte(nil), k.Cert...), nil
	}

	name, ok := algo.NameOf(k.Tag)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTag, k.Tag)
	}

	w := NewWriter()
	defer w.Release()
	w.Str(name)

	if err := writePublicBody(w, k); err != nil {
		return nil, err
	}
	return append([]byte(nil), w.Bytes()...), nil
}

// writePublicBody writes every field after the leading algorithm-identifier
// string for k's public-key blob.
func writePublicBody(w *Writer, k *key.Key) error {
	switch {
	case k.DSA != nil:
		w.MPInt(k.DSA.P).MPInt(k.DSA.Q).MPInt(k.DSA.G).MPInt(k.DSA.Y)
	case k.RSA != nil:
		w.MPInt(big.NewInt(int64(k.RSA.E))).MPInt(k.RSA.N)
	case k.ECDSA != nil:
		cname, curve, err := curveName(k.Tag)
		if err != nil {
			return err
		}
		w.Str(cname).String(elliptic.Marshal(curve, k.ECDSA.X, k.ECDSA.Y))
	case len(k.Ed25519Pub) > 0:
		w.String(k.Ed25519Pub)
	case k.OQS != nil && len(k.OQS.Public) > 0 && !algo.IsHybrid(k.Tag):
		w.String(k.OQS.Public)
	default:
		return fmt.Errorf("wire: key of tag %d has no public material to encode", k.Tag)
	}

	if algo.IsHybrid(k.Tag) {
		if k.OQS == nil || len(k.OQS.Public) == 0 {
			return fmt.Errorf("wire: hybrid key of tag %d is missing its post-quantum public component", k.Tag)
		}
		w.String(k.OQS.Public)
	}

	if k.SKApplication != "" {
		w.Str(k.SKApplication)
	}
	return nil
}

// PeekAlgorithmName reads only the leading algorithm-identifier string from
// a public-key or certificate blob, without decoding the rest, so a caller
// can pick ParsePublicKey or ParseCertificate before committing to either.
// Returns "" if blob is too short to contain a length-prefixed string.
func PeekAlgorithmName(blob []byte) string {
	name, err := NewReader(blob).Str()
	if err != nil {
		return ""
	}
	return name
}

// ParsePublicKey decodes a public-key blob into a Key carrying only public
// material. Certificate blobs should be parsed with ParseCertificate
// instead; ParsePublicKey rejects a blob whose leading identifier names a
// certificate tag.
func ParsePublicKey(blob []byte) (*key.Key, error) {
	r := NewReader(blob)
	name, err := r.Str()
	if err != nil {
		return nil, fmt.Errorf("wire: read public key algorithm name: %w", err)
	}
	tag := algo.TagOf(name)
	if tag == algo.Unknown {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTag, name)
	}
	if algo.IsCert(tag) {
		return nil, fmt.Errorf("wire: %q is a certificate type, use ParseCertificate", name)
	}
	k, err := readPublicBody(r, tag, name)
	if err != nil {
		return nil, err
	}
	if !r.Done() {
		return nil, fmt.Errorf("wire: %d trailing bytes after public key blob", r.Remaining())
	}
	return k, nil
}

func readPublicBody(r *Reader, tag algo.Tag, name string) (*key.Key, error) {
	k := &key.Key{Tag: tag, TypeC: name, Flags: key.Public}

	switch {
	case tag == algo.DSS:
		p, err1 := r.MPInt()
		q, err2 := r.MPInt()
		g, err3 := r.MPInt()
		y, err4 := r.MPInt()
		if err := firstErr(err1, err2, err3, err4); err != nil {
			return nil, fmt.Errorf("wire: read DSS public components: %w", err)
		}
		k.DSA = &dsa.PrivateKey{PublicKey: dsa.PublicKey{
			Parameters: dsa.Parameters{P: p, Q: q, G: g}, Y: y,
		}}
	case tag == algo.RSA:
		e, err1 := r.MPInt()
		n, err2 := r.MPInt()
		if err := firstErr(err1, err2); err != nil {
			return nil, fmt.Errorf("wire: read RSA public components: %w", err)
		}
		k.RSA = &rsa.PrivateKey{PublicKey: rsa.PublicKey{N: n, E: int(e.Int64())}}
	case tag == algo.ECDSA256 || tag == algo.ECDSA384 || tag == algo.ECDSA521 ||
		tag == algo.ECDSA256SK:
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
		k.ECDSA = &ecdsa.PrivateKey{PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y}}
	case tag == algo.ED25519 || tag == algo.ED25519SK:
		pub, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("wire: read Ed25519 public key: %w", err)
		}
		if len(pub) != 32 {
			return nil, fmt.Errorf("wire: Ed25519 public key has length %d, want 32", len(pub))
		}
		k.Ed25519Pub = append([]byte(nil), pub...)
	case algo.IsOQS(tag):
		pub, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("wire: read post-quantum public key: %w", err)
		}
		scheme, _ := algo.OQSScheme(tag)
		k.OQS = &key.OQS{Scheme: scheme, Public: append([]byte(nil), pub...)}
	case algo.IsHybrid(tag):
		inner, err := readPublicBody(r, classicalHalf(tag), name)
		if err != nil {
			return nil, err
		}
		*k = *inner
		k.Tag, k.TypeC = tag, name
		pqPub, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("wire: read hybrid post-quantum public key: %w", err)
		}
		scheme, _ := algo.OQSScheme(tag)
		k.OQS = &key.OQS{Scheme: scheme, Public: append([]byte(nil), pqPub...)}
		return k, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTag, tag)
	}

	if tag == algo.ECDSA256SK || tag == algo.ED25519SK {
		app, err := r.Str()
		if err != nil {
			return nil, fmt.Errorf("wire: read security-key application: %w", err)
		}
		k.SKApplication = app
	}
	return k, nil
}

// classicalHalf returns the plain ECDSA or RSA tag backing a hybrid tag's
// classical component, so its public/private body can be decoded with the
// same routines as the non-hybrid algorithm.
func classicalHalf(tag algo.Tag) algo.Tag {
	switch tag {
	case algo.HybridRSA3072Dilithium2:
		return algo.RSA
	case algo.HybridECDSA256Dilithium2:
		return algo.ECDSA256
	case algo.HybridECDSA384Dilithium3:
		return algo.ECDSA384
	case algo.HybridECDSA521Dilithium5:
		return algo.ECDSA521
	default:
		return algo.Unknown
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
