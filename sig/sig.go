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

// Package sig is the Signature Engine (spec §4.6): it dispatches signing and
// verification to the stdlib crypto packages (and, for post-quantum and
// hybrid algorithms, to github.com/cloudflare/circl), constructs the
// session-id-bound input for SSH authentication signatures, and synthesizes
// the security-key pre-image.
package sig

import (
	"crypto"
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/key"
	"github.com/deep-rent/sshpki/session"
	"github.com/deep-rent/sshpki/wire"
)

// Sentinel errors distinguishing the error taxonomy classes from spec §7.
var (
	ErrInput     = errors.New("sig: input error")
	ErrCompat    = errors.New("sig: compatibility error")
	ErrCrypto    = errors.New("sig: crypto error")
	ErrVerify    = errors.New("sig: signature verification failed")
	ErrNoSession = errors.New("sig: session id unavailable")
)

// Signature is a value owning the algorithm tag, digest, and signature
// bytes produced by Sign or parsed from a wire signature blob (spec §3
// "Signature"). Destruction (Clean) zeroizes Raw and PQ.
type Signature struct {
	Tag   algo.Tag
	TypeC string
	Hash  algo.Digest

	Raw []byte // classical signature bytes; nil for a pure-PQ Signature.
	PQ  []byte // post-quantum signature bytes; set iff Tag is pure-PQ or hybrid.

	SKFlags   byte
	SKCounter uint32
}

// Clean zeroizes Raw and PQ. Safe to call on a nil Signature.
func (s *Signature) Clean() {
	if s == nil {
		return
	}
	zero(s.Raw)
	zero(s.PQ)
	*s = Signature{}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// compatibleDigest reports whether digest d is a permissible hash choice for
// a key of tag, per the per-algorithm digest table in spec §4.1.
func compatibleDigest(tag algo.Tag, d algo.Digest) bool {
	switch algo.PlainOf(tag) {
	case algo.RSA:
		return d == algo.SHA1 || d == algo.SHA256 || d == algo.SHA512 || d == algo.Auto
	case algo.DSS:
		return d == algo.SHA1 || d == algo.Auto
	case algo.ECDSA256, algo.ECDSA256SK:
		return d == algo.SHA256 || d == algo.Auto
	case algo.ECDSA384:
		return d == algo.SHA384 || d == algo.Auto
	case algo.ECDSA521:
		return d == algo.SHA512 || d == algo.Auto
	case algo.ED25519, algo.ED25519SK:
		return d == algo.Auto
	default:
		if algo.IsOQS(tag) {
			return d == algo.Auto
		}
		if algo.IsHybrid(tag) {
			// A hybrid's classical half needs the registry's own digest
			// (SHA256/384/512, spec §4.1), not Auto — only the PQ half
			// embeds its own hashing.
			name, ok := algo.NameOf(tag)
			if !ok {
				return false
			}
			want, ok := algo.HashOf(name)
			return ok && d == want
		}
		return false
	}
}

func checkCompat(tag algo.Tag, d algo.Digest, fips bool) error {
	if fips && d == algo.SHA1 {
		return fmt.Errorf("%w: SHA1 is not permitted in FIPS mode", ErrCompat)
	}
	if !compatibleDigest(tag, d) {
		return fmt.Errorf("%w: digest %s is not valid for key type %d", ErrCompat, d, tag)
	}
	return nil
}

func hashInput(d algo.Digest, input []byte) ([]byte, crypto.Hash, error) {
	switch d {
	case algo.SHA1:
		h := sha1.Sum(input)
		return h[:], crypto.SHA1, nil
	case algo.SHA256:
		h := sha256.Sum256(input)
		return h[:], crypto.SHA256, nil
	case algo.SHA384:
		h := sha512.Sum384(input)
		return h[:], crypto.SHA384, nil
	case algo.SHA512:
		h := sha512.Sum512(input)
		return h[:], crypto.SHA512, nil
	default:
		return nil, 0, fmt.Errorf("%w: digest %s has no hash.Hash equivalent", ErrInput, d)
	}
}

// Do signs input with priv at the given digest (spec §4.6 "pki_do_sign").
// Ed25519 and pure-PQ algorithms sign input directly; every other classical
// algorithm signs a digest of input, chosen by digest.
func Do(priv *key.Key, input []byte, digest algo.Digest, fips bool) (*Signature, error) {
	if priv == nil {
		return nil, key.ErrNilKey
	}
	if !priv.IsPrivate() {
		return nil, fmt.Errorf("%w: key has no private material", ErrInput)
	}
	if err := checkCompat(priv.Tag, digest, fips); err != nil {
		return nil, err
	}

	name, ok := algo.SignatureName(priv.Tag, digest)
	if !ok {
		return nil, fmt.Errorf("%w: no signature-algorithm name for tag %d at digest %s", ErrInput, priv.Tag, digest)
	}

	out := &Signature{Tag: priv.Tag, TypeC: name, Hash: digest}

	classical := algo.IsHybrid(priv.Tag) || !algo.IsOQS(priv.Tag)
	if classical {
		raw, err := signClassical(priv, input, digest)
		if err != nil {
			return nil, err
		}
		out.Raw = raw
	}
	if algo.IsOQS(priv.Tag) || algo.IsHybrid(priv.Tag) {
		pq, err := signOQS(priv, input)
		if err != nil {
			return nil, err
		}
		out.PQ = pq
	}
	return out, nil
}

func signClassical(priv *key.Key, input []byte, digest algo.Digest) ([]byte, error) {
	switch {
	case priv.DSA != nil:
		hashed, _, err := hashInput(digest, input)
		if err != nil {
			return nil, err
		}
		r, s, err := dsa.Sign(rand.Reader, priv.DSA, hashed)
		if err != nil {
			return nil, fmt.Errorf("%w: DSA sign: %v", ErrCrypto, err)
		}
		return fixedWidth(r, s, (priv.DSA.Q.BitLen()+7)/8), nil
	case priv.RSA != nil:
		hashed, ch, err := hashInput(digest, input)
		if err != nil {
			return nil, err
		}
		raw, err := rsa.SignPKCS1v15(rand.Reader, priv.RSA, ch, hashed)
		if err != nil {
			return nil, fmt.Errorf("%w: RSA sign: %v", ErrCrypto, err)
		}
		return raw, nil
	case priv.ECDSA != nil:
		hashed, _, err := hashInput(digest, input)
		if err != nil {
			return nil, err
		}
		r, s, err := ecdsa.Sign(rand.Reader, priv.ECDSA, hashed)
		if err != nil {
			return nil, fmt.Errorf("%w: ECDSA sign: %v", ErrCrypto, err)
		}
		n := (priv.ECDSA.Curve.Params().BitSize + 7) / 8
		return fixedWidth(r, s, n), nil
	case len(priv.Ed25519Pub) == 32 && len(priv.Ed25519Priv) == 32:
		expanded := ed25519.NewKeyFromSeed(priv.Ed25519Priv)
		return ed25519.Sign(expanded, input), nil
	default:
		return nil, fmt.Errorf("%w: key of tag %d has no classical material to sign with", ErrInput, priv.Tag)
	}
}

func fixedWidth(r, s *big.Int, n int) []byte {
	out := make([]byte, 2*n)
	r.FillBytes(out[:n])
	s.FillBytes(out[n:])
	return out
}

// SignAuth builds and signs the SSH authentication signature input (spec
// §4.6 "ssh_pki_do_sign"): string(session id) ∥ bytes(userBuf), then
// serializes the result to a wire signature blob via the wire package.
func SignAuth(sess session.Session, userBuf []byte, priv *key.Key, digest algo.Digest, fips bool) ([]byte, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	sid := sess.SessionID()
	if len(sid) == 0 {
		return nil, ErrNoSession
	}
	w := wire.NewWriter()
	defer w.Release()
	w.String(sid).Raw(userBuf)
	input := append([]byte(nil), w.Bytes()...)

	s, err := Do(priv, input, digest, fips)
	if err != nil {
		return nil, err
	}
	defer s.Clean()
	return marshalBlob(s)
}

// SignServerHostKey builds and signs the server host-signature variant
// (spec §4.6): the current exchange hash is used in place of the session
// id, packed as a bare byte run (not length-prefixed), per the asymmetry
// documented in spec §9 "Session-id binding disparity".
func SignServerHostKey(sess session.Session, priv *key.Key, digest algo.Digest, fips bool) ([]byte, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	hash := sess.ExchangeHash()
	if len(hash) == 0 {
		return nil, ErrNoSession
	}
	s, err := Do(priv, hash, digest, fips)
	if err != nil {
		return nil, err
	}
	defer s.Clean()
	return marshalBlob(s)
}

func marshalBlob(s *Signature) ([]byte, error) {
	if algo.IsOQS(s.Tag) {
		return append([]byte(nil), s.PQ...), nil
	}
	name := s.TypeC
	if algo.IsRSAHybrid(s.Tag) {
		name, _ = algo.SignatureName(algo.RSA, s.Hash)
	}
	classicalBlob := wire.MarshalSignatureBlob(name, s.Raw)
	if algo.IsHybrid(s.Tag) {
		return wire.MarshalHybridSignatureBlob(classicalBlob, s.PQ), nil
	}
	return classicalBlob, nil
}

// skPreimage synthesizes SHA256(application) ∥ u8 flags ∥ u32 counter ∥
// SHA256(input), the data a security-key authenticator actually signs
// (spec §4.6 "Security-key pre-image").
func skPreimage(application string, flags byte, counter uint32, input []byte) []byte {
	appHash := sha256.Sum256([]byte(application))
	msgHash := sha256.Sum256(input)
	w := wire.NewWriter()
	defer w.Release()
	w.Raw(appHash[:]).Byte(flags).Uint32(counter).Raw(msgHash[:])
	return append([]byte(nil), w.Bytes()...)
}

// SignSecurityKey signs the security-key pre-image for application, flags,
// and counter over input, using priv's classical material directly. The
// library itself never talks to an authenticator; this exists so tests (and
// any software-emulated authenticator) can produce a signature the Verify
// path below accepts (spec §8 S5).
func SignSecurityKey(priv *key.Key, application string, flags byte, counter uint32, input []byte, digest algo.Digest, fips bool) (*Signature, error) {
	pre := skPreimage(application, flags, counter, input)
	s, err := Do(priv, pre, digest, fips)
	if err != nil {
		return nil, err
	}
	s.SKFlags, s.SKCounter = flags, counter
	return s, nil
}

// Verify implements spec §4.6 "ssh_pki_signature_verify": it checks the
// signature's algorithm against pub's type (allowing the RSA/RSA-hybrid
// exception), checks hash compatibility, and dispatches to the classical
// and/or post-quantum verification routine(s) pub's type requires.
//
// The Session parameter is accepted for interface symmetry with SignAuth
// but is not consulted: verification never depends on session state, only
// on the Signature's own recorded algorithm and digest.
func Verify(_ session.Session, s *Signature, pub *key.Key, input []byte, fips bool) error {
	if s == nil || pub == nil {
		return key.ErrNilKey
	}
	if !pub.IsPublic() {
		return fmt.Errorf("%w: key has no public material", ErrInput)
	}

	plain := algo.PlainOf(pub.Tag)
	if plain != s.Tag && !(s.Tag == algo.RSA && algo.IsRSAHybrid(pub.Tag)) {
		return fmt.Errorf("%w: signature algorithm %d does not match key algorithm %d", ErrCompat, s.Tag, pub.Tag)
	}
	if err := checkCompat(pub.Tag, s.Hash, fips); err != nil {
		return err
	}

	material := pub
	if pub.CertInner != nil {
		material = pub.CertInner
	}

	switch {
	case material.SKApplication != "":
		pre := skPreimage(material.SKApplication, s.SKFlags, s.SKCounter, input)
		return verifyClassical(material, pre, s.Raw, s.Hash)
	case algo.IsOQS(material.Tag):
		return verifyOQS(material, input, s.PQ)
	case algo.IsHybrid(material.Tag):
		if err := verifyClassical(material, input, s.Raw, s.Hash); err != nil {
			return err
		}
		return verifyOQS(material, input, s.PQ)
	default:
		return verifyClassical(material, input, s.Raw, s.Hash)
	}
}

func verifyClassical(pub *key.Key, input, rawSig []byte, digest algo.Digest) error {
	switch {
	case pub.DSA != nil:
		n := (pub.DSA.Q.BitLen() + 7) / 8
		if len(rawSig) != 2*n {
			return fmt.Errorf("%w: DSA signature has wrong length", ErrVerify)
		}
		hashed, _, err := hashInput(digest, input)
		if err != nil {
			return err
		}
		r := new(big.Int).SetBytes(rawSig[:n])
		s := new(big.Int).SetBytes(rawSig[n:])
		if !dsa.Verify(&pub.DSA.PublicKey, hashed, r, s) {
			return ErrVerify
		}
		return nil
	case pub.RSA != nil:
		hashed, ch, err := hashInput(digest, input)
		if err != nil {
			return err
		}
		if err := rsa.VerifyPKCS1v15(&pub.RSA.PublicKey, ch, hashed, rawSig); err != nil {
			return ErrVerify
		}
		return nil
	case pub.ECDSA != nil:
		n := (pub.ECDSA.Curve.Params().BitSize + 7) / 8
		if len(rawSig) != 2*n {
			return fmt.Errorf("%w: ECDSA signature has wrong length", ErrVerify)
		}
		hashed, _, err := hashInput(digest, input)
		if err != nil {
			return err
		}
		r := new(big.Int).SetBytes(rawSig[:n])
		s := new(big.Int).SetBytes(rawSig[n:])
		if !ecdsa.Verify(&pub.ECDSA.PublicKey, hashed, r, s) {
			return ErrVerify
		}
		return nil
	case len(pub.Ed25519Pub) == 32:
		if !ed25519.Verify(pub.Ed25519Pub, input, rawSig) {
			return ErrVerify
		}
		return nil
	default:
		return fmt.Errorf("%w: key of tag %d has no classical material to verify with", ErrInput, pub.Tag)
	}
}

// constantTimeEqual compares a freshly computed digest without a timing
// side-channel. It is unexported and nothing in this module calls it; the
// engine itself does not need it since crypto/{dsa,ecdsa,rsa,ed25519}
// already compare in constant time internally.
func constantTimeEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}
