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
	"log/slog"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/key"
	"github.com/deep-rent/sshpki/session"
	"github.com/deep-rent/sshpki/sig"
	"github.com/deep-rent/sshpki/wire"
)

// Sign produces a detached signature blob over input with priv, at the
// digest TypeToHash selects for priv.Tag under sess (spec §4.7, thin
// wrapper over the Signature Engine's pki_do_sign). fips enforces the
// SHA-1 restriction from spec §4.6. priv must not be a security-key type:
// this module never talks to an authenticator, so security-key signatures
// are produced with sig.SignSecurityKey directly by a caller that emulates
// one (spec §8 S5).
func Sign(sess session.Session, priv *key.Key, input []byte, fips bool) ([]byte, error) {
	if priv == nil {
		return nil, key.ErrNilKey
	}
	if priv.SKApplication != "" {
		return nil, fmt.Errorf("%w: security-key signing requires an authenticator, use sig.SignSecurityKey", ErrInput)
	}
	digest, err := TypeToHash(sess, priv.Tag)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompat, err)
	}
	s, err := sig.Do(priv, input, digest, fips)
	if err != nil {
		return nil, err
	}
	defer s.Clean()
	return marshalSigBlob(s)
}

// marshalSigBlob mirrors the Signature Engine's own (unexported) blob
// framing: pure-PQ signatures are the raw PQ bytes, hybrids nest a
// classical blob alongside the PQ bytes, and everything else is a plain
// classical blob.
func marshalSigBlob(s *sig.Signature) ([]byte, error) {
	switch {
	case algo.IsOQS(s.Tag):
		return append([]byte(nil), s.PQ...), nil
	case algo.IsHybrid(s.Tag):
		name := s.TypeC
		if algo.IsRSAHybrid(s.Tag) {
			// The classical half of an RSA hybrid keeps its RSA signature
			// identifier (e.g. "rsa-sha2-256"), not the hybrid's name.
			name, _ = algo.SignatureName(algo.RSA, s.Hash)
		}
		classical := wire.MarshalSignatureBlob(name, s.Raw)
		return wire.MarshalHybridSignatureBlob(classical, s.PQ), nil
	default:
		return wire.MarshalSignatureBlob(s.TypeC, s.Raw), nil
	}
}

// VerifyBlob parses a detached signature blob and verifies it against
// input with pub (spec §4.7, thin wrapper over ssh_pki_signature_verify).
func VerifyBlob(sess session.Session, pub *key.Key, blob, input []byte, fips bool) error {
	s, err := parseSigBlob(pub, blob)
	if err != nil {
		return err
	}
	return sig.Verify(sess, s, pub, input, fips)
}

// parseSigBlob reconstructs a sig.Signature from a wire blob, choosing the
// framing (plain, security-key, hybrid, or bare post-quantum) the same way
// sig.Verify chooses its verification routine: by inspecting the embedded
// key material (following CertInner for certificate-tagged keys), not the
// blob's own framing, since a pure-PQ blob carries no distinguishing header.
func parseSigBlob(pub *key.Key, blob []byte) (*sig.Signature, error) {
	if pub == nil {
		return nil, key.ErrNilKey
	}
	material := pub
	if pub.CertInner != nil {
		material = pub.CertInner
	}

	switch {
	case material.SKApplication != "":
		name, raw, flags, counter, err := wire.ParseSKSignatureBlob(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		return &sig.Signature{
			Tag: algo.SignatureTagOf(name), TypeC: name, Hash: hashOrAuto(name),
			Raw: raw, SKFlags: flags, SKCounter: counter,
		}, nil
	case algo.IsOQS(material.Tag):
		return &sig.Signature{
			Tag: material.Tag, TypeC: mustName(material.Tag), Hash: algo.Auto,
			PQ: append([]byte(nil), blob...),
		}, nil
	case algo.IsHybrid(material.Tag):
		classicalBlob, pq, err := wire.ParseHybridSignatureBlob(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		_, raw, err := wire.ParseSignatureBlob(classicalBlob)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		name := mustName(material.Tag)
		return &sig.Signature{Tag: material.Tag, TypeC: name, Hash: hashOrAuto(name), Raw: raw, PQ: pq}, nil
	default:
		name, raw, err := wire.ParseSignatureBlob(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		return &sig.Signature{Tag: algo.SignatureTagOf(name), TypeC: name, Hash: hashOrAuto(name), Raw: raw}, nil
	}
}

func hashOrAuto(name string) algo.Digest {
	d, ok := algo.HashOf(name)
	if !ok {
		slog.Default().Warn("unknown signature algorithm name, assuming auto digest", "name", name)
		return algo.Auto
	}
	return d
}
