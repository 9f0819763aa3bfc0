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
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/key"
	"github.com/deep-rent/sshpki/sig"
)

// DefaultRSABits is the key size Generate uses for algo.RSA when parameter
// is 0, matching OpenSSH's own ssh-keygen default.
const DefaultRSABits = 3072

// Generate creates a fresh key pair for tag (spec §4.7 "ssh_pki_generate").
// parameter selects the modulus size for RSA/RSA-hybrid tags (0 uses
// DefaultRSABits) and is ignored for every other algorithm, whose
// parameters are fixed by the registry.
func Generate(tag algo.Tag, parameter int) (*key.Key, error) {
	switch {
	case tag == algo.DSS:
		return generateDSA()
	case tag == algo.RSA:
		return generateRSA(parameter)
	case tag == algo.ECDSA256:
		return generateECDSA(tag, elliptic.P256())
	case tag == algo.ECDSA384:
		return generateECDSA(tag, elliptic.P384())
	case tag == algo.ECDSA521:
		return generateECDSA(tag, elliptic.P521())
	case tag == algo.ED25519:
		return generateEd25519()
	case algo.IsOQS(tag):
		return generatePureOQS(tag)
	case algo.IsRSAHybrid(tag):
		return generateHybrid(tag, generateRSA, parameter)
	case algo.IsECDSAHybrid(tag):
		return generateHybrid(tag, nil, parameter)
	default:
		return nil, fmt.Errorf("%w: tag %d is not generatable (security-key and certificate variants are created by attaching, not generating)", ErrInput, tag)
	}
}

func nameFor(tag algo.Tag) string {
	name, _ := algo.NameOf(tag)
	return name
}

func generateDSA() (*key.Key, error) {
	priv := &dsa.PrivateKey{}
	if err := dsa.GenerateParameters(&priv.Parameters, rand.Reader, dsa.L1024N160); err != nil {
		return nil, fmt.Errorf("%w: generate DSA parameters: %v", ErrInput, err)
	}
	if err := dsa.GenerateKey(priv, rand.Reader); err != nil {
		return nil, fmt.Errorf("%w: generate DSA key: %v", ErrInput, err)
	}
	return &key.Key{Tag: algo.DSS, TypeC: nameFor(algo.DSS), Flags: key.Public | key.Private, DSA: priv}, nil
}

func generateRSA(bits int) (*key.Key, error) {
	if bits == 0 {
		bits = DefaultRSABits
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: generate RSA key: %v", ErrInput, err)
	}
	return &key.Key{Tag: algo.RSA, TypeC: nameFor(algo.RSA), Flags: key.Public | key.Private, RSA: priv}, nil
}

func generateECDSA(tag algo.Tag, curve elliptic.Curve) (*key.Key, error) {
	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate ECDSA key: %v", ErrInput, err)
	}
	return &key.Key{Tag: tag, TypeC: nameFor(tag), Flags: key.Public | key.Private, ECDSA: priv}, nil
}

func generateEd25519() (*key.Key, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate Ed25519 key: %v", ErrInput, err)
	}
	return &key.Key{
		Tag: algo.ED25519, TypeC: nameFor(algo.ED25519), Flags: key.Public | key.Private,
		Ed25519Pub: pub, Ed25519Priv: priv[:32],
	}, nil
}

func generatePureOQS(tag algo.Tag) (*key.Key, error) {
	oqs, err := sig.GenerateOQSKey(tag)
	if err != nil {
		return nil, err
	}
	return &key.Key{Tag: tag, TypeC: nameFor(tag), Flags: key.Public | key.Private, OQS: oqs}, nil
}

// generateHybrid builds a hybrid key pair by generating the classical half
// (RSA via classicalGen, or the ECDSA curve each hybrid tag pairs with) and a
// post-quantum half via sig.GenerateOQSKey, then merging both into one Key
// (invariant I5: a hybrid Key carries both a classical field and OQS).
func generateHybrid(tag algo.Tag, classicalGen func(int) (*key.Key, error), parameter int) (*key.Key, error) {
	var base *key.Key
	var err error
	switch {
	case algo.IsRSAHybrid(tag):
		base, err = classicalGen(parameter)
	case tag == algo.HybridECDSA256Dilithium2:
		base, err = generateECDSA(tag, elliptic.P256())
	case tag == algo.HybridECDSA384Dilithium3:
		base, err = generateECDSA(tag, elliptic.P384())
	case tag == algo.HybridECDSA521Dilithium5:
		base, err = generateECDSA(tag, elliptic.P521())
	default:
		return nil, fmt.Errorf("%w: tag %d is not a recognized hybrid", ErrInput, tag)
	}
	if err != nil {
		return nil, err
	}

	oqs, err := sig.GenerateOQSKey(tag)
	if err != nil {
		return nil, err
	}
	base.Tag = tag
	base.TypeC = nameFor(tag)
	base.OQS = oqs
	return base, nil
}
