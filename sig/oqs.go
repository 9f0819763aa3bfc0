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

package sig

import (
	"fmt"

	"github.com/cloudflare/circl/sign/schemes"

	"github.com/deep-rent/sshpki/algo"
	"github.com/deep-rent/sshpki/key"
)

// signOQS signs input with priv's post-quantum secret material, using the
// circl scheme named by the algorithm registry for priv.Tag (spec's domain
// stack: "post-quantum signatures" -> github.com/cloudflare/circl).
func signOQS(priv *key.Key, input []byte) ([]byte, error) {
	if priv.OQS == nil || len(priv.OQS.Secret) == 0 {
		return nil, fmt.Errorf("%w: key of tag %d has no post-quantum secret material", ErrInput, priv.Tag)
	}
	scheme := schemes.ByName(priv.OQS.Scheme)
	if scheme == nil {
		return nil, fmt.Errorf("%w: unknown post-quantum scheme %q", ErrInput, priv.OQS.Scheme)
	}
	sk, err := scheme.UnmarshalBinaryPrivateKey(priv.OQS.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: unmarshal post-quantum secret key: %v", ErrCrypto, err)
	}
	return scheme.Sign(sk, input, nil), nil
}

// verifyOQS verifies sig against input using pub's post-quantum public
// material.
func verifyOQS(pub *key.Key, input, sig []byte) error {
	if pub.OQS == nil || len(pub.OQS.Public) == 0 {
		return fmt.Errorf("%w: key of tag %d has no post-quantum public material", ErrInput, pub.Tag)
	}
	scheme := schemes.ByName(pub.OQS.Scheme)
	if scheme == nil {
		return fmt.Errorf("%w: unknown post-quantum scheme %q", ErrInput, pub.OQS.Scheme)
	}
	pk, err := scheme.UnmarshalBinaryPublicKey(pub.OQS.Public)
	if err != nil {
		return fmt.Errorf("%w: unmarshal post-quantum public key: %v", ErrCrypto, err)
	}
	if !scheme.Verify(pk, input, sig, nil) {
		return ErrVerify
	}
	return nil
}

// generateOQS creates a new key pair for the named circl scheme and returns
// its raw public and secret bytes for key.OQS.
func generateOQS(schemeName string) (pub, sec []byte, err error) {
	scheme := schemes.ByName(schemeName)
	if scheme == nil {
		return nil, nil, fmt.Errorf("%w: unknown post-quantum scheme %q", ErrInput, schemeName)
	}
	pk, sk, err := scheme.GenerateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generate post-quantum key pair: %v", ErrCrypto, err)
	}
	pubBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: marshal post-quantum public key: %v", ErrCrypto, err)
	}
	secBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: marshal post-quantum secret key: %v", ErrCrypto, err)
	}
	return pubBytes, secBytes, nil
}

// GenerateOQSKey is the exported entry point pki.Generate uses for pure-PQ
// and hybrid tags; it is kept in this package since it is the only place
// that touches algo.OQSScheme and the circl schemes registry together.
func GenerateOQSKey(tag algo.Tag) (*key.OQS, error) {
	scheme, ok := algo.OQSScheme(tag)
	if !ok {
		return nil, fmt.Errorf("%w: tag %d has no post-quantum scheme", ErrInput, tag)
	}
	pub, sec, err := generateOQS(scheme)
	if err != nil {
		return nil, err
	}
	return &key.OQS{Scheme: scheme, Public: pub, Secret: sec}, nil
}
