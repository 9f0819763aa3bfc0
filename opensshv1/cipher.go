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

package opensshv1

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// cipherMode names the block-cipher chaining mode a ciphername implies.
type cipherMode uint8

const (
	modeCBC cipherMode = iota
	modeCTR
)

// cipherSpec describes the key/IV lengths and chaining mode a
// "none"-or-not ciphername from the container header implies.
type cipherSpec struct {
	keyLen int
	ivLen  int
	mode   cipherMode
}

// ciphers enumerates every ciphername this container format understands,
// built exclusively on stdlib crypto/aes + crypto/cipher (spec's domain
// stack table: "OpenSSH v1 symmetric ciphers"; see DESIGN.md for why no
// ecosystem cipher package improves on stdlib AES here).
var ciphers = map[string]cipherSpec{
	"none":       {},
	"aes128-cbc": {keyLen: 16, ivLen: aes.BlockSize, mode: modeCBC},
	"aes192-cbc": {keyLen: 24, ivLen: aes.BlockSize, mode: modeCBC},
	"aes256-cbc": {keyLen: 32, ivLen: aes.BlockSize, mode: modeCBC},
	"aes128-ctr": {keyLen: 16, ivLen: aes.BlockSize, mode: modeCTR},
	"aes192-ctr": {keyLen: 24, ivLen: aes.BlockSize, mode: modeCTR},
	"aes256-ctr": {keyLen: 32, ivLen: aes.BlockSize, mode: modeCTR},
}

func lookupCipher(name string) (cipherSpec, bool) {
	spec, ok := ciphers[name]
	return spec, ok
}

// newBlockCipher builds the cipher for name over keyIV (the concatenated
// key||IV the KDF produced). cipher.NewCBCDecrypter/Encrypter don't share a
// cipher.Stream interface with CTR, so both chaining modes (and "none") are
// wrapped behind the same blockCipher abstraction; see blockCipher below.
func newBlockCipher(name string, keyIV []byte) (blockCipher, error) {
	spec, ok := lookupCipher(name)
	if !ok {
		return nil, fmt.Errorf("opensshv1: unknown cipher %q", name)
	}
	if name == "none" {
		return passthrough{}, nil
	}
	if len(keyIV) < spec.keyLen+spec.ivLen {
		return nil, fmt.Errorf("opensshv1: derived key material too short for cipher %q", name)
	}
	key := keyIV[:spec.keyLen]
	iv := keyIV[spec.keyLen : spec.keyLen+spec.ivLen]

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("opensshv1: build AES cipher: %w", err)
	}
	switch spec.mode {
	case modeCBC:
		return &cbcCipher{block: block, iv: append([]byte(nil), iv...)}, nil
	case modeCTR:
		return ctrCipher{cipher.NewCTR(block, iv)}, nil
	default:
		return nil, fmt.Errorf("opensshv1: unhandled cipher mode for %q", name)
	}
}

// blockCipher abstracts over "none", CBC, and CTR so the container parser
// and writer can decrypt/encrypt the private section uniformly.
type blockCipher interface {
	decrypt(dst, src []byte) error
	encrypt(dst, src []byte)
	blockSize() int
}

type passthrough struct{}

func (passthrough) decrypt(dst, src []byte) error { copy(dst, src); return nil }
func (passthrough) encrypt(dst, src []byte)        { copy(dst, src) }
func (passthrough) blockSize() int                 { return 8 }

type cbcCipher struct {
	block cipher.Block
	iv    []byte
}

func (c *cbcCipher) decrypt(dst, src []byte) error {
	if len(src)%c.block.BlockSize() != 0 {
		return fmt.Errorf("opensshv1: ciphertext not a multiple of the block size")
	}
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(dst, src)
	return nil
}

func (c *cbcCipher) encrypt(dst, src []byte) {
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(dst, src)
}

func (c *cbcCipher) blockSize() int { return c.block.BlockSize() }

type ctrCipher struct{ stream cipher.Stream }

func (c ctrCipher) decrypt(dst, src []byte) error { c.stream.XORKeyStream(dst, src); return nil }
func (c ctrCipher) encrypt(dst, src []byte)        { c.stream.XORKeyStream(dst, src) }
func (c ctrCipher) blockSize() int                 { return aes.BlockSize }
