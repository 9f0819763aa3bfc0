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

import "fmt"

// MarshalSignatureBlob encodes a classical signature blob: the
// signature-algorithm identifier string followed by the algorithm-specific
// raw signature bytes (DSS/ECDSA: r||s; RSA: modulus-length bytes;
// Ed25519: 64 bytes).
func MarshalSignatureBlob(sigName string, rawSig []byte) []byte {
	w := NewWriter()
	defer w.Release()
	w.Str(sigName).String(rawSig)
	return append([]byte(nil), w.Bytes()...)
}

// ParseSignatureBlob decodes a classical signature blob produced by
// MarshalSignatureBlob.
func ParseSignatureBlob(blob []byte) (sigName string, rawSig []byte, err error) {
	r := NewReader(blob)
	sigName, err = r.Str()
	if err != nil {
		return "", nil, fmt.Errorf("wire: read signature algorithm name: %w", err)
	}
	raw, err := r.String()
	if err != nil {
		return "", nil, fmt.Errorf("wire: read signature bytes: %w", err)
	}
	return sigName, append([]byte(nil), raw...), nil
}

// MarshalSKSignatureBlob encodes a security-key signature blob: the
// classical signature blob fields, followed by a single flags byte and a
// big-endian counter, both appended directly (not length-prefixed) as
// spec §4.2 describes.
func MarshalSKSignatureBlob(sigName string, rawSig []byte, flags byte, counter uint32) []byte {
	w := NewWriter()
	defer w.Release()
	w.Str(sigName).String(rawSig).Byte(flags).Uint32(counter)
	return append([]byte(nil), w.Bytes()...)
}

// ParseSKSignatureBlob decodes a security-key signature blob produced by
// MarshalSKSignatureBlob.
func ParseSKSignatureBlob(blob []byte) (sigName string, rawSig []byte, flags byte, counter uint32, err error) {
	r := NewReader(blob)
	sigName, err = r.Str()
	if err != nil {
		return "", nil, 0, 0, fmt.Errorf("wire: read signature algorithm name: %w", err)
	}
	raw, err := r.String()
	if err != nil {
		return "", nil, 0, 0, fmt.Errorf("wire: read signature bytes: %w", err)
	}
	flags, err = r.Byte()
	if err != nil {
		return "", nil, 0, 0, fmt.Errorf("wire: read security-key flags: %w", err)
	}
	counter, err = r.Uint32()
	if err != nil {
		return "", nil, 0, 0, fmt.Errorf("wire: read security-key counter: %w", err)
	}
	return sigName, append([]byte(nil), raw...), flags, counter, nil
}

// MarshalHybridSignatureBlob encodes a hybrid signature blob as
// u32 len_c | classical_blob | u32 len_pq | pq_sig, where classical_blob is
// itself a full classical signature blob (identifier + signature bytes).
func MarshalHybridSignatureBlob(classicalBlob, pqSig []byte) []byte {
	w := NewWriter()
	defer w.Release()
	w.String(classicalBlob).String(pqSig)
	return append([]byte(nil), w.Bytes()...)
}

// ParseHybridSignatureBlob decodes a hybrid signature blob produced by
// MarshalHybridSignatureBlob, returning the nested classical blob
// (still to be parsed with ParseSignatureBlob) and the raw post-quantum
// signature bytes.
func ParseHybridSignatureBlob(blob []byte) (classicalBlob, pqSig []byte, err error) {
	r := NewReader(blob)
	c, err := r.String()
	if err != nil {
		return nil, nil, fmt.Errorf("wire: read hybrid classical signature: %w", err)
	}
	pq, err := r.String()
	if err != nil {
		return nil, nil, fmt.Errorf("wire: read hybrid post-quantum signature: %w", err)
	}
	return append([]byte(nil), c...), append([]byte(nil), pq...), nil
}
