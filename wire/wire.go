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

// Package wire implements the SSH wire encoding used for public-key,
// certificate, and signature blobs: length-prefixed strings and big-endian
// integers per RFC 4253 §6.6 and RFC 5656 §3.1.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// ErrTruncated is returned when a Reader runs out of bytes mid-field.
var ErrTruncated = errors.New("wire: truncated blob")

// ErrFieldTooLarge is returned when a declared string length would exceed
// the remaining buffer, a cheap guard against malicious length prefixes
// that would otherwise force large allocations.
var ErrFieldTooLarge = errors.New("wire: field length exceeds remaining data")

// Writer accumulates SSH wire-format fields into a single contiguous byte
// slice. The zero value is not usable; create one with NewWriter and
// release it with Release once its Bytes have been copied out or handed
// off, so the backing array can be reused.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer backed by a buffer drawn from the package's
// scratch pool.
func NewWriter() *Writer {
	return &Writer{buf: scratch.get()}
}

// Release returns the Writer's backing array to the scratch pool. The
// Writer must not be used afterward.
func (w *Writer) Release() {
	scratch.put(w.buf)
	w.buf = nil
}

// Bytes returns the accumulated wire-format bytes. The returned slice
// aliases the Writer's internal buffer and is only valid until the next
// write or Release.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Byte appends a single raw byte.
func (w *Writer) Byte(b byte) *Writer {
	w.buf = append(w.buf, b)
	return w
}

// Uint32 appends a big-endian 32-bit integer.
func (w *Writer) Uint32(v uint32) *Writer {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

// String appends an SSH string: a 4-byte big-endian length followed by the
// raw bytes.
func (w *Writer) String(s []byte) *Writer {
	w.Uint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// Str is String for a Go string, avoiding a caller-side []byte conversion.
func (w *Writer) Str(s string) *Writer {
	w.Uint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// MPInt appends an SSH multiple-precision integer: a string containing the
// big-endian two's-complement representation of n, with a leading zero
// byte inserted if the high bit of the first byte would otherwise be set
// (so that n is never misread as negative), per RFC 4251 §5.
func (w *Writer) MPInt(n *big.Int) *Writer {
	if n == nil || n.Sign() == 0 {
		return w.Uint32(0)
	}
	b := n.Bytes()
	if b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	return w.String(b)
}

// Raw appends b without any length prefix. Used to concatenate
// already-framed sub-blobs (e.g. a nested classical signature blob inside a
// hybrid signature).
func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// Reader consumes SSH wire-format fields sequentially from a byte slice it
// does not own or copy; the caller is responsible for keeping the backing
// array alive for the Reader's lifetime.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps b for sequential field-by-field consumption.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining returns the number of unconsumed bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Done reports whether every byte has been consumed.
func (r *Reader) Done() bool { return r.off >= len(r.buf) }

// Rest returns every remaining unconsumed byte without advancing the
// cursor.
func (r *Reader) Rest() []byte { return r.buf[r.off:] }

// Byte consumes and returns a single byte.
func (r *Reader) Byte() (byte, error) {
	if r.Remaining() < 1 {
		return 0, ErrTruncated
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

// Uint32 consumes a big-endian 32-bit integer.
func (r *Reader) Uint32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

// String consumes an SSH string and returns its raw bytes. The returned
// slice aliases the Reader's backing array.
func (r *Reader) String() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("wire: read string length: %w", err)
	}
	if uint64(n) > uint64(r.Remaining()) {
		return nil, ErrFieldTooLarge
	}
	s := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return s, nil
}

// Str is String decoded as a Go string.
func (r *Reader) Str() (string, error) {
	b, err := r.String()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MPInt consumes an SSH multiple-precision integer.
func (r *Reader) MPInt() (*big.Int, error) {
	b, err := r.String()
	if err != nil {
		return nil, fmt.Errorf("wire: read mpint: %w", err)
	}
	return new(big.Int).SetBytes(b), nil
}

// Skip advances the cursor past an SSH string without copying its content.
func (r *Reader) Skip() error {
	_, err := r.String()
	return err
}
