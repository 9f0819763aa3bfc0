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

import "sync"

// pool is a sync.Pool-backed allocator of scratch byte slices used while
// assembling public-key, certificate, and signature blobs. It is adapted
// from the reusable-buffer pattern in the teacher's internal/buffer
// package, generalized away from its original httputil.BufferPool use so it
// can back a Writer instead of an HTTP response body.
type pool struct {
	p    sync.Pool
	size int
}

func newPool(minSize, maxSize int) *pool {
	minSize = min(minSize, maxSize)
	alloc := func() any {
		buf := make([]byte, 0, minSize)
		return &buf
	}
	return &pool{p: sync.Pool{New: alloc}, size: maxSize}
}

func (b *pool) get() []byte {
	return (*b.p.Get().(*[]byte))[:0]
}

func (b *pool) put(buf []byte) {
	if cap(buf) <= b.size {
		b.p.Put(&buf)
	}
}

// scratch is the package-wide pool backing Writer allocations. Blobs for
// even the largest RSA keys or hybrid signatures comfortably fit under 64
// KiB; anything that grows beyond that is simply not returned to the pool.
var scratch = newPool(256, 64*1024)
