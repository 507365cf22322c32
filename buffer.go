// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

import (
	mmap "github.com/edsrzf/mmap-go"
)

// buffer is a one-way-growing, column-scoped byte region. It is the
// mechanism behind the columnar format's growable byte buffer: usage tracks the number of
// bytes actually written, length (= len(region)) is the current capacity.
// Capacity grows by doubling, starting at initialBufferCapacity, through an
// anonymous mmap region so large buffers never compete with the Go heap or
// GC for the column data they hold.
type buffer struct {
	region mmap.MMap
	usage  int
}

// newBuffer allocates an empty buffer with no backing region yet; the
// region is created lazily on first growth so that schema resolution for a
// table with many columns does not pay for capacity no row ever uses.
func newBuffer() *buffer {
	return &buffer{}
}

// ptr returns the used prefix of the buffer, suitable for direct output by
// a writer.
func (b *buffer) ptr() []byte {
	return b.region[:b.usage]
}

// length returns the buffer's current capacity.
func (b *buffer) length() int {
	return len(b.region)
}

// expand grows the buffer so that at least `required` more bytes can be
// appended past usage, doubling capacity from initialBufferCapacity (or the
// current capacity, whichever is larger) until the requirement is met.
func (b *buffer) expand(required int) error {
	need := b.usage + required
	if need <= len(b.region) {
		return nil
	}
	newCap := len(b.region)
	if newCap == 0 {
		newCap = initialBufferCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	region, err := mmap.MapRegion(nil, newCap, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return err
	}
	if b.region != nil {
		copy(region, b.region[:b.usage])
		b.region.Unmap()
	}
	b.region = region
	return nil
}

// append copies src onto the buffer, growing it first if needed.
func (b *buffer) append(src []byte) error {
	if len(src) == 0 {
		return nil
	}
	if err := b.expand(len(src)); err != nil {
		return err
	}
	copy(b.region[b.usage:], src)
	b.usage += len(src)
	return nil
}

// appendZero appends n zero bytes, growing the buffer first if needed.
func (b *buffer) appendZero(n int) error {
	if n == 0 {
		return nil
	}
	if err := b.expand(n); err != nil {
		return err
	}
	for i := b.usage; i < b.usage+n; i++ {
		b.region[i] = 0
	}
	b.usage += n
	return nil
}

// setBit sets bit i (growing the buffer to cover ceil((i+1)/8) bytes first).
func (b *buffer) setBit(i int) error {
	byteIdx := i / 8
	if err := b.growToCoverByte(byteIdx); err != nil {
		return err
	}
	b.region[byteIdx] |= 1 << uint(i%8)
	return nil
}

// clrBit clears bit i (growing the buffer to cover ceil((i+1)/8) bytes first).
func (b *buffer) clrBit(i int) error {
	byteIdx := i / 8
	if err := b.growToCoverByte(byteIdx); err != nil {
		return err
	}
	b.region[byteIdx] &^= 1 << uint(i%8)
	return nil
}

func (b *buffer) growToCoverByte(byteIdx int) error {
	need := byteIdx + 1
	if need <= b.usage {
		return nil
	}
	if err := b.expand(need - b.usage); err != nil {
		return err
	}
	// zero-fill the gap between the old usage and the newly covered byte,
	// then advance usage to include it: nullmap bits not yet visited by
	// setBit/clrBit for earlier rows must read as zero, matching the
	// validity bitmap's popcount-based null-count invariant.
	for i := b.usage; i < need; i++ {
		b.region[i] = 0
	}
	b.usage = need
	return nil
}

// clear resets usage to 0 without releasing capacity, so the next batch
// reuses the same mapping.
func (b *buffer) clear() {
	b.usage = 0
}

// release unmaps the backing region. Safe to call on a buffer that was
// never grown.
func (b *buffer) release() {
	if b.region != nil {
		b.region.Unmap()
		b.region = nil
		b.usage = 0
	}
}
