// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

import (
	"encoding/binary"
	"testing"

	mmap "github.com/edsrzf/mmap-go"
)

// readerOver builds a Reader whose data is t's flattened bytes, without an
// actual file or mmap, so the flat-table field-access primitives can be
// exercised directly against what the builder produced.
func readerOver(t *fbTable) *Reader {
	return &Reader{data: mmap.MMap(t.bytes)}
}

func TestFlatbufScalarRoundTrip(t *testing.T) {
	b := newFBBuilder(3)
	b.addBool(0, true)
	b.addInt16(1, -300)
	b.addInt32(2, 123456)
	table := b.flatten()

	r := readerOver(table)
	if got := r.fetchBool(table.vlen, 0); got != true {
		t.Errorf("fetchBool = %v, want true", got)
	}
	if got := r.fetchInt16(table.vlen, 1); got != -300 {
		t.Errorf("fetchInt16 = %d, want -300", got)
	}
	if got := r.fetchInt32(table.vlen, 2); got != 123456 {
		t.Errorf("fetchInt32 = %d, want 123456", got)
	}
}

func TestFlatbufZeroValueElided(t *testing.T) {
	b := newFBBuilder(2)
	b.addInt32(0, 0)
	b.addInt32(1, 7)
	table := b.flatten()

	r := readerOver(table)
	if _, ok := r.slotField(table.vlen, 0); ok {
		t.Errorf("slot 0 present, want elided (zero-valued)")
	}
	if _, ok := r.slotField(table.vlen, 1); !ok {
		t.Errorf("slot 1 absent, want present")
	}
}

func TestFlatbufStringRoundTrip(t *testing.T) {
	b := newFBBuilder(1)
	b.addString(0, "hello arrow")
	table := b.flatten()

	r := readerOver(table)
	if got := r.fetchString(table.vlen, 0); got != "hello arrow" {
		t.Errorf("fetchString = %q, want %q", got, "hello arrow")
	}
}

func TestFlatbufEmptyStringLeavesSlotAbsent(t *testing.T) {
	b := newFBBuilder(1)
	b.addString(0, "")
	table := b.flatten()

	r := readerOver(table)
	if got := r.fetchString(table.vlen, 0); got != "" {
		t.Errorf("fetchString on absent slot = %q, want empty", got)
	}
}

func TestFlatbufOffsetRoundTrip(t *testing.T) {
	inner := newFBBuilder(1)
	inner.addInt32(0, 99)
	innerTable := inner.flatten()

	outer := newFBBuilder(1)
	outer.addOffset(0, innerTable)
	outerTable := outer.flatten()

	r := readerOver(outerTable)
	subRoot, ok := r.fetchSubTableRoot(outerTable.vlen, 0)
	if !ok {
		t.Fatalf("sub-table slot absent")
	}
	if got := r.fetchInt32(subRoot, 0); got != 99 {
		t.Errorf("nested fetchInt32 = %d, want 99", got)
	}
}

func TestFlatbufOffsetNilIsAbsent(t *testing.T) {
	b := newFBBuilder(1)
	b.addOffset(0, nil)
	table := b.flatten()

	r := readerOver(table)
	if _, ok := r.fetchSubTableRoot(table.vlen, 0); ok {
		t.Errorf("sub-table slot present for a nil offset")
	}
}

func TestFlatbufVectorRoundTrip(t *testing.T) {
	makeElem := func(v int32) *fbTable {
		eb := newFBBuilder(1)
		eb.addInt32(0, v)
		return eb.flatten()
	}
	elems := []*fbTable{makeElem(1), makeElem(2), makeElem(3)}

	b := newFBBuilder(1)
	b.addVector(0, elems)
	table := b.flatten()

	r := readerOver(table)
	pos, ok := r.fetchBinary(table.vlen, 0)
	if !ok {
		t.Fatalf("vector slot absent")
	}
	n := int(int32(binary.LittleEndian.Uint32(r.data[pos:])))
	if n != 3 {
		t.Fatalf("vector length = %d, want 3", n)
	}
	for i, want := range []int32{1, 2, 3} {
		elemRoot := r.resolveIndirect(pos + 4 + 4*i)
		if got := r.fetchInt32(elemRoot, 0); got != want {
			t.Errorf("element %d = %d, want %d", i, got, want)
		}
	}
}

func TestFlatbufEmptyVectorLeavesSlotAbsent(t *testing.T) {
	b := newFBBuilder(1)
	b.addVector(0, nil)
	table := b.flatten()

	r := readerOver(table)
	if _, ok := r.fetchBinary(table.vlen, 0); ok {
		t.Errorf("vector slot present for an empty vector")
	}
}
