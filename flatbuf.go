// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

import "encoding/binary"

// fbTable is a flattened flat-table image: a vtable prefix (sparse field
// offsets) followed by the table's own field data and any variable-length
// "extra" payloads (strings, nested tables, vectors) the table's fields
// point to. Once flatten has produced one, it is immutable and may be
// embedded as a sub-object of an enclosing table via addOffset/addVector.
type fbTable struct {
	bytes []byte
	vlen  int // length, in bytes, of the vtable prefix within bytes
}

// fbBuilder assembles one flat table: a sparse, by-index field area backed
// by a vtable, mirroring the vtable/table split the columnar format's own
// metadata serializer uses so that readers can skip absent (default-value)
// fields without knowing the writer's schema version in advance.
//
// This intentionally does not depend on a general-purpose flatbuffers
// implementation: the metadata schema here is small, fixed, and entirely
// owned by this package, and a hand-rolled builder keeps the wire layout
// auditable against the routines it's grounded on.
type fbBuilder struct {
	nattrs     int
	slotOffset []int32
	tableBuf   []byte
	extraData  [][]byte
	extraShift []int32
}

// newFBBuilder starts a table with nattrs fields, all initially absent.
func newFBBuilder(nattrs int) *fbBuilder {
	return &fbBuilder{
		nattrs:     nattrs,
		slotOffset: make([]int32, nattrs),
		tableBuf:   make([]byte, 4), // reserved for the table's soffset-to-vtable backref
		extraData:  make([][]byte, nattrs),
		extraShift: make([]int32, nattrs),
	}
}

func (b *fbBuilder) alignTable(n int) {
	for len(b.tableBuf)%n != 0 {
		b.tableBuf = append(b.tableBuf, 0)
	}
}

func isAllZero(data []byte) bool {
	for _, c := range data {
		if c != 0 {
			return false
		}
	}
	return true
}

// addScalar writes an inline scalar field, aligned to alignTo bytes. A
// zero-valued field is left absent, matching the default-value elision the
// reference builder performs for every scalar slot.
func (b *fbBuilder) addScalar(index int, data []byte, alignTo int) {
	if isAllZero(data) {
		return
	}
	b.alignTable(alignTo)
	off := int32(len(b.tableBuf))
	b.tableBuf = append(b.tableBuf, data...)
	b.slotOffset[index] = off
}

func (b *fbBuilder) addBool(index int, v bool) {
	if v {
		b.addScalar(index, []byte{1}, 1)
	}
}

func (b *fbBuilder) addInt8(index int, v int8) {
	b.addScalar(index, []byte{byte(v)}, 1)
}

func (b *fbBuilder) addInt16(index int, v int16) {
	if v == 0 {
		return
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(v))
	b.addScalar(index, buf[:], 2)
}

func (b *fbBuilder) addInt32(index int, v int32) {
	if v == 0 {
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	b.addScalar(index, buf[:], 4)
}

func (b *fbBuilder) addInt64(index int, v int64) {
	if v == 0 {
		return
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	b.addScalar(index, buf[:], 8)
}

// addBinary records a variable-length payload for later appending past the
// table's own field area, writing a placeholder scalar (shift) now that
// flatten will rewrite into a relative offset once the payload's final
// position is known.
func (b *fbBuilder) addBinary(index int, data []byte, shift int32) {
	if len(data) == 0 {
		return
	}
	b.extraData[index] = data
	b.extraShift[index] = shift
	b.addInt32(index, shift)
	if b.slotOffset[index] == 0 && shift == 0 {
		// addInt32 would have elided a zero shift; force the slot present
		// since its extra payload still needs somewhere to be patched.
		b.alignTable(4)
		off := int32(len(b.tableBuf))
		b.tableBuf = append(b.tableBuf, 0, 0, 0, 0)
		b.slotOffset[index] = off
	}
}

// addString encodes a length-prefixed, NUL-terminated, 4-byte-aligned
// string payload as an extra buffer.
func (b *fbBuilder) addString(index int, s string) {
	if s == "" {
		return
	}
	raw := []byte(s)
	payload := make([]byte, 4+align4(len(raw)+1))
	binary.LittleEndian.PutUint32(payload[0:4], uint32(len(raw)))
	copy(payload[4:], raw)
	b.addBinary(index, payload, 0)
}

// addOffset embeds a previously flattened sub-table. sub must have come
// from flatten(); passing one that has not yet been flattened is a bug in
// the caller, not a run-time possibility in this package's call graph.
func (b *fbBuilder) addOffset(index int, sub *fbTable) {
	if sub == nil {
		return
	}
	b.addBinary(index, sub.bytes, int32(sub.vlen))
}

// addVector embeds a vector of sub-tables: an item count, one relative
// offset per element, then the elements' flattened images packed and
// 4-byte aligned.
func (b *fbBuilder) addVector(index int, elems []*fbTable) {
	if len(elems) == 0 {
		return
	}
	vec := make([]byte, 4+4*len(elems))
	binary.LittleEndian.PutUint32(vec[0:4], uint32(len(elems)))
	slotBase := 4
	pos := len(vec)
	elemOffset := make([]int32, len(elems))
	for i, e := range elems {
		for (pos+e.vlen)%4 != 0 {
			vec = append(vec, 0)
			pos++
		}
		start := pos
		vec = append(vec, e.bytes...)
		pos += len(e.bytes)
		elemOffset[i] = int32(start+e.vlen-slotBase) - int32(4*i)
	}
	for i, off := range elemOffset {
		binary.LittleEndian.PutUint32(vec[slotBase+4*i:], uint32(off))
	}
	b.addBinary(index, vec, 0)
}

// flatten produces the immutable flat-table image: vtable, then table
// fields (with the reserved soffset header patched to the vtable's
// length), then every field's extra payload, 8-byte aligned and with its
// placeholder scalar rewritten to the payload's offset relative to that
// scalar's own position.
func (b *fbBuilder) flatten() *fbTable {
	vlen := 4 + 2*b.nattrs
	vtable := make([]byte, vlen)
	binary.LittleEndian.PutUint16(vtable[0:2], uint16(vlen))
	binary.LittleEndian.PutUint16(vtable[2:4], uint16(len(b.tableBuf)))
	for i := 0; i < b.nattrs; i++ {
		binary.LittleEndian.PutUint16(vtable[4+2*i:], uint16(b.slotOffset[i]))
	}

	table := make([]byte, len(b.tableBuf))
	copy(table, b.tableBuf)
	binary.LittleEndian.PutUint32(table[0:4], uint32(vlen))

	combined := append(append([]byte{}, vtable...), table...)
	for len(combined)%4 != 0 {
		combined = append(combined, 0)
	}
	for i := 0; i < b.nattrs; i++ {
		if b.extraData[i] == nil {
			continue
		}
		for len(combined)%8 != 0 {
			combined = append(combined, 0)
		}
		extraStart := len(combined)
		slotAbs := vlen + int(b.slotOffset[i])
		rel := int32(extraStart-slotAbs) + b.extraShift[i]
		binary.LittleEndian.PutUint32(combined[slotAbs:], uint32(rel))
		combined = append(combined, b.extraData[i]...)
	}
	return &fbTable{bytes: combined, vlen: vlen}
}
