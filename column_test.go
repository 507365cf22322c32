// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

import (
	"encoding/binary"
	"testing"
)

func be32(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

func be64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func newTestColumn(kind columnKind, stat statKind) *column {
	return newColumn(ColumnDesc{AttName: "c"}, kind, stat)
}

func TestColumnPutInlineInt32(t *testing.T) {
	c := newTestColumn(kindInline32, statKindInt)
	defer c.release()

	if err := c.put(0, be32(-7), false); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := c.put(1, nil, true); err != nil {
		t.Fatalf("put(null) failed: %v", err)
	}
	if err := c.put(2, be32(42), false); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if c.rowCount != 3 {
		t.Errorf("rowCount = %d, want 3", c.rowCount)
	}
	if c.nullCount != 1 {
		t.Errorf("nullCount = %d, want 1", c.nullCount)
	}
	if c.values.usage != 12 {
		t.Errorf("values.usage = %d, want 12", c.values.usage)
	}
	got0 := int32(binary.LittleEndian.Uint32(c.values.ptr()[0:4]))
	if got0 != -7 {
		t.Errorf("row 0 = %d, want -7", got0)
	}
	got2 := int32(binary.LittleEndian.Uint32(c.values.ptr()[8:12]))
	if got2 != 42 {
		t.Errorf("row 2 = %d, want 42", got2)
	}
	if c.minInt != -7 || c.maxInt != 42 {
		t.Errorf("min/max = %d/%d, want -7/42", c.minInt, c.maxInt)
	}
	// Row 1's validity bit must read clear.
	byteIdx, bitIdx := 1/8, uint(1%8)
	if c.nullmap.ptr()[byteIdx]&(1<<bitIdx) != 0 {
		t.Errorf("validity bit for null row 1 is set")
	}
}

func TestColumnPutDate(t *testing.T) {
	c := newTestColumn(kindDate, statKindInt)
	c.field.Type.Tag = TypeDate
	defer c.release()

	// Day 0 on the wire is the PostgreSQL epoch (2000-01-01), which is
	// pgEpochToUnixDays days after the Unix epoch.
	if err := c.put(0, be32(0), false); err != nil {
		t.Fatal(err)
	}
	got := int32(binary.LittleEndian.Uint32(c.values.ptr()[0:4]))
	if got != pgEpochToUnixDays {
		t.Errorf("rebased day = %d, want %d", got, pgEpochToUnixDays)
	}
}

func TestColumnPutTimestamp(t *testing.T) {
	c := newTestColumn(kindTimestamp, statKindInt)
	defer c.release()

	if err := c.put(0, be64(0), false); err != nil {
		t.Fatal(err)
	}
	got := int64(binary.LittleEndian.Uint64(c.values.ptr()[0:8]))
	if got != pgEpochToUnixMicros {
		t.Errorf("rebased micros = %d, want %d", got, pgEpochToUnixMicros)
	}
}

func TestColumnPutVariable(t *testing.T) {
	c := newTestColumn(kindVariable, statKindNone)
	c.extra = newBuffer()
	defer c.release()

	rows := [][]byte{[]byte("hello"), nil, []byte("ab")}
	for i, raw := range rows {
		isNull := raw == nil
		if err := c.put(i, raw, isNull); err != nil {
			t.Fatalf("put(%d) failed: %v", i, err)
		}
	}

	offsets := make([]uint32, 4)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(c.values.ptr()[i*4 : i*4+4])
	}
	want := []uint32{0, 5, 5, 7}
	for i, w := range want {
		if offsets[i] != w {
			t.Errorf("offset[%d] = %d, want %d", i, offsets[i], w)
		}
	}
	if string(c.extra.ptr()) != "helloab" {
		t.Errorf("extra = %q, want %q", c.extra.ptr(), "helloab")
	}
}

func TestColumnPutDecimal(t *testing.T) {
	tests := []struct {
		name  string
		wire  []byte
		scale int32
		want  string
	}{
		{
			name:  "integer 12345",
			wire:  decimalWire(t, 2, 1, numericSignPos, 0, []uint16{1, 2345}),
			scale: 0,
			want:  "12345",
		},
		{
			name:  "negative 12345",
			wire:  decimalWire(t, 2, 1, numericSignNeg, 0, []uint16{1, 2345}),
			scale: 0,
			want:  "-12345",
		},
		{
			name:  "fractional 12345.67",
			wire:  decimalWire(t, 3, 1, numericSignPos, 2, []uint16{1, 2345, 6700}),
			scale: 2,
			want:  "1234567",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestColumn(kindDecimal, statKindNone)
			c.field.Type.DecimalScale = tt.scale
			defer c.release()

			if err := c.put(0, tt.wire, false); err != nil {
				t.Fatalf("put failed: %v", err)
			}
			got := decimal128ToString(c.values.ptr()[0:16])
			if got != tt.want {
				t.Errorf("decimal = %s, want %s", got, tt.want)
			}
		})
	}
}

// decimalWire builds a PostgreSQL numeric wire value from its component
// fields, the inverse of putDecimal's own parsing.
func decimalWire(t *testing.T, ndigits, weight int16, sign, dscale uint16, digits []uint16) []byte {
	t.Helper()
	buf := make([]byte, 8+2*len(digits))
	binary.BigEndian.PutUint16(buf[0:2], uint16(ndigits))
	binary.BigEndian.PutUint16(buf[2:4], uint16(weight))
	binary.BigEndian.PutUint16(buf[4:6], sign)
	binary.BigEndian.PutUint16(buf[6:8], dscale)
	for i, d := range digits {
		binary.BigEndian.PutUint16(buf[8+2*i:], d)
	}
	return buf
}

// decimal128ToString interprets a 16-byte little-endian two's complement
// Decimal128 as a base-10 integer string, for test assertions.
func decimal128ToString(b []byte) string {
	big := make([]byte, 16)
	for i := 0; i < 16; i++ {
		big[15-i] = b[i]
	}
	neg := big[0]&0x80 != 0
	if neg {
		carry := 1
		for i := 15; i >= 0; i-- {
			v := int(^big[i]) + carry
			big[i] = byte(v)
			carry = v >> 8
		}
	}
	v := uint64(0)
	for _, b := range big[8:] {
		v = v<<8 | uint64(b)
	}
	if neg {
		return "-" + itoa(v)
	}
	return itoa(v)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

func TestColumnSnapshotRestore(t *testing.T) {
	c := newTestColumn(kindInline32, statKindInt)
	defer c.release()

	if err := c.put(0, be32(1), false); err != nil {
		t.Fatal(err)
	}
	snap := c.snapshot()
	if err := c.put(1, be32(2), false); err != nil {
		t.Fatal(err)
	}
	if c.rowCount != 2 {
		t.Fatalf("rowCount after second put = %d, want 2", c.rowCount)
	}

	c.restore(snap)
	if c.rowCount != 1 {
		t.Errorf("rowCount after restore = %d, want 1", c.rowCount)
	}
	if c.values.usage != 4 {
		t.Errorf("values.usage after restore = %d, want 4", c.values.usage)
	}
	if c.maxInt != 1 {
		t.Errorf("maxInt after restore = %d, want 1", c.maxInt)
	}
}

func TestColumnResetClearsButKeepsCapacity(t *testing.T) {
	c := newTestColumn(kindInline32, statKindInt)
	defer c.release()

	if err := c.put(0, be32(99), false); err != nil {
		t.Fatal(err)
	}
	capBefore := c.values.length()
	c.reset()

	if c.rowCount != 0 || c.nullCount != 0 {
		t.Errorf("rowCount/nullCount after reset = %d/%d, want 0/0", c.rowCount, c.nullCount)
	}
	if c.values.usage != 0 {
		t.Errorf("values.usage after reset = %d, want 0", c.values.usage)
	}
	if c.values.length() != capBefore {
		t.Errorf("values.length() after reset = %d, want unchanged %d", c.values.length(), capBefore)
	}
}

func TestColumnUsageAlignsTo8Bytes(t *testing.T) {
	c := newTestColumn(kindInline8, statKindInt)
	defer c.release()

	if err := c.put(0, []byte{1}, false); err != nil {
		t.Fatal(err)
	}
	if err := c.put(1, []byte{2}, false); err != nil {
		t.Fatal(err)
	}
	if err := c.put(2, []byte{3}, false); err != nil {
		t.Fatal(err)
	}
	// 3 bytes of kindInline8 values, aligned up to 8.
	if got := c.usage(); got != 8 {
		t.Errorf("usage() = %d, want 8", got)
	}
}

func TestColumnPutCompositeCorruption(t *testing.T) {
	c := newTestColumn(kindComposite, statKindNone)
	sub := newTestColumn(kindInline32, statKindInt)
	c.subtypes = []*column{sub}
	defer c.release()
	defer sub.release()

	if err := c.put(0, []byte{0, 0}, false); err != ErrCompositeCorruption {
		t.Errorf("put with truncated composite header = %v, want ErrCompositeCorruption", err)
	}
	if c.rowCount != 0 || c.nullCount != 0 {
		t.Errorf("rowCount=%d nullCount=%d after corrupted put, want both 0", c.rowCount, c.nullCount)
	}
	if c.nullmap.usage != 0 {
		t.Errorf("nullmap.usage = %d after corrupted put, want 0", c.nullmap.usage)
	}
	if sub.rowCount != 0 {
		t.Errorf("subfield rowCount = %d after corrupted put, want 0", sub.rowCount)
	}
}

// TestColumnPutCompositeCorruptionPartway verifies that when an earlier
// subfield is well-formed but a later one is corrupt, the earlier subfield's
// buffer is left untouched: validation must happen before any subtype is
// committed, not interleaved with committing them.
func TestColumnPutCompositeCorruptionPartway(t *testing.T) {
	c := newTestColumn(kindComposite, statKindNone)
	first := newTestColumn(kindInline32, statKindInt)
	first.desc.TypeOID = 23
	second := newTestColumn(kindInline32, statKindInt)
	second.desc.TypeOID = 23
	c.subtypes = []*column{first, second}
	defer c.release()
	defer first.release()
	defer second.release()

	raw := append(append(append([]byte{}, be32(2)...), be32(23)...), be32(4)...)
	raw = append(raw, be32(77)...)
	raw = append(raw, be32(23)...)
	raw = append(raw, be32(100)...) // attlen claims 100 bytes but none follow

	if err := c.put(0, raw, false); err != ErrCompositeCorruption {
		t.Errorf("put with corrupt second subfield = %v, want ErrCompositeCorruption", err)
	}
	if c.rowCount != 0 || c.nullmap.usage != 0 {
		t.Errorf("composite state mutated despite corruption: rowCount=%d nullmapUsage=%d", c.rowCount, c.nullmap.usage)
	}
	if first.rowCount != 0 || first.values.usage != 0 {
		t.Errorf("first subfield committed despite later corruption: rowCount=%d valuesUsage=%d", first.rowCount, first.values.usage)
	}
}

func TestColumnPutCompositeHappyPath(t *testing.T) {
	c := newTestColumn(kindComposite, statKindNone)
	sub := newTestColumn(kindInline32, statKindInt)
	sub.desc.TypeOID = 23
	c.subtypes = []*column{sub}
	defer c.release()
	defer sub.release()

	raw := append(append(append([]byte{}, be32(1)...), be32(23)...), be32(4)...)
	raw = append(raw, be32(77)...)
	if err := c.put(0, raw, false); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got := int32(binary.LittleEndian.Uint32(sub.values.ptr()[0:4]))
	if got != 77 {
		t.Errorf("subfield value = %d, want 77", got)
	}
}
