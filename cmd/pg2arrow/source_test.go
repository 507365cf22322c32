// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"encoding/binary"
	"testing"

	arrow "github.com/heterodb/pg2arrow-go"
	"github.com/heterodb/pg2arrow-go/internal/pgcatalog"
)

func TestEncodeWireBool(t *testing.T) {
	desc := arrow.ColumnDesc{TypeOID: pgcatalog.OIDBool}
	for _, tt := range []struct {
		in   string
		want byte
	}{{"true", 1}, {"t", 1}, {"false", 0}, {"f", 0}} {
		got, err := encodeWire(desc, tt.in)
		if err != nil {
			t.Fatalf("encodeWire(%q) failed: %v", tt.in, err)
		}
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("encodeWire(%q) = %v, want [%d]", tt.in, got, tt.want)
		}
	}
}

func TestEncodeWireInt4(t *testing.T) {
	desc := arrow.ColumnDesc{TypeOID: pgcatalog.OIDInt4}
	got, err := encodeWire(desc, "-12345")
	if err != nil {
		t.Fatalf("encodeWire failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	v := int32(binary.BigEndian.Uint32(got))
	if v != -12345 {
		t.Errorf("decoded = %d, want -12345", v)
	}
}

func TestEncodeWireInt8(t *testing.T) {
	desc := arrow.ColumnDesc{TypeOID: pgcatalog.OIDInt8}
	got, err := encodeWire(desc, "9000000000")
	if err != nil {
		t.Fatalf("encodeWire failed: %v", err)
	}
	v := int64(binary.BigEndian.Uint64(got))
	if v != 9000000000 {
		t.Errorf("decoded = %d, want 9000000000", v)
	}
}

func TestEncodeWireFloat8(t *testing.T) {
	desc := arrow.ColumnDesc{TypeOID: pgcatalog.OIDFloat8}
	got, err := encodeWire(desc, "3.5")
	if err != nil {
		t.Fatalf("encodeWire failed: %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8", len(got))
	}
}

func TestEncodeWireText(t *testing.T) {
	desc := arrow.ColumnDesc{TypeOID: pgcatalog.OIDText}
	got, err := encodeWire(desc, "hello")
	if err != nil {
		t.Fatalf("encodeWire failed: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("encodeWire = %q, want %q", got, "hello")
	}
}

func TestEncodeWireDate(t *testing.T) {
	desc := arrow.ColumnDesc{TypeOID: pgcatalog.OIDDate}
	got, err := encodeWire(desc, "2000-01-01")
	if err != nil {
		t.Fatalf("encodeWire failed: %v", err)
	}
	v := int32(binary.BigEndian.Uint32(got))
	if v != 0 {
		t.Errorf("days = %d, want 0 (the PostgreSQL epoch encodes as wire day 0, pre-rebase)", v)
	}
}

func TestEncodeNumericWireIntegerValue(t *testing.T) {
	buf, err := encodeNumericWire("12345")
	if err != nil {
		t.Fatalf("encodeNumericWire failed: %v", err)
	}
	ndigits := binary.BigEndian.Uint16(buf[0:2])
	weight := int16(binary.BigEndian.Uint16(buf[2:4]))
	sign := binary.BigEndian.Uint16(buf[4:6])
	dscale := binary.BigEndian.Uint16(buf[6:8])
	if ndigits != 2 {
		t.Errorf("ndigits = %d, want 2", ndigits)
	}
	if weight != 1 {
		t.Errorf("weight = %d, want 1", weight)
	}
	if sign != 0x0000 {
		t.Errorf("sign = %#x, want 0x0000", sign)
	}
	if dscale != 0 {
		t.Errorf("dscale = %d, want 0", dscale)
	}
	d0 := binary.BigEndian.Uint16(buf[8:10])
	d1 := binary.BigEndian.Uint16(buf[10:12])
	if d0 != 1 || d1 != 2345 {
		t.Errorf("digits = [%d %d], want [1 2345]", d0, d1)
	}
}

func TestEncodeNumericWireNegative(t *testing.T) {
	buf, err := encodeNumericWire("-42.5")
	if err != nil {
		t.Fatalf("encodeNumericWire failed: %v", err)
	}
	sign := binary.BigEndian.Uint16(buf[4:6])
	if sign != 0x4000 {
		t.Errorf("sign = %#x, want 0x4000", sign)
	}
	dscale := binary.BigEndian.Uint16(buf[6:8])
	if dscale != 1 {
		t.Errorf("dscale = %d, want 1", dscale)
	}
}

func TestEncodeNumericWireZero(t *testing.T) {
	buf, err := encodeNumericWire("0")
	if err != nil {
		t.Fatalf("encodeNumericWire failed: %v", err)
	}
	ndigits := binary.BigEndian.Uint16(buf[0:2])
	sign := binary.BigEndian.Uint16(buf[4:6])
	if ndigits != 0 {
		t.Errorf("ndigits = %d, want 0 for a zero value", ndigits)
	}
	if sign != 0x0000 {
		t.Errorf("sign = %#x, want 0x0000 for a zero value", sign)
	}
}
