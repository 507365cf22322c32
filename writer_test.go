// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

import (
	"os"
	"path/filepath"
	"testing"
)

func testColumns() []ColumnDesc {
	return []ColumnDesc{
		{AttName: "id", TypeNamespace: "pg_catalog", TypeName: "int4"},
		{AttName: "name", TypeNamespace: "pg_catalog", TypeName: "text"},
		{AttName: "amount", TypeNamespace: "pg_catalog", TypeName: "numeric"},
	}
}

func testRow(id int32, name string, amountWire []byte) []ColumnValue {
	return []ColumnValue{
		{Bytes: be32(id)},
		{Bytes: []byte(name)},
		{Bytes: amountWire},
	}
}

func TestWriterOpenAppendClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.arrow")

	w, err := Open(Config{OutputPath: path}, testColumns())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	amount := decimalWire(t, 2, 1, numericSignPos, 2, []uint16{1, 2345})
	for i := 0; i < 5; i++ {
		if err := w.Append(testRow(int32(i), "row", amount)); err != nil {
			t.Fatalf("Append(%d) failed: %v", i, err)
		}
	}
	if err := w.Append([]ColumnValue{{Bytes: be32(99)}, {Null: true}, {Bytes: amount}}); err != nil {
		t.Fatalf("Append with null failed: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() < int64(len(fileMagic)+14) {
		t.Errorf("output file too small: %d bytes", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data[:len(fileMagic)]) != fileMagic {
		t.Errorf("missing leading magic")
	}
	if string(data[len(data)-len(tailMagic):]) != tailMagic {
		t.Errorf("missing trailing magic")
	}
}

func TestWriterRejectsMismatchedRowWidth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.arrow")

	w, err := Open(Config{OutputPath: path}, testColumns())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer w.Close()

	err = w.Append([]ColumnValue{{Bytes: be32(1)}})
	if err == nil {
		t.Fatal("expected an error for a short row")
	}
}

func TestWriterFlushesOnSegmentSizeOverflow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.arrow")

	w, err := Open(Config{OutputPath: path, SegmentSize: 32}, []ColumnDesc{
		{AttName: "id", TypeNamespace: "pg_catalog", TypeName: "int4"},
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for i := 0; i < 20; i++ {
		if err := w.Append([]ColumnValue{{Bytes: be32(int32(i))}}); err != nil {
			t.Fatalf("Append(%d) failed: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(w.recordBatches) < 2 {
		t.Errorf("recordBatches = %d, want at least 2 given the tiny segment size", len(w.recordBatches))
	}
}
