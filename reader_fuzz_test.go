// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

import (
	"os"
	"path/filepath"
	"testing"
)

// FuzzOpenReader feeds arbitrary byte strings through the parser that
// validates a file's magic, Schema message, and Footer. A well-formed
// file written by this package's own Writer seeds the corpus; OpenReader
// must never panic on malformed input, only return an error.
func FuzzOpenReader(f *testing.F) {
	dir := f.TempDir()
	seedPath := filepath.Join(dir, "seed.arrow")
	w, err := Open(Config{OutputPath: seedPath}, testColumns())
	if err != nil {
		f.Fatal(err)
	}
	if err := w.Append(testRow(1, "seed", decimalWireForFuzz())); err != nil {
		f.Fatal(err)
	}
	if err := w.Close(); err != nil {
		f.Fatal(err)
	}
	seed, err := os.ReadFile(seedPath)
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seed)
	f.Add([]byte(fileMagic))
	f.Add([]byte{})
	f.Add([]byte("not an arrow file"))

	f.Fuzz(func(t *testing.T, data []byte) {
		path := filepath.Join(t.TempDir(), "fuzz.arrow")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		r, err := OpenReader(path, ReaderOptions{})
		if err != nil {
			return
		}
		defer r.Close()
		for _, blk := range r.RecordBatches {
			r.RecordBatchAt(blk)
		}
	})
}

func decimalWireForFuzz() []byte {
	buf := make([]byte, 8+2*2)
	buf[1] = 2
	buf[3] = 1
	buf[9] = 1
	buf[11] = 0x09
	buf[10] = 0x09
	return buf
}
