// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package arrow converts the binary result stream of a PostgreSQL query into
// a columnar, memory-mappable Apache Arrow IPC file.
//
// A Writer buckets incoming row values into per-column buffers, flushes them
// as self-describing record batches once a configured memory threshold is
// crossed, and serializes the file's metadata blocks (Schema, RecordBatch,
// Footer) using a hand-rolled flat-table builder that mirrors Arrow's own
// vtable-based sparse encoding without depending on the flatbuffers library.
// A Reader mirrors the writer for round-trip verification and diagnostic
// dumping.
//
// The database client transport - connection, authentication, the SQL
// driver, query planning - is outside this package's scope. Callers supply
// rows through the RowSource and ColumnDesc types in rowsource.go.
package arrow
