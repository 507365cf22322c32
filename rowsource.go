// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

// ColumnDesc is the per-column catalog description the type resolver
// (typeresolver.go) consumes. It is supplied by an external
// collaborator - the database client transport - which this package treats
// as out of scope.
type ColumnDesc struct {
	AttName       string
	TypeOID       uint32
	TypeModifier  int32
	ByteLength    int16
	ByValue       bool
	Alignment     byte // 'c', 's', 'i', 'd'
	TypeClass     byte // 'b' base, 'c' composite, 'd' domain, 'e' enum
	CompositeRel  uint32
	ElementType   uint32
	TypeNamespace string
	TypeName      string

	// Subtypes is non-nil for a composite (record) column: one entry per
	// attribute of the composite type, in attribute-number order.
	Subtypes []ColumnDesc

	// ElemType is non-nil for an array column: the catalog description of
	// the element type.
	ElemType *ColumnDesc
}

// ColumnValue is one column's value for one row, in the database's
// row-level binary wire format. Bytes is nil when Null is true.
type ColumnValue struct {
	Null  bool
	Bytes []byte
}

// RowSource delivers successive rows of binary-format column values. It is
// the external-collaborator boundary for this package; cmd/pg2arrow
// supplies one implementation over database/sql + lib/pq, but the Writer
// itself is source-agnostic.
type RowSource interface {
	// Next returns the next row's column values in column order. ok is
	// false once the source is exhausted; err reports a transport failure.
	Next() (row []ColumnValue, ok bool, err error)
}
