// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

// TypeTag discriminates the closed set of columnar-format type variants.
// It doubles as the on-wire Type union tag written by the flat-table
// serializer, so the numeric values match the columnar format's
// published Type enum exactly.
type TypeTag int8

const (
	TypeNull            TypeTag = 1
	TypeInt             TypeTag = 2
	TypeFloatingPoint   TypeTag = 3
	TypeBinary          TypeTag = 4
	TypeUtf8            TypeTag = 5
	TypeBool            TypeTag = 6
	TypeDecimal         TypeTag = 7
	TypeDate            TypeTag = 8
	TypeTime            TypeTag = 9
	TypeTimestamp       TypeTag = 10
	TypeInterval        TypeTag = 11
	TypeList            TypeTag = 12
	TypeStruct          TypeTag = 13
	TypeUnion           TypeTag = 14
	TypeFixedSizeBinary TypeTag = 15
	TypeFixedSizeList   TypeTag = 16
	TypeMap             TypeTag = 17
)

// DateUnit, TimeUnit, Precision, UnionMode mirror the columnar format's
// short-valued enums referenced from DataType.
type (
	DateUnit      int16
	TimeUnit      int16
	Precision     int16
	UnionMode     int16
	IntervalUnit  int16
	EndiannessTag int16
)

const (
	DateUnitDay         DateUnit = 0
	DateUnitMillisecond DateUnit = 1
)

const (
	TimeUnitSecond      TimeUnit = 0
	TimeUnitMillisecond TimeUnit = 1
	TimeUnitMicrosecond TimeUnit = 2
	TimeUnitNanosecond  TimeUnit = 3
)

const (
	PrecisionHalf   Precision = 0
	PrecisionSingle Precision = 1
	PrecisionDouble Precision = 2
)

const (
	UnionModeSparse UnionMode = 0
	UnionModeDense  UnionMode = 1
)

const (
	IntervalUnitYearMonth IntervalUnit = 0
	IntervalUnitDayTime   IntervalUnit = 1
)

const (
	EndiannessLittle EndiannessTag = 0
	EndiannessBig    EndiannessTag = 1
)

// DataType is the tagged-variant payload of a column type. Exactly one of
// the per-variant fields is meaningful, selected by Tag; this mirrors the
// C union in original_source/arrow_defs.h (ArrowType) as a Go sum type.
type DataType struct {
	Tag TypeTag

	// Int
	IntBitWidth int32
	IntSigned   bool

	// FloatingPoint
	FloatPrecision Precision

	// Decimal
	DecimalPrecision int32
	DecimalScale     int32

	// Date
	DateUnitVal DateUnit

	// Time
	TimeUnitVal  TimeUnit
	TimeBitWidth int32

	// Timestamp
	TimestampUnit     TimeUnit
	TimestampTimezone string

	// Interval
	IntervalUnitVal IntervalUnit

	// Union
	UnionModeVal UnionMode
	UnionTypeIDs []int32

	// FixedSizeBinary
	FixedSizeByteWidth int32

	// FixedSizeList
	FixedListSize int32

	// Map
	MapKeysSorted bool
}

// KeyValue is a single custom-metadata entry.
type KeyValue struct {
	Key   string
	Value string
}

// DictionaryEncoding describes a field's dictionary-encoded index type.
// The columnar format's structural hook for dictionary batches; this
// module never emits a DictionaryBatch message, so ID 0 means "not
// dictionary-encoded" and createArrowDictionaryEncoding (messages.go)
// returns nil for it, matching original_source/arrow_write.c.
type DictionaryEncoding struct {
	ID         int64
	IndexType  DataType // must be TypeInt
	IsOrdered  bool
}

// Field is one node of the schema tree: a named, possibly-nullable,
// possibly-nested column type.
type Field struct {
	Name           string
	Nullable       bool
	Type           DataType
	Dictionary     *DictionaryEncoding
	Children       []Field
	CustomMetadata []KeyValue
}

// Schema is an ordered sequence of fields, serialized little-endian.
type Schema struct {
	Fields         []Field
	CustomMetadata []KeyValue
}
