// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

// resolveColumn maps a catalog ColumnDesc onto a columnar-format Field plus
// the ingester (column) that will bucket this column's row values, choosing
// among the put_value strategies in column.go.
//
// The dispatch order - composite, then array, then well-known pg_catalog
// name, then byte-length fallback - mirrors assignArrowType's priority
// chain; a user-defined fixed-length type whose "send" representation this
// module cannot interpret (e.g. a reordered multi-field struct like box)
// falls through to ErrTypeNotSupported rather than being silently
// mis-encoded.
func resolveColumn(desc ColumnDesc) (*column, error) {
	switch {
	case desc.Subtypes != nil:
		return resolveStructColumn(desc)
	case desc.ElemType != nil:
		return resolveListColumn(desc)
	case desc.TypeNamespace == "pg_catalog":
		if col, ok, err := resolveWellKnownColumn(desc); ok || err != nil {
			return col, err
		}
		fallthrough
	default:
		return resolveFallbackColumn(desc)
	}
}

func resolveWellKnownColumn(desc ColumnDesc) (*column, bool, error) {
	switch desc.TypeName {
	case "bool":
		return newInlineColumn(desc, TypeBool, 8, false, kindInline8, statKindInt), true, nil
	case "int2":
		return newInlineColumn(desc, TypeInt, 16, true, kindInline16, statKindInt), true, nil
	case "int4":
		return newInlineColumn(desc, TypeInt, 32, true, kindInline32, statKindInt), true, nil
	case "int8":
		return newInlineColumn(desc, TypeInt, 64, true, kindInline64, statKindInt), true, nil
	case "float4":
		col := newInlineColumn(desc, TypeFloatingPoint, 0, false, kindInline32, statKindFloat)
		col.field.Type.FloatPrecision = PrecisionSingle
		return col, true, nil
	case "float8":
		col := newInlineColumn(desc, TypeFloatingPoint, 0, false, kindInline64, statKindFloat)
		col.field.Type.FloatPrecision = PrecisionDouble
		return col, true, nil
	case "date":
		col := newInlineColumn(desc, TypeDate, 0, false, kindDate, statKindInt)
		col.field.Type.DateUnitVal = DateUnitDay
		return col, true, nil
	case "time":
		col := newInlineColumn(desc, TypeTime, 0, false, kindInline64, statKindInt)
		col.field.Type.TimeUnitVal = TimeUnitMicrosecond
		col.field.Type.TimeBitWidth = 64
		return col, true, nil
	case "timestamp", "timestamptz":
		col := newInlineColumn(desc, TypeTimestamp, 0, false, kindTimestamp, statKindInt)
		col.field.Type.TimestampUnit = TimeUnitMicrosecond
		if desc.TypeName == "timestamptz" {
			col.field.Type.TimestampTimezone = "UTC"
		}
		return col, true, nil
	case "text", "varchar", "bpchar":
		return newVarlenaColumn(desc, TypeUtf8), true, nil
	case "bytea":
		return newVarlenaColumn(desc, TypeBinary), true, nil
	case "numeric":
		return resolveDecimalColumn(desc), true, nil
	}
	return nil, false, nil
}

func resolveDecimalColumn(desc ColumnDesc) *column {
	precision, scale := int32(30), int32(11)
	if typmod := desc.TypeModifier; typmod >= 4 {
		typmod -= 4
		precision = (typmod >> 16) & 0xffff
		scale = typmod & 0xffff
	}
	col := newColumn(desc, kindDecimal, statKindNone)
	col.field.Type.Tag = TypeDecimal
	col.field.Type.DecimalPrecision = precision
	col.field.Type.DecimalScale = scale
	return col
}

// resolveFallbackColumn handles columns outside pg_catalog (or a pg_catalog
// name this module does not special-case): only fixed-length types whose
// width matches a plain integer register, or varlena types, can be
// represented without knowledge of the type's internal binary layout.
func resolveFallbackColumn(desc ColumnDesc) (*column, error) {
	switch desc.ByteLength {
	case 1:
		return newInlineColumn(desc, TypeInt, 8, false, kindInline8, statKindInt), nil
	case 2:
		return newInlineColumn(desc, TypeInt, 16, false, kindInline16, statKindInt), nil
	case 4:
		return newInlineColumn(desc, TypeInt, 32, false, kindInline32, statKindInt), nil
	case 8:
		return newInlineColumn(desc, TypeInt, 64, false, kindInline64, statKindInt), nil
	case -1:
		return newVarlenaColumn(desc, TypeBinary), nil
	}
	return nil, ErrTypeNotSupported
}

func resolveListColumn(desc ColumnDesc) (*column, error) {
	elemCol, err := resolveColumn(*desc.ElemType)
	if err != nil {
		return nil, err
	}
	col := newColumn(desc, kindArray, statKindNone)
	col.field.Type.Tag = TypeList
	col.field.Children = []Field{elemCol.field}
	col.subtypes = []*column{elemCol}
	return col, nil
}

func resolveStructColumn(desc ColumnDesc) (*column, error) {
	col := newColumn(desc, kindComposite, statKindNone)
	col.field.Type.Tag = TypeStruct
	col.field.Children = make([]Field, 0, len(desc.Subtypes))
	col.subtypes = make([]*column, 0, len(desc.Subtypes))
	for _, sub := range desc.Subtypes {
		subCol, err := resolveColumn(sub)
		if err != nil {
			return nil, err
		}
		col.field.Children = append(col.field.Children, subCol.field)
		col.subtypes = append(col.subtypes, subCol)
	}
	return col, nil
}

func newInlineColumn(desc ColumnDesc, tag TypeTag, bitWidth int32, signed bool, kind columnKind, stat statKind) *column {
	col := newColumn(desc, kind, stat)
	col.field.Type.Tag = tag
	col.field.Type.IntBitWidth = bitWidth
	col.field.Type.IntSigned = signed
	return col
}

func newVarlenaColumn(desc ColumnDesc, tag TypeTag) *column {
	col := newColumn(desc, kindVariable, statKindNone)
	col.field.Type.Tag = tag
	col.extra = newBuffer()
	return col
}

func newColumn(desc ColumnDesc, kind columnKind, stat statKind) *column {
	return &column{
		desc: desc,
		field: Field{
			Name:     desc.AttName,
			Nullable: true,
		},
		kind:      kind,
		statKind:  stat,
		nullmap:   newBuffer(),
		values:    newBuffer(),
		minIsNull: true,
		maxIsNull: true,
	}
}
