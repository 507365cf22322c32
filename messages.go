// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

// Field slot indices, by message kind. Keeping these as named constants
// instead of magic numbers makes createArrowRecordBatch's buffer-vector
// slot (2, not 1) self-evident.
const (
	slotIntBitWidth  = 0
	slotIntSigned    = 1
	slotFPPrecision  = 0

	slotFieldName       = 0
	slotFieldNullable   = 1
	slotFieldTypeTag    = 2
	slotFieldType       = 3
	slotFieldDictionary = 4
	slotFieldChildren   = 5
	slotFieldMetadata   = 6

	slotSchemaEndianness = 0
	slotSchemaFields     = 1
	slotSchemaMetadata   = 2

	slotRecordBatchLength  = 0
	slotRecordBatchNodes   = 1
	slotRecordBatchBuffers = 2

	slotMessageVersion = 0
	slotMessageHeaderT = 1
	slotMessageHeader  = 2
	slotMessageBodyLen = 3

	slotFooterVersion       = 0
	slotFooterSchema        = 1
	slotFooterDictionaries  = 2
	slotFooterRecordBatches = 3

	slotKeyValueKey   = 0
	slotKeyValueValue = 1

	slotDictID        = 0
	slotDictIndexType = 1
	slotDictOrdered   = 2
)

// createArrowTypeInt flattens an Int type variant.
func createArrowTypeInt(t DataType) *fbTable {
	b := newFBBuilder(2)
	b.addInt32(slotIntBitWidth, t.IntBitWidth)
	b.addBool(slotIntSigned, t.IntSigned)
	return b.flatten()
}

func createArrowTypeFloatingPoint(t DataType) *fbTable {
	b := newFBBuilder(1)
	b.addInt16(slotFPPrecision, int16(t.FloatPrecision))
	return b.flatten()
}

func createArrowTypeDecimal(t DataType) *fbTable {
	b := newFBBuilder(2)
	b.addInt32(0, t.DecimalPrecision)
	b.addInt32(1, t.DecimalScale)
	return b.flatten()
}

func createArrowTypeDate(t DataType) *fbTable {
	b := newFBBuilder(1)
	b.addInt16(0, int16(t.DateUnitVal))
	return b.flatten()
}

func createArrowTypeTime(t DataType) *fbTable {
	b := newFBBuilder(2)
	b.addInt16(0, int16(t.TimeUnitVal))
	b.addInt32(1, t.TimeBitWidth)
	return b.flatten()
}

func createArrowTypeTimestamp(t DataType) *fbTable {
	b := newFBBuilder(2)
	b.addInt16(0, int16(t.TimestampUnit))
	b.addString(1, t.TimestampTimezone)
	return b.flatten()
}

func createArrowTypeInterval(t DataType) *fbTable {
	b := newFBBuilder(1)
	b.addInt16(0, int16(t.IntervalUnitVal))
	return b.flatten()
}

func createArrowTypeUnion(t DataType) *fbTable {
	b := newFBBuilder(2)
	b.addInt16(0, int16(t.UnionModeVal))
	ids := make([]byte, 4+4*len(t.UnionTypeIDs))
	putLE32(ids[0:4], int32(len(t.UnionTypeIDs)))
	for i, id := range t.UnionTypeIDs {
		putLE32(ids[4+4*i:], id)
	}
	b.addBinary(1, ids, 0)
	return b.flatten()
}

func createArrowTypeFixedSizeBinary(t DataType) *fbTable {
	b := newFBBuilder(1)
	b.addInt32(0, t.FixedSizeByteWidth)
	return b.flatten()
}

func createArrowTypeFixedSizeList(t DataType) *fbTable {
	b := newFBBuilder(1)
	b.addInt32(0, t.FixedListSize)
	return b.flatten()
}

func createArrowTypeMap(t DataType) *fbTable {
	b := newFBBuilder(1)
	b.addBool(0, t.MapKeysSorted)
	return b.flatten()
}

func putLE32(dst []byte, v int32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

// createArrowType dispatches on the DataType's tag, returning both the
// flattened type-variant table (nil for Null and Bool, which carry no
// fields) and the Type union tag to record alongside it.
func createArrowType(t DataType) (*fbTable, int8) {
	switch t.Tag {
	case TypeNull:
		return nil, int8(TypeNull)
	case TypeInt:
		return createArrowTypeInt(t), int8(TypeInt)
	case TypeFloatingPoint:
		return createArrowTypeFloatingPoint(t), int8(TypeFloatingPoint)
	case TypeBinary:
		return nil, int8(TypeBinary)
	case TypeUtf8:
		return nil, int8(TypeUtf8)
	case TypeBool:
		return nil, int8(TypeBool)
	case TypeDecimal:
		return createArrowTypeDecimal(t), int8(TypeDecimal)
	case TypeDate:
		return createArrowTypeDate(t), int8(TypeDate)
	case TypeTime:
		return createArrowTypeTime(t), int8(TypeTime)
	case TypeTimestamp:
		return createArrowTypeTimestamp(t), int8(TypeTimestamp)
	case TypeInterval:
		return createArrowTypeInterval(t), int8(TypeInterval)
	case TypeList:
		return nil, int8(TypeList)
	case TypeStruct:
		return nil, int8(TypeStruct)
	case TypeUnion:
		return createArrowTypeUnion(t), int8(TypeUnion)
	case TypeFixedSizeBinary:
		return createArrowTypeFixedSizeBinary(t), int8(TypeFixedSizeBinary)
	case TypeFixedSizeList:
		return createArrowTypeFixedSizeList(t), int8(TypeFixedSizeList)
	case TypeMap:
		return createArrowTypeMap(t), int8(TypeMap)
	default:
		return nil, int8(TypeNull)
	}
}

func createArrowKeyValue(kv KeyValue) *fbTable {
	b := newFBBuilder(2)
	b.addString(slotKeyValueKey, kv.Key)
	b.addString(slotKeyValueValue, kv.Value)
	return b.flatten()
}

func createArrowKeyValues(kvs []KeyValue) []*fbTable {
	if len(kvs) == 0 {
		return nil
	}
	out := make([]*fbTable, len(kvs))
	for i, kv := range kvs {
		out[i] = createArrowKeyValue(kv)
	}
	return out
}

// createArrowDictionaryEncoding returns nil for an unencoded field (ID 0),
// matching the reference implementation's early return: this module never
// emits a DictionaryBatch, so every field's encoding is the zero value.
func createArrowDictionaryEncoding(dict *DictionaryEncoding) *fbTable {
	if dict == nil || dict.ID == 0 {
		return nil
	}
	b := newFBBuilder(3)
	b.addInt64(slotDictID, dict.ID)
	b.addOffset(slotDictIndexType, createArrowTypeInt(dict.IndexType))
	b.addBool(slotDictOrdered, dict.IsOrdered)
	return b.flatten()
}

// createArrowField flattens one schema node, recursing into struct/list
// children.
func createArrowField(f Field) *fbTable {
	b := newFBBuilder(7)
	b.addString(slotFieldName, f.Name)
	b.addBool(slotFieldNullable, f.Nullable)
	typeBuf, typeTag := createArrowType(f.Type)
	b.addInt8(slotFieldTypeTag, int8(typeTag))
	b.addOffset(slotFieldType, typeBuf)
	b.addOffset(slotFieldDictionary, createArrowDictionaryEncoding(f.Dictionary))
	if len(f.Children) > 0 {
		children := make([]*fbTable, len(f.Children))
		for i, child := range f.Children {
			children[i] = createArrowField(child)
		}
		b.addVector(slotFieldChildren, children)
	}
	if len(f.CustomMetadata) > 0 {
		b.addVector(slotFieldMetadata, createArrowKeyValues(f.CustomMetadata))
	}
	return b.flatten()
}

// createArrowSchema flattens the file's field list, serialized little-endian.
func createArrowSchema(s Schema) *fbTable {
	b := newFBBuilder(3)
	b.addBool(slotSchemaEndianness, false) // false => Little, matching EndiannessLittle == 0
	if len(s.Fields) > 0 {
		fields := make([]*fbTable, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = createArrowField(f)
		}
		b.addVector(slotSchemaFields, fields)
	}
	if len(s.CustomMetadata) > 0 {
		b.addVector(slotSchemaMetadata, createArrowKeyValues(s.CustomMetadata))
	}
	return b.flatten()
}

func createArrowFieldNodeVector(nodes []fieldNode) []byte {
	out := make([]byte, 4+16*len(nodes))
	putLE32(out[0:4], int32(len(nodes)))
	for i, n := range nodes {
		off := 4 + 16*i
		putLE64(out[off:], n.length)
		putLE64(out[off+8:], n.nullCount)
	}
	return out
}

func createArrowBufferVector(buffers []arrowBuffer) []byte {
	out := make([]byte, 4+16*len(buffers))
	putLE32(out[0:4], int32(len(buffers)))
	for i, buf := range buffers {
		off := 4 + 16*i
		putLE64(out[off:], buf.offset)
		putLE64(out[off+8:], buf.length)
	}
	return out
}

func putLE64(dst []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		dst[i] = byte(u >> (8 * i))
	}
}

// createArrowRecordBatch flattens one batch's FieldNode and Buffer
// vectors. The Buffer vector is written at slot 2: the reference
// implementation reuses slot 1 for both vectors, silently discarding the
// FieldNode vector it just wrote; this encoder assigns the
// Buffer vector its own slot so both survive.
func createArrowRecordBatch(length int64, nodes []fieldNode, buffers []arrowBuffer) *fbTable {
	b := newFBBuilder(3)
	b.addInt64(slotRecordBatchLength, length)
	b.addBinary(slotRecordBatchNodes, createArrowFieldNodeVector(nodes), 0)
	b.addBinary(slotRecordBatchBuffers, createArrowBufferVector(buffers), 0)
	return b.flatten()
}

// createArrowMessage wraps a Schema or RecordBatch body in the envelope
// every Arrow IPC metadata block carries: a metadata version, a header type
// tag, the header table itself, and the length of the body that follows
// this message in the file (0 for a Schema message).
func createArrowMessage(header messageHeader, body *fbTable, bodyLength int64) *fbTable {
	b := newFBBuilder(4)
	b.addInt16(slotMessageVersion, int16(MetadataVersionV4))
	b.addInt8(slotMessageHeaderT, int8(header))
	b.addOffset(slotMessageHeader, body)
	b.addInt64(slotMessageBodyLen, bodyLength)
	return b.flatten()
}

func createArrowBlockVector(blocks []block) []byte {
	out := make([]byte, 4+24*len(blocks))
	putLE32(out[0:4], int32(len(blocks)))
	for i, blk := range blocks {
		off := 4 + 24*i
		putLE64(out[off:], blk.offset)
		putLE32(out[off+8:], blk.metaDataLength)
		putLE64(out[off+16:], blk.bodyLength)
	}
	return out
}

// createArrowFooter flattens the file's trailing metadata block: the
// schema (repeated verbatim from the file's first message) plus the
// dictionaries and recordBatches block index.
func createArrowFooter(schema Schema, dictionaries, recordBatches []block) *fbTable {
	b := newFBBuilder(4)
	b.addInt16(slotFooterVersion, int16(MetadataVersionV4))
	b.addOffset(slotFooterSchema, createArrowSchema(schema))
	b.addBinary(slotFooterDictionaries, createArrowBlockVector(dictionaries), 0)
	b.addBinary(slotFooterRecordBatches, createArrowBlockVector(recordBatches), 0)
	return b.flatten()
}
