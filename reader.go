// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

import (
	"encoding/binary"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/rs/zerolog"
)

// Reader mmaps a columnar-format file written by Writer and reconstructs
// its Schema and RecordBatch block index without copying the file's bulk
// data into the Go heap; record batch bodies are read out lazily via
// RecordBatchAt.
type Reader struct {
	data mmap.MMap
	file *os.File

	Schema        Schema
	RecordBatches []block
	Dictionaries  []block

	logger zerolog.Logger
}

// OpenReader mmaps path and parses its magic, Schema message, Footer, and
// tail. It does not read any record batch bodies; call RecordBatchAt for
// that.
func OpenReader(path string, opts ReaderOptions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	r := &Reader{data: data, file: f, logger: opts.logger()}
	if err := r.parse(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Close unmaps and closes the underlying file.
func (r *Reader) Close() error {
	if r.data != nil {
		r.data.Unmap()
		r.data = nil
	}
	return r.file.Close()
}

func (r *Reader) parse() error {
	if len(r.data) < len(fileMagic)+14 {
		return ErrBadMagic
	}
	if string(r.data[:len(fileMagic)]) != fileMagic {
		return ErrBadMagic
	}
	tail := r.data[len(r.data)-14:]
	if string(tail[8:]) != tailMagic {
		return ErrBadTail
	}
	footerOffset := int64(binary.LittleEndian.Uint64(tail[0:8]))

	version, header, tableRoot, _, err := r.readMessage(int(len(fileMagic)))
	if err != nil {
		return err
	}
	if version != MetadataVersionV4 {
		return ErrUnsupportedMetadataVersion
	}
	if header != messageHeaderSchema {
		return ErrUnsupportedMessageHeader
	}
	schema, err := r.decodeSchema(tableRoot)
	if err != nil {
		return err
	}
	r.Schema = schema

	footerRoot := r.resolveIndirect(int(footerOffset) + 4)
	return r.decodeFooter(footerRoot)
}

// readMessage parses a flat-table message header at offset, returning its
// declared version, header union tag, the absolute position of the
// header table's root, and the message's metaLength word as written by
// writeFlatMessage (4 plus the flat-table image length rounded up to 8).
func (r *Reader) readMessage(offset int) (MetadataVersion, messageHeader, int, int, error) {
	if offset+8 > len(r.data) {
		return 0, 0, 0, 0, ErrOutsideBoundary
	}
	metaLen := int(int32(binary.LittleEndian.Uint32(r.data[offset:])))
	msgRoot := r.resolveIndirect(offset + 4)

	version := MetadataVersion(r.fetchInt16(msgRoot, slotMessageVersion))
	headerTag := messageHeader(r.fetchInt8(msgRoot, slotMessageHeaderT))
	headerRoot, ok := r.fetchSubTableRoot(msgRoot, slotMessageHeader)
	if !ok {
		return 0, 0, 0, 0, ErrUnsupportedMessageHeader
	}
	return version, headerTag, headerRoot, metaLen, nil
}

// RecordBatchAt parses the RecordBatch message at the given block and
// returns its row count, FieldNode list, and Buffer list; callers read
// buffer bytes directly from the mmap'd body that follows the message
// header, at blk.offset + blk.metaDataLength + buffer.offset.
func (r *Reader) RecordBatchAt(blk block) (int64, []fieldNode, []arrowBuffer, error) {
	version, header, tableRoot, _, err := r.readMessage(int(blk.offset))
	if err != nil {
		return 0, nil, nil, err
	}
	if version != MetadataVersionV4 {
		return 0, nil, nil, ErrUnsupportedMetadataVersion
	}
	if header != messageHeaderRecordBatch {
		return 0, nil, nil, ErrUnsupportedMessageHeader
	}
	length := r.fetchInt64(tableRoot, slotRecordBatchLength)
	nodesRoot, hasNodes := r.fetchBinary(tableRoot, slotRecordBatchNodes)
	buffersRoot, hasBuffers := r.fetchBinary(tableRoot, slotRecordBatchBuffers)
	var nodes []fieldNode
	if hasNodes {
		nodes = r.decodeFieldNodeVector(nodesRoot)
	}
	var buffers []arrowBuffer
	if hasBuffers {
		buffers = r.decodeBufferVector(buffersRoot)
	}
	return length, nodes, buffers, nil
}

func (r *Reader) decodeFieldNodeVector(pos int) []fieldNode {
	n := int(int32(binary.LittleEndian.Uint32(r.data[pos:])))
	out := make([]fieldNode, n)
	for i := 0; i < n; i++ {
		off := pos + 4 + 16*i
		out[i] = fieldNode{
			length:    int64(binary.LittleEndian.Uint64(r.data[off:])),
			nullCount: int64(binary.LittleEndian.Uint64(r.data[off+8:])),
		}
	}
	return out
}

func (r *Reader) decodeBufferVector(pos int) []arrowBuffer {
	n := int(int32(binary.LittleEndian.Uint32(r.data[pos:])))
	out := make([]arrowBuffer, n)
	for i := 0; i < n; i++ {
		off := pos + 4 + 16*i
		out[i] = arrowBuffer{
			offset: int64(binary.LittleEndian.Uint64(r.data[off:])),
			length: int64(binary.LittleEndian.Uint64(r.data[off+8:])),
		}
	}
	return out
}

func (r *Reader) decodeBlockVector(pos int) []block {
	n := int(int32(binary.LittleEndian.Uint32(r.data[pos:])))
	out := make([]block, n)
	for i := 0; i < n; i++ {
		off := pos + 4 + 24*i
		out[i] = block{
			offset:         int64(binary.LittleEndian.Uint64(r.data[off:])),
			metaDataLength: int32(binary.LittleEndian.Uint32(r.data[off+8:])),
			bodyLength:     int64(binary.LittleEndian.Uint64(r.data[off+16:])),
		}
	}
	return out
}

func (r *Reader) decodeFooter(tableRoot int) error {
	version := MetadataVersion(r.fetchInt16(tableRoot, slotFooterVersion))
	if version != MetadataVersionV4 {
		return ErrUnsupportedMetadataVersion
	}
	schemaRoot, ok := r.fetchSubTableRoot(tableRoot, slotFooterSchema)
	if ok {
		schema, err := r.decodeSchema(schemaRoot)
		if err != nil {
			return err
		}
		r.Schema = schema
	}
	if pos, ok := r.fetchBinary(tableRoot, slotFooterDictionaries); ok {
		r.Dictionaries = r.decodeBlockVector(pos)
	}
	if pos, ok := r.fetchBinary(tableRoot, slotFooterRecordBatches); ok {
		r.RecordBatches = r.decodeBlockVector(pos)
	}
	return nil
}

func (r *Reader) decodeSchema(tableRoot int) (Schema, error) {
	var s Schema
	if fieldsPos, ok := r.fetchBinary(tableRoot, slotSchemaFields); ok {
		n := int(int32(binary.LittleEndian.Uint32(r.data[fieldsPos:])))
		s.Fields = make([]Field, n)
		for i := 0; i < n; i++ {
			fieldRoot := r.resolveIndirect(fieldsPos + 4 + 4*i)
			f, err := r.decodeField(fieldRoot)
			if err != nil {
				return Schema{}, err
			}
			s.Fields[i] = f
		}
	}
	if kvPos, ok := r.fetchBinary(tableRoot, slotSchemaMetadata); ok {
		s.CustomMetadata = r.decodeKeyValueVector(kvPos)
	}
	return s, nil
}

func (r *Reader) decodeKeyValueVector(pos int) []KeyValue {
	n := int(int32(binary.LittleEndian.Uint32(r.data[pos:])))
	out := make([]KeyValue, n)
	for i := 0; i < n; i++ {
		root := r.resolveIndirect(pos + 4 + 4*i)
		out[i] = KeyValue{
			Key:   r.fetchString(root, slotKeyValueKey),
			Value: r.fetchString(root, slotKeyValueValue),
		}
	}
	return out
}

func (r *Reader) decodeField(tableRoot int) (Field, error) {
	f := Field{
		Name:     r.fetchString(tableRoot, slotFieldName),
		Nullable: r.fetchBool(tableRoot, slotFieldNullable),
	}
	tag := TypeTag(r.fetchInt8(tableRoot, slotFieldTypeTag))
	typeRoot, hasType := r.fetchSubTableRoot(tableRoot, slotFieldType)
	dt, err := r.decodeDataType(tag, typeRoot, hasType)
	if err != nil {
		return Field{}, err
	}
	f.Type = dt

	if dictRoot, ok := r.fetchSubTableRoot(tableRoot, slotFieldDictionary); ok {
		dict := r.decodeDictionaryEncoding(dictRoot)
		f.Dictionary = &dict
	}
	if childrenPos, ok := r.fetchBinary(tableRoot, slotFieldChildren); ok {
		n := int(int32(binary.LittleEndian.Uint32(r.data[childrenPos:])))
		f.Children = make([]Field, n)
		for i := 0; i < n; i++ {
			childRoot := r.resolveIndirect(childrenPos + 4 + 4*i)
			child, err := r.decodeField(childRoot)
			if err != nil {
				return Field{}, err
			}
			f.Children[i] = child
		}
	}
	if kvPos, ok := r.fetchBinary(tableRoot, slotFieldMetadata); ok {
		f.CustomMetadata = r.decodeKeyValueVector(kvPos)
	}
	return f, nil
}

func (r *Reader) decodeDictionaryEncoding(tableRoot int) DictionaryEncoding {
	d := DictionaryEncoding{
		ID:        r.fetchInt64(tableRoot, slotDictID),
		IsOrdered: r.fetchBool(tableRoot, slotDictOrdered),
	}
	if idxRoot, ok := r.fetchSubTableRoot(tableRoot, slotDictIndexType); ok {
		d.IndexType = DataType{
			Tag:         TypeInt,
			IntBitWidth: r.fetchInt32(idxRoot, slotIntBitWidth),
			IntSigned:   r.fetchBool(idxRoot, slotIntSigned),
		}
	}
	return d
}

// decodeDataType reconstructs the variant payload for tag, reading from
// typeRoot when the variant carries fields of its own (hasType false for
// Null/Bool/Binary/Utf8/Struct/List, whose Type node is empty).
//
// Timestamp's unit is read as a 16-bit field (fetchInt16), not 32-bit: the
// reference writer stores it with fetchInt/32-bit width instead, a latent
// mismatch against its own declared schema that this implementation does
// not reproduce.
func (r *Reader) decodeDataType(tag TypeTag, typeRoot int, hasType bool) (DataType, error) {
	dt := DataType{Tag: tag}
	if !hasType {
		return dt, nil
	}
	switch tag {
	case TypeInt:
		dt.IntBitWidth = r.fetchInt32(typeRoot, slotIntBitWidth)
		dt.IntSigned = r.fetchBool(typeRoot, slotIntSigned)
	case TypeFloatingPoint:
		dt.FloatPrecision = Precision(r.fetchInt16(typeRoot, slotFPPrecision))
	case TypeDecimal:
		dt.DecimalPrecision = r.fetchInt32(typeRoot, 0)
		dt.DecimalScale = r.fetchInt32(typeRoot, 1)
	case TypeDate:
		dt.DateUnitVal = DateUnit(r.fetchInt16(typeRoot, 0))
	case TypeTime:
		dt.TimeUnitVal = TimeUnit(r.fetchInt16(typeRoot, 0))
		dt.TimeBitWidth = r.fetchInt32(typeRoot, 1)
	case TypeTimestamp:
		dt.TimestampUnit = TimeUnit(r.fetchInt16(typeRoot, 0))
		dt.TimestampTimezone = r.fetchString(typeRoot, 1)
	case TypeInterval:
		dt.IntervalUnitVal = IntervalUnit(r.fetchInt16(typeRoot, 0))
	case TypeUnion:
		dt.UnionModeVal = UnionMode(r.fetchInt16(typeRoot, 0))
		if pos, ok := r.fetchBinary(typeRoot, 1); ok {
			n := int(int32(binary.LittleEndian.Uint32(r.data[pos:])))
			dt.UnionTypeIDs = make([]int32, n)
			for i := 0; i < n; i++ {
				dt.UnionTypeIDs[i] = int32(binary.LittleEndian.Uint32(r.data[pos+4+4*i:]))
			}
		}
	case TypeFixedSizeBinary:
		dt.FixedSizeByteWidth = r.fetchInt32(typeRoot, 0)
	case TypeFixedSizeList:
		dt.FixedListSize = r.fetchInt32(typeRoot, 0)
	case TypeMap:
		dt.MapKeysSorted = r.fetchBool(typeRoot, 0)
	}
	return dt, nil
}

// --- flat-table field access ---------------------------------------------

func (r *Reader) resolveIndirect(fieldAddr int) int {
	rel := int32(binary.LittleEndian.Uint32(r.data[fieldAddr:]))
	return fieldAddr + int(rel)
}

// vtableFor returns the absolute position of tableRoot's vtable and the
// vtable's own length in bytes.
func (r *Reader) vtableFor(tableRoot int) (int, int) {
	vlen := int(binary.LittleEndian.Uint32(r.data[tableRoot:]))
	return tableRoot - vlen, vlen
}

// slotField returns the absolute field position for slot, and whether the
// field is present (a present-but-zero-valued scalar is indistinguishable
// from absent, matching the builder's default-value elision).
func (r *Reader) slotField(tableRoot, slot int) (int, bool) {
	vtableAbs, vlen := r.vtableFor(tableRoot)
	slotPos := 4 + 2*slot
	if slotPos+2 > vlen {
		return 0, false
	}
	off := int(binary.LittleEndian.Uint16(r.data[vtableAbs+slotPos:]))
	if off == 0 {
		return 0, false
	}
	return tableRoot + off, true
}

func (r *Reader) fetchBool(tableRoot, slot int) bool {
	addr, ok := r.slotField(tableRoot, slot)
	if !ok {
		return false
	}
	return r.data[addr] != 0
}

func (r *Reader) fetchInt8(tableRoot, slot int) int8 {
	addr, ok := r.slotField(tableRoot, slot)
	if !ok {
		return 0
	}
	return int8(r.data[addr])
}

func (r *Reader) fetchInt16(tableRoot, slot int) int16 {
	addr, ok := r.slotField(tableRoot, slot)
	if !ok {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(r.data[addr:]))
}

func (r *Reader) fetchInt32(tableRoot, slot int) int32 {
	addr, ok := r.slotField(tableRoot, slot)
	if !ok {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(r.data[addr:]))
}

func (r *Reader) fetchInt64(tableRoot, slot int) int64 {
	addr, ok := r.slotField(tableRoot, slot)
	if !ok {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(r.data[addr:]))
}

// fetchBinary returns the absolute start of slot's extra payload (a
// length-prefixed string, a raw packed vector, or a sub-table's root,
// depending on the field).
func (r *Reader) fetchBinary(tableRoot, slot int) (int, bool) {
	addr, ok := r.slotField(tableRoot, slot)
	if !ok {
		return 0, false
	}
	return r.resolveIndirect(addr), true
}

func (r *Reader) fetchSubTableRoot(tableRoot, slot int) (int, bool) {
	return r.fetchBinary(tableRoot, slot)
}

func (r *Reader) fetchString(tableRoot, slot int) string {
	pos, ok := r.fetchBinary(tableRoot, slot)
	if !ok {
		return ""
	}
	slen := int(int32(binary.LittleEndian.Uint32(r.data[pos:])))
	return string(r.data[pos+4 : pos+4+slen])
}
