// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

import (
	"encoding/binary"
	"math"
	"math/big"
)

// columnKind selects a column's put_value strategy.
type columnKind int

const (
	kindInline8 columnKind = iota
	kindInline16
	kindInline32
	kindInline64
	kindDecimal
	kindDate
	kindTimestamp
	kindVariable
	kindComposite
	kindArray
)

// statKind selects which running min/max accumulator a column maintains.
// Variable-length, decimal, and nested columns track no statistics, as in
// the reference ingester.
type statKind int

const (
	statKindNone statKind = iota
	statKindInt
	statKindFloat
)

// pgEpochToUnixDays is the offset, in days, between the PostgreSQL epoch
// (2000-01-01) and the Unix epoch (1970-01-01).
const pgEpochToUnixDays = 10957

// pgEpochToUnixMicros is pgEpochToUnixDays expressed in microseconds, for
// timestamp rebasing.
const pgEpochToUnixMicros = int64(pgEpochToUnixDays) * 86400 * 1000000

// decimalNBase is PostgreSQL's numeric wire base.
const decimalNBase = 10000

// numeric sign nibble values, per the numeric wire format.
const (
	numericSignPos = 0x0000
	numericSignNeg = 0x4000
	numericSignNaN = 0xc000
	numericSignMask = 0xc000
)

// column is the per-attribute ingester: a nullmap, a values buffer holding
// either inline fixed-width values or fixed-width offsets, and (for
// variable-length types) an extra buffer holding the variable-length
// payloads themselves. It mirrors SQLattribute from the reference
// implementation as a Go struct with a kind-dispatched put method in place
// of function pointers.
type column struct {
	desc  ColumnDesc
	field Field
	kind  columnKind

	nullmap *buffer
	values  *buffer
	extra   *buffer // only for kindVariable

	subtypes []*column // kindComposite (struct fields) or kindArray (element)

	rowCount  int
	nullCount int64

	statKind  statKind
	minIsNull bool
	maxIsNull bool
	minInt    int64
	maxInt    int64
	minFloat  float64
	maxFloat  float64
}

// put ingests one row's value for this column. raw is the row's wire-format
// bytes for this attribute; isNull selects the null path regardless of raw.
func (c *column) put(rowIndex int, raw []byte, isNull bool) error {
	switch c.kind {
	case kindInline8:
		return c.putInline(rowIndex, raw, isNull, 1)
	case kindInline16:
		return c.putInline(rowIndex, raw, isNull, 2)
	case kindInline32:
		return c.putInline(rowIndex, raw, isNull, 4)
	case kindInline64:
		return c.putInline(rowIndex, raw, isNull, 8)
	case kindDecimal:
		return c.putDecimal(rowIndex, raw, isNull)
	case kindDate:
		return c.putDate(rowIndex, raw, isNull)
	case kindTimestamp:
		return c.putTimestamp(rowIndex, raw, isNull)
	case kindVariable:
		return c.putVariable(rowIndex, raw, isNull)
	case kindComposite:
		return c.putComposite(rowIndex, raw, isNull)
	case kindArray:
		return ErrNotImplemented
	default:
		return ErrTypeNotSupported
	}
}

// putInline handles Int, FloatingPoint, Bool, and Time columns: a fixed
// byteWidth value, decoded from network byte order into the host's native
// (little-endian) byte order before being appended to values.
func (c *column) putInline(rowIndex int, raw []byte, isNull bool, byteWidth int) error {
	c.rowCount++
	if isNull {
		c.nullCount++
		if err := c.nullmap.clrBit(rowIndex); err != nil {
			return err
		}
		return c.values.appendZero(byteWidth)
	}
	if err := c.nullmap.setBit(rowIndex); err != nil {
		return err
	}
	var native [8]byte
	switch byteWidth {
	case 1:
		native[0] = raw[0]
	case 2:
		binary.LittleEndian.PutUint16(native[:2], binary.BigEndian.Uint16(raw))
	case 4:
		binary.LittleEndian.PutUint32(native[:4], binary.BigEndian.Uint32(raw))
	case 8:
		binary.LittleEndian.PutUint64(native[:8], binary.BigEndian.Uint64(raw))
	}
	if err := c.values.append(native[:byteWidth]); err != nil {
		return err
	}
	c.updateStat(native[:byteWidth])
	return nil
}

func (c *column) updateStat(native []byte) {
	switch c.statKind {
	case statKindInt:
		var v int64
		switch len(native) {
		case 1:
			v = int64(int8(native[0]))
		case 2:
			v = int64(int16(binary.LittleEndian.Uint16(native)))
		case 4:
			v = int64(int32(binary.LittleEndian.Uint32(native)))
		case 8:
			v = int64(binary.LittleEndian.Uint64(native))
		}
		if c.minIsNull || v < c.minInt {
			c.minInt = v
			c.minIsNull = false
		}
		if c.maxIsNull || v > c.maxInt {
			c.maxInt = v
			c.maxIsNull = false
		}
	case statKindFloat:
		var v float64
		switch len(native) {
		case 4:
			v = float64(math.Float32frombits(binary.LittleEndian.Uint32(native)))
		case 8:
			v = math.Float64frombits(binary.LittleEndian.Uint64(native))
		}
		if c.minIsNull || v < c.minFloat {
			c.minFloat = v
			c.minIsNull = false
		}
		if c.maxIsNull || v > c.maxFloat {
			c.maxFloat = v
			c.maxIsNull = false
		}
	}
}

// putDate handles the 4-byte PostgreSQL date type: days since the
// PostgreSQL epoch on the wire, rebased here to days since the Unix epoch.
func (c *column) putDate(rowIndex int, raw []byte, isNull bool) error {
	c.rowCount++
	if isNull {
		c.nullCount++
		if err := c.nullmap.clrBit(rowIndex); err != nil {
			return err
		}
		return c.values.appendZero(4)
	}
	if err := c.nullmap.setBit(rowIndex); err != nil {
		return err
	}
	days := int32(binary.BigEndian.Uint32(raw)) + pgEpochToUnixDays
	var native [4]byte
	binary.LittleEndian.PutUint32(native[:], uint32(days))
	if err := c.values.append(native[:]); err != nil {
		return err
	}
	c.updateStat(native[:])
	return nil
}

// putTimestamp handles the 8-byte PostgreSQL timestamp(tz) type:
// microseconds since the PostgreSQL epoch, rebased to microseconds since the
// Unix epoch.
func (c *column) putTimestamp(rowIndex int, raw []byte, isNull bool) error {
	c.rowCount++
	if isNull {
		c.nullCount++
		if err := c.nullmap.clrBit(rowIndex); err != nil {
			return err
		}
		return c.values.appendZero(8)
	}
	if err := c.nullmap.setBit(rowIndex); err != nil {
		return err
	}
	micros := int64(binary.BigEndian.Uint64(raw)) + pgEpochToUnixMicros
	var native [8]byte
	binary.LittleEndian.PutUint64(native[:], uint64(micros))
	if err := c.values.append(native[:]); err != nil {
		return err
	}
	c.updateStat(native[:])
	return nil
}

// putVariable handles Utf8 and Binary columns: values holds a running
// sequence of uint32 offsets into extra, one more entry than there are
// rows, per the columnar format's variable-length layout.
func (c *column) putVariable(rowIndex int, raw []byte, isNull bool) error {
	c.rowCount++
	if rowIndex == 0 {
		if err := c.values.appendZero(4); err != nil {
			return err
		}
	}
	if isNull {
		c.nullCount++
		if err := c.nullmap.clrBit(rowIndex); err != nil {
			return err
		}
	} else {
		if err := c.nullmap.setBit(rowIndex); err != nil {
			return err
		}
		if err := c.extra.append(raw); err != nil {
			return err
		}
	}
	var offset [4]byte
	binary.LittleEndian.PutUint32(offset[:], uint32(c.extra.usage))
	return c.values.append(offset[:])
}

// compositeSubfield is one subfield's validated disposition, computed by
// parseComposite before any column state is touched.
type compositeSubfield struct {
	null bool
	raw  []byte
}

// parseComposite validates the entire {nvalid, subfields} structure against
// subtypes and raw's bounds without mutating c or any subtype: a subfield
// past nvalid, a type mismatch, or a byte range past the end of raw is
// reported here, before putComposite commits anything for this row.
func (c *column) parseComposite(raw []byte) ([]compositeSubfield, error) {
	if len(raw) < 4 {
		return nil, ErrCompositeCorruption
	}
	nvalid := int(int32(binary.BigEndian.Uint32(raw)))
	pos := 4
	fields := make([]compositeSubfield, len(c.subtypes))
	for j, sub := range c.subtypes {
		if j >= nvalid {
			fields[j] = compositeSubfield{null: true}
			continue
		}
		if pos+8 > len(raw) {
			return nil, ErrCompositeCorruption
		}
		attTypeID := binary.BigEndian.Uint32(raw[pos:])
		pos += 4
		if sub.desc.TypeOID != 0 && attTypeID != sub.desc.TypeOID {
			return nil, ErrCompositeCorruption
		}
		attLen := int32(binary.BigEndian.Uint32(raw[pos:]))
		pos += 4
		if attLen == -1 {
			fields[j] = compositeSubfield{null: true}
			continue
		}
		if attLen < 0 || pos+int(attLen) > len(raw) {
			return nil, ErrCompositeCorruption
		}
		fields[j] = compositeSubfield{raw: raw[pos : pos+int(attLen)]}
		pos += int(attLen)
	}
	return fields, nil
}

// putComposite handles a Struct column: PostgreSQL's binary composite
// format is {int32 nvalid, repeated {int32 atttypid, int32 attlen, bytes}};
// each subfield is dispatched to its own column regardless of whether this
// row itself is null, since every child buffer must advance in lockstep for
// row_index to stay meaningful.
func (c *column) putComposite(rowIndex int, raw []byte, isNull bool) error {
	if isNull {
		c.rowCount++
		c.nullCount++
		if err := c.nullmap.clrBit(rowIndex); err != nil {
			return err
		}
		for _, sub := range c.subtypes {
			if err := sub.put(rowIndex, nil, true); err != nil {
				return err
			}
		}
		return nil
	}

	fields, err := c.parseComposite(raw)
	if err != nil {
		return err
	}

	c.rowCount++
	if err := c.nullmap.setBit(rowIndex); err != nil {
		return err
	}
	for j, sub := range c.subtypes {
		f := fields[j]
		if err := sub.put(rowIndex, f.raw, f.null); err != nil {
			return err
		}
	}
	return nil
}

// putDecimal handles PostgreSQL's numeric type, mapped onto Arrow's fixed
// precision Decimal128: the wire format's base-10000 digit sequence is
// accumulated into a big.Int, then encoded as a 16-byte little-endian
// two's complement integer scaled to the column's chosen display scale.
func (c *column) putDecimal(rowIndex int, raw []byte, isNull bool) error {
	c.rowCount++
	if isNull {
		c.nullCount++
		if err := c.nullmap.clrBit(rowIndex); err != nil {
			return err
		}
		return c.values.appendZero(16)
	}
	if err := c.nullmap.setBit(rowIndex); err != nil {
		return err
	}
	if len(raw) < 8 {
		return ErrCompositeCorruption
	}
	ndigits := int(binary.BigEndian.Uint16(raw[0:2]))
	weight := int(int16(binary.BigEndian.Uint16(raw[2:4])))
	sign := binary.BigEndian.Uint16(raw[4:6])
	if sign&numericSignMask == numericSignNaN {
		return ErrDecimalNaN
	}
	digitAt := func(d int) (int, error) {
		if d < 0 || d >= ndigits {
			return 0, nil
		}
		off := 8 + d*2
		if off+2 > len(raw) {
			return 0, ErrCompositeCorruption
		}
		dig := int(binary.BigEndian.Uint16(raw[off : off+2]))
		if dig < 0 || dig >= decimalNBase {
			return 0, ErrDecimalDigitOutOfRange
		}
		return dig, nil
	}

	value := new(big.Int)
	d := 0
	for ; d <= weight; d++ {
		dig, err := digitAt(d)
		if err != nil {
			return err
		}
		value.Mul(value, big.NewInt(decimalNBase))
		value.Add(value, big.NewInt(int64(dig)))
	}
	ascale := int(c.field.Type.DecimalScale)
	for ascale > 0 {
		dig, err := digitAt(d)
		if err != nil {
			return err
		}
		switch {
		case ascale >= 4:
			value.Mul(value, big.NewInt(decimalNBase))
			value.Add(value, big.NewInt(int64(dig)))
		case ascale == 3:
			value.Mul(value, big.NewInt(1000))
			value.Add(value, big.NewInt(int64(dig/10)))
		case ascale == 2:
			value.Mul(value, big.NewInt(100))
			value.Add(value, big.NewInt(int64(dig/100)))
		case ascale == 1:
			value.Mul(value, big.NewInt(10))
			value.Add(value, big.NewInt(int64(dig/1000)))
		}
		ascale -= 4
		d++
	}
	if sign == numericSignNeg {
		value.Neg(value)
	}

	native := decimal128LE(value)
	if err := c.values.append(native[:]); err != nil {
		return err
	}
	return nil
}

// decimal128LE encodes v as a 16-byte little-endian two's complement
// integer, Arrow's Decimal128 wire layout.
func decimal128LE(v *big.Int) [16]byte {
	var out [16]byte
	if v.Sign() >= 0 {
		b := v.Bytes()
		for i := 0; i < len(b) && i < 16; i++ {
			out[i] = b[len(b)-1-i]
		}
		return out
	}
	mod := new(big.Int).Lsh(big.NewInt(1), 128)
	pos := new(big.Int).Add(mod, v)
	b := pos.Bytes()
	for i := 0; i < len(b) && i < 16; i++ {
		out[i] = b[len(b)-1-i]
	}
	return out
}

// usage returns this column's current aligned byte footprint across its
// nullmap, values, and (if any) extra and subtype buffers - the quantity
// the writer compares against the configured segment size to decide
// whether to flush.
func (c *column) usage() int {
	total := align8(c.values.usage)
	if c.nullCount > 0 {
		total += align8(c.nullmap.usage)
	}
	if c.extra != nil {
		total += align8(c.extra.usage)
	}
	for _, sub := range c.subtypes {
		total += sub.usage()
	}
	return total
}

// reset clears all of this column's buffers and counters so the same
// ingester can be reused for the next record batch.
func (c *column) reset() {
	c.rowCount = 0
	c.nullCount = 0
	c.nullmap.clear()
	c.values.clear()
	if c.extra != nil {
		c.extra.clear()
	}
	c.minIsNull, c.maxIsNull = true, true
	for _, sub := range c.subtypes {
		sub.reset()
	}
}

// release unmaps every buffer owned by this column, recursively.
func (c *column) release() {
	c.nullmap.release()
	c.values.release()
	if c.extra != nil {
		c.extra.release()
	}
	for _, sub := range c.subtypes {
		sub.release()
	}
}

// columnSnapshot captures the mutable state put() touches, so a row that
// overflows the current batch's segment size can be undone and replayed
// against a fresh batch.
type columnSnapshot struct {
	nullmapUsage int
	valuesUsage  int
	extraUsage   int
	rowCount     int
	nullCount    int64
	minIsNull    bool
	maxIsNull    bool
	minInt       int64
	maxInt       int64
	minFloat     float64
	maxFloat     float64
	subtypes     []columnSnapshot
}

func (c *column) snapshot() columnSnapshot {
	s := columnSnapshot{
		nullmapUsage: c.nullmap.usage,
		valuesUsage:  c.values.usage,
		rowCount:     c.rowCount,
		nullCount:    c.nullCount,
		minIsNull:    c.minIsNull,
		maxIsNull:    c.maxIsNull,
		minInt:       c.minInt,
		maxInt:       c.maxInt,
		minFloat:     c.minFloat,
		maxFloat:     c.maxFloat,
	}
	if c.extra != nil {
		s.extraUsage = c.extra.usage
	}
	if len(c.subtypes) > 0 {
		s.subtypes = make([]columnSnapshot, len(c.subtypes))
		for i, sub := range c.subtypes {
			s.subtypes[i] = sub.snapshot()
		}
	}
	return s
}

func (c *column) restore(s columnSnapshot) {
	c.nullmap.usage = s.nullmapUsage
	c.values.usage = s.valuesUsage
	if c.extra != nil {
		c.extra.usage = s.extraUsage
	}
	c.rowCount = s.rowCount
	c.nullCount = s.nullCount
	c.minIsNull = s.minIsNull
	c.maxIsNull = s.maxIsNull
	c.minInt = s.minInt
	c.maxInt = s.maxInt
	c.minFloat = s.minFloat
	c.maxFloat = s.maxFloat
	for i, sub := range c.subtypes {
		sub.restore(s.subtypes[i])
	}
}
