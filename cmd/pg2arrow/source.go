// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/heterodb/pg2arrow-go"
	"github.com/heterodb/pg2arrow-go/internal/pgcatalog"
)

// pgEpochDays mirrors the rebasing column.go performs on the way in: this
// adapter re-encodes the *wire* representation a live connection would
// have produced, so the ingester's date/timestamp handlers still do their
// own PostgreSQL-epoch-to-Unix-epoch conversion exactly once.
const pgEpochDays = 10957

// sqlRowSource adapts *sql.Rows to arrow.RowSource. database/sql (and the
// lib/pq driver beneath it) decode each column into a Go value before this
// package ever sees it; Next (through encodeWire) re-encodes that decoded
// value into the same network-byte-order wire format a direct libpq binary
// result would have carried, so the column ingester's put_value handlers
// - written against that wire format - work unmodified regardless of
// whether their bytes came from a real binary result or this bridge.
type sqlRowSource struct {
	rows    *sql.Rows
	columns []arrow.ColumnDesc
	scanBuf []interface{}
	err     error
}

func newSQLRowSource(rows *sql.Rows) (*sqlRowSource, error) {
	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	descs := make([]arrow.ColumnDesc, len(cols))
	scanBuf := make([]interface{}, len(cols))
	for i, col := range cols {
		oid := pgcatalog.OIDFromDatabaseTypeName(col.DatabaseTypeName())
		descs[i] = arrow.ColumnDesc{
			AttName:       col.Name(),
			TypeOID:       oid,
			ByteLength:    pgcatalog.ByteLength(oid),
			TypeNamespace: "pg_catalog",
			TypeName:      strings.ToLower(col.DatabaseTypeName()),
		}
		if oid == pgcatalog.OIDNumeric {
			if precision, scale, ok := col.DecimalSize(); ok {
				descs[i].TypeModifier = int32(4 + precision<<16 + scale)
			}
		}
		scanBuf[i] = new(sql.RawBytes)
	}
	return &sqlRowSource{rows: rows, columns: descs, scanBuf: scanBuf}, nil
}

func (s *sqlRowSource) Next() ([]arrow.ColumnValue, bool, error) {
	if !s.rows.Next() {
		return nil, false, s.rows.Err()
	}
	if err := s.rows.Scan(s.scanBuf...); err != nil {
		return nil, false, err
	}
	row := make([]arrow.ColumnValue, len(s.columns))
	for i, desc := range s.columns {
		raw := *(s.scanBuf[i].(*sql.RawBytes))
		if raw == nil {
			row[i] = arrow.ColumnValue{Null: true}
			continue
		}
		wire, err := encodeWire(desc, string(raw))
		if err != nil {
			return nil, false, fmt.Errorf("column %q: %w", desc.AttName, err)
		}
		row[i] = arrow.ColumnValue{Bytes: wire}
	}
	return row, true, nil
}

// encodeWire re-encodes value's text-format string (lib/pq's native
// decoding format) into the big-endian binary wire layout this module's
// column ingesters expect.
func encodeWire(desc arrow.ColumnDesc, value string) ([]byte, error) {
	switch desc.TypeOID {
	case pgcatalog.OIDBool:
		if value == "true" || value == "t" {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case pgcatalog.OIDInt2:
		v, err := strconv.ParseInt(value, 10, 16)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(v))
		return buf, nil
	case pgcatalog.OIDInt4:
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(v))
		return buf, nil
	case pgcatalog.OIDInt8:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v))
		return buf, nil
	case pgcatalog.OIDFloat4:
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
		return buf, nil
	case pgcatalog.OIDFloat8:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(v))
		return buf, nil
	case pgcatalog.OIDText, pgcatalog.OIDVarchar, pgcatalog.OIDBpchar, pgcatalog.OIDBytea:
		return []byte(value), nil
	case pgcatalog.OIDDate:
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return nil, err
		}
		days := int32(t.Unix()/86400) - pgEpochDays
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(days))
		return buf, nil
	case pgcatalog.OIDTimestamp, pgcatalog.OIDTimestamptz:
		layout := "2006-01-02 15:04:05.999999"
		t, err := time.Parse(layout, value)
		if err != nil {
			return nil, err
		}
		micros := t.Unix()*1000000 + int64(t.Nanosecond())/1000 - int64(pgEpochDays)*86400*1000000
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(micros))
		return buf, nil
	case pgcatalog.OIDTime:
		t, err := time.Parse("15:04:05.999999", value)
		if err != nil {
			return nil, err
		}
		micros := int64(t.Hour()*3600+t.Minute()*60+t.Second())*1000000 + int64(t.Nanosecond())/1000
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(micros))
		return buf, nil
	case pgcatalog.OIDNumeric:
		return encodeNumericWire(value)
	default:
		return []byte(value), nil
	}
}

// encodeNumericWire reconstructs PostgreSQL's base-10000 numeric wire
// format from a decimal string, the inverse of column.go's putDecimal.
func encodeNumericWire(value string) ([]byte, error) {
	neg := strings.HasPrefix(value, "-")
	value = strings.TrimPrefix(value, "-")
	intPart, fracPart, _ := strings.Cut(value, ".")
	dscale := len(fracPart)

	full := new(big.Int)
	full.SetString(intPart+fracPart, 10)

	// Weight is expressed in NBASE (10000) digit groups, counted from the
	// decimal point: group the digits of intPart into 4-digit chunks.
	weight := (len(intPart) - 1) / 4
	if len(intPart) == 0 {
		weight = -1
	}

	// intPart and fracPart are padded to a multiple of 4 independently -
	// intPart on the left, fracPart on the right - before concatenating,
	// so each resulting 4-digit group still lines up on a NBASE boundary
	// counted from the decimal point; padding the concatenation as a
	// whole would misalign fracPart whenever len(intPart) isn't already
	// a multiple of 4.
	leadPad := (4 - len(intPart)%4) % 4
	paddedInt := strings.Repeat("0", leadPad) + intPart
	trailPad := (4 - len(fracPart)%4) % 4
	paddedFrac := fracPart + strings.Repeat("0", trailPad)
	padded := paddedInt + paddedFrac

	var digits []uint16
	for i := 0; i < len(padded); i += 4 {
		d, err := strconv.ParseUint(padded[i:i+4], 10, 16)
		if err != nil {
			return nil, err
		}
		digits = append(digits, uint16(d))
	}
	for len(digits) > 0 && digits[len(digits)-1] == 0 {
		digits = digits[:len(digits)-1]
	}
	for len(digits) > 0 && digits[0] == 0 && weight >= 0 {
		digits = digits[1:]
		weight--
	}

	sign := uint16(0x0000)
	if neg && full.Sign() != 0 {
		sign = 0x4000
	}

	buf := make([]byte, 8+2*len(digits))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(digits)))
	binary.BigEndian.PutUint16(buf[2:4], uint16(int16(weight)))
	binary.BigEndian.PutUint16(buf[4:6], sign)
	binary.BigEndian.PutUint16(buf[6:8], uint16(dscale))
	for i, d := range digits {
		binary.BigEndian.PutUint16(buf[8+2*i:], d)
	}
	return buf, nil
}
