// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package pgcatalog names the small set of pg_catalog base type OIDs and
// type names this module recognizes, so cmd/pg2arrow can populate a
// ColumnDesc without depending on a live connection's pg_type catalog.
package pgcatalog

// Well-known pg_catalog base type OIDs, from PostgreSQL's own
// src/include/catalog/pg_type.dat - stable across server versions.
const (
	OIDBool        uint32 = 16
	OIDBytea       uint32 = 17
	OIDInt8        uint32 = 20
	OIDInt2        uint32 = 21
	OIDInt4        uint32 = 23
	OIDText        uint32 = 25
	OIDFloat4      uint32 = 700
	OIDFloat8      uint32 = 701
	OIDBpchar      uint32 = 1042
	OIDVarchar     uint32 = 1043
	OIDDate        uint32 = 1082
	OIDTime        uint32 = 1083
	OIDTimestamp   uint32 = 1114
	OIDTimestamptz uint32 = 1184
	OIDNumeric     uint32 = 1700
)

// ByteLength returns the fixed on-wire length for a type OID this module
// treats as inline (bool/int2/int4/int8/float4/float8/date/time/timestamp),
// or -1 for anything varlena or unrecognized.
func ByteLength(oid uint32) int16 {
	switch oid {
	case OIDBool:
		return 1
	case OIDInt2:
		return 2
	case OIDInt4, OIDFloat4, OIDDate:
		return 4
	case OIDInt8, OIDFloat8, OIDTime, OIDTimestamp, OIDTimestamptz:
		return 8
	default:
		return -1
	}
}

// TypeName returns the pg_catalog.typname this module expects for oid, or
// "" if oid is outside the recognized set.
func TypeName(oid uint32) string {
	switch oid {
	case OIDBool:
		return "bool"
	case OIDBytea:
		return "bytea"
	case OIDInt2:
		return "int2"
	case OIDInt4:
		return "int4"
	case OIDInt8:
		return "int8"
	case OIDText:
		return "text"
	case OIDFloat4:
		return "float4"
	case OIDFloat8:
		return "float8"
	case OIDBpchar:
		return "bpchar"
	case OIDVarchar:
		return "varchar"
	case OIDDate:
		return "date"
	case OIDTime:
		return "time"
	case OIDTimestamp:
		return "timestamp"
	case OIDTimestamptz:
		return "timestamptz"
	case OIDNumeric:
		return "numeric"
	default:
		return ""
	}
}

// OIDFromDatabaseTypeName maps database/sql's (*sql.ColumnType).DatabaseTypeName()
// - as reported by lib/pq - back to a pg_catalog OID, for callers building
// a ColumnDesc from a live query's result metadata instead of a catalog
// lookup.
func OIDFromDatabaseTypeName(name string) uint32 {
	switch name {
	case "BOOL":
		return OIDBool
	case "BYTEA":
		return OIDBytea
	case "INT2":
		return OIDInt2
	case "INT4":
		return OIDInt4
	case "INT8":
		return OIDInt8
	case "TEXT":
		return OIDText
	case "FLOAT4":
		return OIDFloat4
	case "FLOAT8":
		return OIDFloat8
	case "BPCHAR":
		return OIDBpchar
	case "VARCHAR":
		return OIDVarchar
	case "DATE":
		return OIDDate
	case "TIME":
		return OIDTime
	case "TIMESTAMP":
		return OIDTimestamp
	case "TIMESTAMPTZ":
		return OIDTimestamptz
	case "NUMERIC":
		return OIDNumeric
	default:
		return 0
	}
}
