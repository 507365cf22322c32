// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

import "errors"

// Errors
var (
	// ErrTypeNotSupported is returned when a source catalog type cannot be
	// mapped to any columnar-format variant.
	ErrTypeNotSupported = errors.New("type not supported")

	// ErrNotImplemented is returned when a value is put into a list/array
	// column, a reserved code path that this encoder does not materialize.
	ErrNotImplemented = errors.New("not implemented")

	// ErrDecimalNaN is returned when a numeric value's sign field carries
	// the NaN marker; Decimal128 cannot represent it.
	ErrDecimalNaN = errors.New("NaN unrepresentable in fixed-precision decimal")

	// ErrDecimalDigitOutOfRange is returned when a numeric wire digit
	// falls outside [0, NBASE).
	ErrDecimalDigitOutOfRange = errors.New("numeric digit is out of range")

	// ErrCompositeCorruption is returned when a composite (record) row's
	// embedded length descriptor disagrees with the payload actually
	// delivered, or a subfield type-id disagrees with the schema.
	ErrCompositeCorruption = errors.New("binary composite record corruption")

	// ErrRowTooLarge is returned when a single row's estimated byte usage
	// exceeds the configured segment size even in an otherwise-empty batch.
	ErrRowTooLarge = errors.New("a result row is larger than the record batch segment size")

	// ErrUnsupportedMetadataVersion is returned by the reader when a
	// Message's version field is not MetadataVersionV4.
	ErrUnsupportedMetadataVersion = errors.New("unsupported arrow metadata version")

	// ErrUnsupportedMessageHeader is returned by the reader for Tensor and
	// SparseTensor message headers, which this module never writes and
	// does not parse.
	ErrUnsupportedMessageHeader = errors.New("unsupported arrow message header")

	// ErrBadMagic is returned when a file does not begin with the eight
	// byte "ARROW1\0\0" signature.
	ErrBadMagic = errors.New("not an Arrow file: magic signature not found")

	// ErrBadTail is returned when the last six bytes of a file are not
	// "ARROW1". The tail is fourteen bytes: the Footer message's absolute
	// file offset as a little-endian int64, then "ARROW1"; the ten-byte
	// {int32 metaOffset, "ARROW1"} form is neither written nor read.
	ErrBadTail = errors.New("not an Arrow file: tail signature not found")

	// ErrOutsideBoundary is returned when a reader attempts to access
	// bytes beyond the mapped file's extent.
	ErrOutsideBoundary = errors.New("reading data outside file boundary")
)
