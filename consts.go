// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

// File-level constants.
const (
	// fileMagic is the 8-byte signature at the start (and, implicitly, the
	// last 6 bytes of the tail) of every Arrow IPC file.
	fileMagic = "ARROW1\x00\x00"

	// tailMagic is the last 6 bytes of the file, repeated from fileMagic.
	tailMagic = "ARROW1"

	// metadataAlign and bodyAlign are the alignment, in bytes, the
	// columnar format requires for metadata blocks and record-batch body
	// buffers respectively.
	metadataAlign = 8
	bodyAlign     = 8

	// defaultSegmentSize is used when a Config leaves SegmentSize unset.
	defaultSegmentSize = 256 << 20 // 256 MiB

	// initialBufferCapacity is the starting capacity of a growable byte
	// buffer; it doubles from here on demand.
	initialBufferCapacity = 2 << 20 // 2 MiB
)

// MetadataVersion enumerates the columnar format's schema-message version
// codes. Only V4 is supported for both reading and writing.
type MetadataVersion int16

const (
	MetadataVersionV1 MetadataVersion = 0
	MetadataVersionV2 MetadataVersion = 1
	MetadataVersionV3 MetadataVersion = 2
	MetadataVersionV4 MetadataVersion = 3
)

// messageHeader enumerates the Message.header union tag.
type messageHeader int8

const (
	messageHeaderSchema          messageHeader = 1
	messageHeaderDictionaryBatch messageHeader = 2
	messageHeaderRecordBatch     messageHeader = 3
	messageHeaderTensor          messageHeader = 4
	messageHeaderSparseTensor    messageHeader = 5
)

// align8 rounds n up to the next multiple of 8.
func align8(n int) int {
	return (n + 7) &^ 7
}

// align4 rounds n up to the next multiple of 4.
func align4(n int) int {
	return (n + 3) &^ 3
}
