// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

import "io"

// fieldNode is one entry of a RecordBatch's FieldNode vector: per-field row
// count and null count, in field (not buffer) order.
type fieldNode struct {
	length    int64
	nullCount int64
}

// arrowBuffer is one entry of a RecordBatch's Buffer vector: a byte range
// within the message body, 8-byte aligned.
type arrowBuffer struct {
	offset int64
	length int64
}

// block is one entry of the Footer's recordBatches (or dictionaries)
// vector: the file offset of a Message and the lengths needed to skip over
// it without parsing its metadata.
type block struct {
	offset         int64
	metaDataLength int32
	bodyLength     int64
}

// recordBatchPlan is the result of walking a column tree in field order:
// the FieldNode/Buffer descriptors a RecordBatch message needs, and a
// writer that emits the buffers' bytes in the same order, 8-byte aligned.
type recordBatchPlan struct {
	nodes      []fieldNode
	buffers    []arrowBuffer
	bodyLength int64
	write      func(w io.Writer) error
}

// planRecordBatch walks columns in schema order and lays out their buffers
// back-to-back in the message body, matching write_buffer_{inline,varlena,
// composite}_type's traversal order: nullmap, then values, then (for
// variable-length columns) extra, recursing into composite subtypes.
func planRecordBatch(columns []*column, numRows int) *recordBatchPlan {
	plan := &recordBatchPlan{}
	var offset int64
	var writers []func(w io.Writer) error

	var walk func(c *column)
	walk = func(c *column) {
		plan.nodes = append(plan.nodes, fieldNode{
			length:    int64(numRows),
			nullCount: c.nullCount,
		})

		addBuf := func(buf *buffer, present bool) {
			length := int64(0)
			if present {
				length = int64(align8(buf.usage))
			}
			plan.buffers = append(plan.buffers, arrowBuffer{offset: offset, length: length})
			offset += length
			if present {
				writers = append(writers, func(w io.Writer) error {
					return writePadded(w, buf.ptr())
				})
			}
		}

		switch c.kind {
		case kindComposite:
			addBuf(c.nullmap, c.nullCount > 0)
			for _, sub := range c.subtypes {
				walk(sub)
			}
		case kindVariable:
			addBuf(c.nullmap, c.nullCount > 0)
			addBuf(c.values, true)
			addBuf(c.extra, true)
		case kindArray:
			// List columns never accumulate rows: column.put rejects
			// kindArray with ErrNotImplemented before numRows advances, so
			// this branch never actually runs a batch through. Kept so a
			// List column's nullmap buffer is still accounted for if that
			// stub is ever filled in.
			addBuf(c.nullmap, c.nullCount > 0)
		default:
			addBuf(c.nullmap, c.nullCount > 0)
			addBuf(c.values, true)
		}
	}
	for _, c := range columns {
		walk(c)
	}

	plan.bodyLength = offset
	plan.write = func(w io.Writer) error {
		for _, fn := range writers {
			if err := fn(w); err != nil {
				return err
			}
		}
		return nil
	}
	return plan
}

// writePadded writes data followed by zero bytes up to the next 8-byte
// boundary, retrying on short writes the way the reference writer retries
// on EINTR.
func writePadded(w io.Writer, data []byte) error {
	if err := writeFull(w, data); err != nil {
		return err
	}
	if gap := align8(len(data)) - len(data); gap > 0 {
		return writeFull(w, make([]byte, gap))
	}
	return nil
}

func writeFull(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
