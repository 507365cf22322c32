// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

import (
	"fmt"
	"io"
	"os"
)

// Writer ingests rows of PostgreSQL binary wire values, column by column,
// and emits them as an Arrow IPC file: a Schema message once, then one
// RecordBatch message per flushed batch, then a Footer and tail.
//
// Open a Writer, call Append once per row, then Close it; Append may flush
// a batch internally whenever the buffered data crosses Config's segment
// size, so callers never need to flush explicitly.
type Writer struct {
	cfg     Config
	file    *os.File
	schema  Schema
	columns []*column
	numRows int
	offset  int64

	recordBatches []block
	dictionaries  []block
}

// Open resolves cols into a schema and ingester tree, creates cfg.OutputPath,
// and writes the file's magic signature and Schema message.
func Open(cfg Config, cols []ColumnDesc) (*Writer, error) {
	columns := make([]*column, len(cols))
	fields := make([]Field, len(cols))
	for i, desc := range cols {
		col, err := resolveColumn(desc)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", desc.AttName, err)
		}
		columns[i] = col
		fields[i] = col.field
	}

	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		cfg:     cfg,
		file:    f,
		schema:  Schema{Fields: fields},
		columns: columns,
	}

	if err := w.writeMagic(); err != nil {
		f.Close()
		return nil, err
	}
	if err := w.writeSchemaMessage(); err != nil {
		f.Close()
		return nil, err
	}
	w.cfg.logger().Debug().Str("path", cfg.OutputPath).Int("columns", len(cols)).Msg("arrow file opened")
	return w, nil
}

func (w *Writer) writeMagic() error {
	if err := writeFull(w.file, []byte(fileMagic)); err != nil {
		return err
	}
	w.offset += int64(len(fileMagic))
	return nil
}

func (w *Writer) writeSchemaMessage() error {
	schemaBuf := createArrowSchema(w.schema)
	msg := createArrowMessage(messageHeaderSchema, schemaBuf, 0)
	n, err := writeFlatMessage(w.file, msg)
	if err != nil {
		return err
	}
	w.offset += int64(n)
	return nil
}

// Append ingests one row. If the row would push the current batch's usage
// past the configured segment size, the batch flushed so far (excluding
// this row) is written out first and the row becomes the first of a new
// batch; a single row that alone exceeds the segment size is still
// accepted; so the encoder always makes progress, but is reported via
// ErrRowTooLarge to let a caller tune its batching.
func (w *Writer) Append(row []ColumnValue) error {
	if len(row) != len(w.columns) {
		return fmt.Errorf("row has %d values, schema has %d columns", len(row), len(w.columns))
	}

	snaps := make([]columnSnapshot, len(w.columns))
	for i, c := range w.columns {
		snaps[i] = c.snapshot()
	}
	if err := w.putRow(row); err != nil {
		for i, c := range w.columns {
			c.restore(snaps[i])
		}
		return err
	}
	if w.numRows > 0 && w.usage() > int(w.cfg.segmentSize()) {
		for i, c := range w.columns {
			c.restore(snaps[i])
		}
		if err := w.flushBatch(); err != nil {
			return err
		}
		snaps = make([]columnSnapshot, len(w.columns))
		for i, c := range w.columns {
			snaps[i] = c.snapshot()
		}
		if err := w.putRow(row); err != nil {
			for i, c := range w.columns {
				c.restore(snaps[i])
			}
			return err
		}
	}
	if w.usage() > int(w.cfg.segmentSize()) {
		w.cfg.logger().Warn().Int("rows", w.numRows).Msg("row exceeds configured segment size")
		w.numRows++
		return ErrRowTooLarge
	}
	w.numRows++
	return nil
}

func (w *Writer) putRow(row []ColumnValue) error {
	for i, c := range w.columns {
		if err := c.put(w.numRows, row[i].Bytes, row[i].Null); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) usage() int {
	total := 0
	for _, c := range w.columns {
		total += c.usage()
	}
	return total
}

// flushBatch serializes the current batch's buffers as a RecordBatch
// message and clears every column for the next batch. A no-op when no rows
// are buffered.
func (w *Writer) flushBatch() error {
	if w.numRows == 0 {
		return nil
	}
	plan := planRecordBatch(w.columns, w.numRows)
	body := createArrowRecordBatch(int64(w.numRows), plan.nodes, plan.buffers)
	msg := createArrowMessage(messageHeaderRecordBatch, body, plan.bodyLength)

	blockOffset := w.offset
	metaLen, err := writeFlatMessage(w.file, msg)
	if err != nil {
		return err
	}
	w.offset += int64(metaLen)
	if err := plan.write(w.file); err != nil {
		return err
	}
	w.offset += plan.bodyLength

	w.recordBatches = append(w.recordBatches, block{
		offset:         blockOffset,
		metaDataLength: int32(metaLen),
		bodyLength:     plan.bodyLength,
	})
	w.cfg.logger().Debug().
		Int("rows", w.numRows).
		Int64("bodyBytes", plan.bodyLength).
		Msg("record batch flushed")

	for _, c := range w.columns {
		c.reset()
	}
	w.numRows = 0
	return nil
}

// Close flushes any buffered rows, writes the Footer and tail, and closes
// the underlying file.
func (w *Writer) Close() error {
	if err := w.flushBatch(); err != nil {
		w.file.Close()
		return err
	}
	footerOffset := w.offset
	footer := createArrowFooter(w.schema, w.dictionaries, w.recordBatches)
	n, err := writeFlatMessage(w.file, footer)
	if err != nil {
		w.file.Close()
		return err
	}
	w.offset += int64(n)

	var tail [14]byte
	putLE64(tail[0:8], footerOffset)
	copy(tail[8:], tailMagic)
	if err := writeFull(w.file, tail[:]); err != nil {
		w.file.Close()
		return err
	}

	for _, c := range w.columns {
		c.release()
	}
	w.cfg.logger().Debug().Int("recordBatches", len(w.recordBatches)).Msg("arrow file closed")
	return w.file.Close()
}

// writeFlatMessage writes a self-contained flat-table image with the
// [length][rootOffset] header the reference writer's own message framing
// uses, returning the total number of bytes written (8-byte aligned).
func writeFlatMessage(w io.Writer, payload *fbTable) (int, error) {
	gap := align4(payload.vlen) - payload.vlen
	rootOffset := int32(4 + gap + payload.vlen)
	metaLen := int32(4 + align8(len(payload.bytes)))

	header := make([]byte, 8)
	putLE32(header[0:4], metaLen)
	putLE32(header[4:8], rootOffset)
	if err := writeFull(w, header); err != nil {
		return 0, err
	}
	written := len(header)
	if gap > 0 {
		if err := writeFull(w, make([]byte, gap)); err != nil {
			return 0, err
		}
		written += gap
	}
	if err := writeFull(w, payload.bytes); err != nil {
		return 0, err
	}
	written += len(payload.bytes)

	if pad := align8(written) - written; pad > 0 {
		if err := writeFull(w, make([]byte, pad)); err != nil {
			return 0, err
		}
		written += pad
	}
	return written, nil
}
