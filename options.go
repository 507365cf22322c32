// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package arrow

import (
	"reflect"

	"github.com/rs/zerolog"
)

// Config configures a Writer. The zero value is usable: SegmentSize
// defaults to defaultSegmentSize and Logger defaults to a no-op logger, the
// same "quiet unless asked" posture the reference CLI's -v flag controls.
type Config struct {
	// SegmentSize is the approximate byte budget, per column buffer set,
	// before Append flushes the current record batch.
	SegmentSize int64

	// OutputPath is the file Open creates (or truncates) and writes to.
	OutputPath string

	// Logger receives structured diagnostics around batch flush and
	// footer boundaries. The zero value (zerolog.Logger{}) behaves as
	// zerolog.Nop().
	Logger zerolog.Logger
}

func (c Config) segmentSize() int64 {
	if c.SegmentSize > 0 {
		return c.SegmentSize
	}
	return defaultSegmentSize
}

func (c Config) logger() zerolog.Logger {
	if reflect.DeepEqual(c.Logger, zerolog.Logger{}) {
		return zerolog.Nop()
	}
	return c.Logger
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// Logger receives structured diagnostics while parsing a file.
	Logger zerolog.Logger
}

func (o ReaderOptions) logger() zerolog.Logger {
	if reflect.DeepEqual(o.Logger, zerolog.Logger{}) {
		return zerolog.Nop()
	}
	return o.Logger
}
