package input

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/logsentry/logsentry/internal/domain"
	"github.com/logsentry/logsentry/internal/ports"
)

// readChunkSize bounds a single read from the watched file so one very busy
// scan cannot block indefinitely on an unbounded read.
const readChunkSize = 64 * 1024

// CursorReader incrementally reads a growing log file. It remembers the byte
// offset of the last read and, on each ReadNew, consumes only appended bytes.
// A file whose size has shrunk below the cursor is treated as rotated or
// truncated: the cursor resets to zero and reading restarts from the top.
//
// A trailing partial line (no newline yet) is buffered and completed on a
// later scan, never parsed in halves.
type CursorReader struct {
	path     string
	parser   ports.LineParser
	observer ports.ProcessingObserver

	offset    int64
	remainder []byte

	skipped   int64
	rotations int64
}

func NewCursorReader(path string, parser ports.LineParser, observer ports.ProcessingObserver) *CursorReader {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &CursorReader{path: path, parser: parser, observer: observer}
}

// SkipToEnd moves the cursor to the current end of file, so only lines
// appended after this call are ever read.
func (r *CursorReader) SkipToEnd() error {
	info, err := os.Stat(r.path)
	if err != nil {
		return err
	}
	r.offset = info.Size()
	r.remainder = nil
	return nil
}

// ReadNew reads bytes appended since the last call and feeds each complete
// parsable line to fn. It returns the number of events emitted. I/O errors
// are returned for the caller to log and retry on the next tick; the cursor
// is left where the successful portion of the read ended.
func (r *CursorReader) ReadNew(ctx context.Context, fn func(*domain.AccessEvent)) (int, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return 0, err
	}

	if info.Size() < r.offset {
		log.Warn().
			Str("file", r.path).
			Int64("cursor", r.offset).
			Int64("size", info.Size()).
			Msg("Log file shrank, assuming rotation; resetting cursor")
		r.offset = 0
		r.remainder = nil
		r.rotations++
	}
	if info.Size() == r.offset {
		return 0, nil
	}

	f, err := os.Open(r.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if _, err := f.Seek(r.offset, io.SeekStart); err != nil {
		return 0, err
	}

	emitted := 0
	buf := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return emitted, err
		}
		n, readErr := f.Read(buf)
		if n > 0 {
			r.offset += int64(n)
			emitted += r.consume(buf[:n], fn)
		}
		if readErr == io.EOF {
			return emitted, nil
		}
		if readErr != nil {
			return emitted, readErr
		}
	}
}

// consume splits a chunk into lines, carrying any trailing partial line over
// to the next read.
func (r *CursorReader) consume(chunk []byte, fn func(*domain.AccessEvent)) int {
	data := chunk
	if len(r.remainder) > 0 {
		data = append(r.remainder, chunk...)
		r.remainder = nil
	}

	emitted := 0
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			break
		}
		line := strings.TrimSpace(string(data[:idx]))
		data = data[idx+1:]
		if line == "" {
			continue
		}

		r.observer.LineRead()
		ev, err := r.parser.Parse(line)
		if err != nil {
			r.skipped++
			r.observer.LineSkipped()
			log.Debug().Err(err).Str("file", r.path).Msg("Skipping unparsable line")
			continue
		}
		fn(ev)
		emitted++
	}

	if len(data) > 0 {
		r.remainder = append([]byte(nil), data...)
	}
	return emitted
}

// Offset returns the current byte cursor.
func (r *CursorReader) Offset() int64 {
	return r.offset
}

// Rotations returns how many truncation/rotation resets have occurred.
func (r *CursorReader) Rotations() int64 {
	return r.rotations
}

// Skipped returns the number of lines rejected by the parser so far.
func (r *CursorReader) Skipped() int64 {
	return r.skipped
}
