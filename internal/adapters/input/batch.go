package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/logsentry/logsentry/internal/domain"
	"github.com/logsentry/logsentry/internal/ports"
)

// ErrNoInput is returned when a batch run finds no readable file at all.
var ErrNoInput = errors.New("no readable input files")

// scanBufferSize bounds one read; lines longer than MaxLineLength are
// truncated by the parser, but the scanner needs headroom for them.
const scanBufferSize = 1 << 20

// BatchReader reads a file or glob of files once, end to end, in
// lexicographic file order. Parse failures are counted and skipped; a file
// that cannot be opened is logged and skipped without aborting the run.
type BatchReader struct {
	parser   ports.LineParser
	observer ports.ProcessingObserver

	skipped int64
}

func NewBatchReader(parser ports.LineParser, observer ports.ProcessingObserver) *BatchReader {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &BatchReader{parser: parser, observer: observer}
}

// Each streams every parsable event from the files matching pattern to fn,
// preserving line order within each file. It fails only when nothing could
// be read.
func (r *BatchReader) Each(ctx context.Context, pattern string, fn func(*domain.AccessEvent)) error {
	paths, err := expandPattern(pattern)
	if err != nil {
		return err
	}

	readable := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.eachFile(ctx, path, fn); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Error().Err(err).Str("file", path).Msg("Skipping unreadable input file")
			continue
		}
		readable++
	}

	if readable == 0 {
		return fmt.Errorf("%w: %s", ErrNoInput, pattern)
	}
	return nil
}

func (r *BatchReader) eachFile(ctx context.Context, path string, fn func(*domain.AccessEvent)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	log.Debug().Str("file", path).Msg("Reading input file")

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), scanBufferSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		r.observer.LineRead()
		ev, err := r.parser.Parse(line)
		if err != nil {
			r.skipped++
			r.observer.LineSkipped()
			log.Debug().Err(err).Int("line", lineNum).Str("file", path).Msg("Skipping unparsable line")
			continue
		}
		fn(ev)
	}
	return scanner.Err()
}

// Skipped returns the number of lines rejected by the parser so far.
func (r *BatchReader) Skipped() int64 {
	return r.skipped
}

func expandPattern(pattern string) ([]string, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid input pattern %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInput, pattern)
	}
	sort.Strings(paths)
	return paths, nil
}
