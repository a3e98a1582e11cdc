// Package input provides the event sources: the access-log line parser, the
// one-shot batch reader, and the cursor-based watch reader with its change
// notifiers.
package input

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/logsentry/logsentry/internal/domain"
)

// ErrParse marks a line that cannot be turned into an AccessEvent. It is
// always recovered locally: the caller counts the skip and moves on.
var ErrParse = errors.New("unparsable log line")

const (
	clfTimeLayout       = "02/Jan/2006:15:04:05 -0700"
	clfTimeLayoutNoZone = "02/Jan/2006:15:04:05"
)

// CLFParser parses Apache/nginx combined and common log format lines with a
// single positional scan. Lines with invalid UTF-8 are repaired with the
// replacement rune rather than rejected.
type CLFParser struct{}

func NewCLFParser() *CLFParser {
	return &CLFParser{}
}

func (p *CLFParser) Format() string {
	return "clf"
}

func (p *CLFParser) Parse(line string) (*domain.AccessEvent, error) {
	if len(line) > domain.MaxLineLength {
		line = line[:domain.MaxLineLength]
	}
	line = strings.ToValidUTF8(line, "�")
	if len(line) < 20 {
		return nil, fmt.Errorf("%w: line too short", ErrParse)
	}

	// Client IP: anchored leading token.
	ipEnd := strings.IndexByte(line, ' ')
	if ipEnd <= 0 {
		return nil, fmt.Errorf("%w: missing ip token", ErrParse)
	}
	addr, err := netip.ParseAddr(line[:ipEnd])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ip %q", ErrParse, line[:ipEnd])
	}

	// Timestamp: first bracketed segment.
	tsStart := strings.IndexByte(line[ipEnd:], '[')
	if tsStart == -1 {
		return nil, fmt.Errorf("%w: missing timestamp", ErrParse)
	}
	tsStart += ipEnd + 1
	tsEnd := strings.IndexByte(line[tsStart:], ']')
	if tsEnd == -1 {
		return nil, fmt.Errorf("%w: unterminated timestamp", ErrParse)
	}
	tsEnd += tsStart
	ts, err := parseTimestamp(line[tsStart:tsEnd])
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp %q", ErrParse, line[tsStart:tsEnd])
	}

	// Request: first quoted segment after the timestamp.
	reqStart := strings.IndexByte(line[tsEnd:], '"')
	if reqStart == -1 {
		return nil, fmt.Errorf("%w: missing request", ErrParse)
	}
	reqStart += tsEnd + 1
	reqEnd := findClosingQuote(line, reqStart)
	if reqEnd == -1 {
		return nil, fmt.Errorf("%w: unterminated request", ErrParse)
	}
	method, path, err := splitRequest(line[reqStart:reqEnd])
	if err != nil {
		return nil, err
	}

	// Status: 3-digit token following the closing quote.
	status, err := parseStatus(line[reqEnd+1:])
	if err != nil {
		return nil, err
	}

	return &domain.AccessEvent{
		IP:         addr,
		Timestamp:  ts,
		Method:     method,
		Path:       path,
		StatusCode: status,
		RawLine:    strings.Clone(line),
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(clfTimeLayout, s); err == nil {
		return ts, nil
	}
	// Zone-less form: take the first space-separated token.
	if idx := strings.IndexByte(s, ' '); idx > 0 {
		s = s[:idx]
	}
	return time.Parse(clfTimeLayoutNoZone, s)
}

func splitRequest(s string) (method, path string, err error) {
	sep := strings.IndexByte(s, ' ')
	if sep <= 0 {
		return "", "", fmt.Errorf("%w: malformed request %q", ErrParse, s)
	}
	method = s[:sep]
	rest := s[sep+1:]
	if end := strings.IndexByte(rest, ' '); end >= 0 {
		rest = rest[:end]
	}
	if rest == "" {
		return "", "", fmt.Errorf("%w: malformed request %q", ErrParse, s)
	}
	return strings.Clone(method), strings.Clone(rest), nil
}

func parseStatus(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	if i+3 > len(s) {
		return 0, fmt.Errorf("%w: missing status", ErrParse)
	}
	tok := s[i : i+3]
	if i+3 < len(s) && s[i+3] != ' ' {
		return 0, fmt.Errorf("%w: bad status token", ErrParse)
	}
	status, err := strconv.Atoi(tok)
	if err != nil || status < 100 || status > 599 {
		return 0, fmt.Errorf("%w: bad status %q", ErrParse, tok)
	}
	return status, nil
}

// findClosingQuote scans for an unescaped closing double quote.
func findClosingQuote(s string, start int) int {
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}
