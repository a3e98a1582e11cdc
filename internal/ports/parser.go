package ports

import "github.com/logsentry/logsentry/internal/domain"

type LineParser interface {
	// Parse turns one raw log line into an AccessEvent. A line that misses
	// any required field fails with a non-fatal error; callers count the
	// skip and continue.
	Parse(line string) (*domain.AccessEvent, error)
	Format() string
}
