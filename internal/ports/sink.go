package ports

import "github.com/logsentry/logsentry/internal/domain"

type ReportSink interface {
	// Write renders one immutable report snapshot. Sinks must not retain or
	// mutate the report's entries.
	Write(report *domain.ThreatReport) error
	Name() string
}

// ProcessingObserver receives per-line processing outcomes from input
// sources. Implemented by the Prometheus adapter; a no-op is used when
// metrics are disabled.
type ProcessingObserver interface {
	LineRead()
	LineSkipped()
}

type NopObserver struct{}

func (NopObserver) LineRead()    {}
func (NopObserver) LineSkipped() {}
