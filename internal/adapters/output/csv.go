// Package output renders threat reports: CSV and HTML files, the console
// summary, and the Prometheus metrics endpoint.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/logsentry/logsentry/internal/domain"
)

const timestampLayout = "2006-01-02 15:04:05"

// CSVWriter renders a report as a flat CSV file with one row per flagged IP
// and a column per rule. Rows follow the report's ranking, so a diff between
// two runs over the same input is empty.
type CSVWriter struct {
	path      string
	ruleOrder []string
}

func NewCSVWriter(path string, ruleOrder []string) *CSVWriter {
	return &CSVWriter{path: path, ruleOrder: ruleOrder}
}

func (w *CSVWriter) Name() string { return "csv" }

func (w *CSVWriter) Write(report *domain.ThreatReport) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("csv report: %w", err)
	}
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("csv report: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)

	header := []string{"IP Address", "Threat Score", "Total Requests", "First Seen", "Last Seen"}
	header = append(header, w.ruleOrder...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csv report: %w", err)
	}

	for _, e := range report.Entries {
		row := []string{
			e.IP.String(),
			strconv.Itoa(e.ThreatScore),
			strconv.Itoa(e.TotalRequests),
			formatSeen(e.FirstSeen),
			formatSeen(e.LastSeen),
		}
		for _, rule := range w.ruleOrder {
			row = append(row, strconv.Itoa(e.RuleScore(rule)))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv report: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv report: %w", err)
	}

	log.Info().Str("file", w.path).Int("entries", report.Len()).Msg("CSV report written")
	return nil
}

func formatSeen(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}
