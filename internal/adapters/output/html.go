package output

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/logsentry/logsentry/internal/domain"
)

// HTMLWriter renders a self-contained dashboard page: severity summary cards
// and the ranked threat table. No external assets, so the file can be opened
// from disk or attached to a ticket as-is.
type HTMLWriter struct {
	path      string
	ruleOrder []string
	tmpl      *template.Template
}

func NewHTMLWriter(path string, ruleOrder []string) *HTMLWriter {
	return &HTMLWriter{
		path:      path,
		ruleOrder: ruleOrder,
		tmpl:      template.Must(template.New("report").Parse(reportTemplate)),
	}
}

func (w *HTMLWriter) Name() string { return "html" }

type htmlReport struct {
	GeneratedAt string
	Rules       []string
	Critical    int
	High        int
	Medium      int
	Low         int
	Rows        []htmlRow
}

type htmlRow struct {
	Rank       int
	IP         string
	Score      int
	Severity   string
	BarPercent int
	Requests   int
	FirstSeen  string
	LastSeen   string
	RuleScores []int
}

func (w *HTMLWriter) Write(report *domain.ThreatReport) error {
	data := htmlReport{
		GeneratedAt: report.GeneratedAt.Format(time.RFC1123),
		Rules:       w.ruleOrder,
	}
	for i, e := range report.Entries {
		row := htmlRow{
			Rank:       i + 1,
			IP:         e.IP.String(),
			Score:      e.ThreatScore,
			Severity:   severity(e.ThreatScore),
			BarPercent: e.ThreatScore,
			Requests:   e.TotalRequests,
			FirstSeen:  formatSeen(e.FirstSeen),
			LastSeen:   formatSeen(e.LastSeen),
		}
		for _, rule := range w.ruleOrder {
			row.RuleScores = append(row.RuleScores, e.RuleScore(rule))
		}
		data.Rows = append(data.Rows, row)

		switch row.Severity {
		case "critical":
			data.Critical++
		case "high":
			data.High++
		case "medium":
			data.Medium++
		default:
			data.Low++
		}
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("html report: %w", err)
	}
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("html report: %w", err)
	}
	defer f.Close()

	if err := w.tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("html report: %w", err)
	}

	log.Info().Str("file", w.path).Int("entries", report.Len()).Msg("HTML report written")
	return nil
}

func severity(score int) string {
	switch {
	case score >= 70:
		return "critical"
	case score >= 40:
		return "high"
	case score >= 20:
		return "medium"
	default:
		return "low"
	}
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Threat Report</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; background: #0f1117; color: #e5e5e5; margin: 2rem; }
  h1 { font-size: 1.4rem; }
  .meta { color: #8a8f98; margin-bottom: 1.5rem; }
  .cards { display: flex; gap: 1rem; margin-bottom: 2rem; }
  .card { flex: 1; border-radius: 8px; padding: 1rem; background: #1a1d26; border-top: 3px solid; }
  .card .count { font-size: 2rem; font-weight: 700; }
  .card.critical { border-color: #ff3333; }
  .card.high { border-color: #ff8800; }
  .card.medium { border-color: #ffb000; }
  .card.low { border-color: #00b8ff; }
  table { border-collapse: collapse; width: 100%; }
  th, td { padding: 0.5rem 0.75rem; text-align: left; border-bottom: 1px solid #2a2d36; }
  th { color: #8a8f98; font-weight: 600; font-size: 0.8rem; text-transform: uppercase; }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  .bar { background: #2a2d36; border-radius: 3px; height: 6px; width: 120px; }
  .bar span { display: block; height: 100%; border-radius: 3px; }
  .critical .bar span { background: #ff3333; }
  .high .bar span { background: #ff8800; }
  .medium .bar span { background: #ffb000; }
  .low .bar span { background: #00b8ff; }
  .empty { color: #8a8f98; padding: 2rem 0; }
</style>
</head>
<body>
<h1>Threat Report</h1>
<div class="meta">Generated {{.GeneratedAt}}</div>
<div class="cards">
  <div class="card critical"><div class="count">{{.Critical}}</div>Critical (&ge;70)</div>
  <div class="card high"><div class="count">{{.High}}</div>High (&ge;40)</div>
  <div class="card medium"><div class="count">{{.Medium}}</div>Medium (&ge;20)</div>
  <div class="card low"><div class="count">{{.Low}}</div>Low</div>
</div>
{{if .Rows}}
<table>
  <tr>
    <th>#</th><th>IP Address</th><th>Score</th><th></th><th>Requests</th>
    <th>First Seen</th><th>Last Seen</th>
    {{range .Rules}}<th>{{.}}</th>{{end}}
  </tr>
  {{range .Rows}}
  <tr class="{{.Severity}}">
    <td class="num">{{.Rank}}</td>
    <td>{{.IP}}</td>
    <td class="num">{{.Score}}</td>
    <td><div class="bar"><span style="width: {{.BarPercent}}%"></span></div></td>
    <td class="num">{{.Requests}}</td>
    <td>{{.FirstSeen}}</td>
    <td>{{.LastSeen}}</td>
    {{range .RuleScores}}<td class="num">{{.}}</td>{{end}}
  </tr>
  {{end}}
</table>
{{else}}
<div class="empty">No threats detected.</div>
{{end}}
</body>
</html>
`
