package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/logsentry/logsentry/internal/domain"
)

var (
	colorRed   = lipgloss.Color("#ff3333")
	colorAmber = lipgloss.Color("#ffb000")
	colorGold  = lipgloss.Color("#d7af00")
	colorCyan  = lipgloss.Color("#00b8ff")
	colorMuted = lipgloss.Color("#707070")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	redStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	amberStyle  = lipgloss.NewStyle().Foreground(colorAmber)
	yellowStyle = lipgloss.NewStyle().Foreground(colorGold)
)

func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 70:
		return redStyle
	case score >= 40:
		return amberStyle
	default:
		return yellowStyle
	}
}

// Console renders human-facing output: the ranked summary after a batch run
// and one-line alerts during watch mode.
type Console struct {
	out io.Writer
	top int
}

func NewConsole(out io.Writer, top int) *Console {
	if top <= 0 {
		top = 10
	}
	return &Console{out: out, top: top}
}

func (c *Console) Name() string { return "console" }

// Write renders the ranked summary table.
func (c *Console) Write(report *domain.ThreatReport) error {
	fmt.Fprintln(c.out, titleStyle.Render("Threat summary"))

	if report.Len() == 0 {
		fmt.Fprintln(c.out, mutedStyle.Render("  no threats detected"))
		return nil
	}

	fmt.Fprintf(c.out, "  %s flagged, %s critical\n",
		plural(report.Len(), "IP"), fmt.Sprint(report.Critical()))

	shown := report.Entries
	if len(shown) > c.top {
		shown = shown[:c.top]
	}
	for i, e := range shown {
		score := scoreStyle(e.ThreatScore).Render(fmt.Sprintf("%3d", e.ThreatScore))
		fmt.Fprintf(c.out, "  %2d. %-40s %s  %s  %s\n",
			i+1, e.IP.String(), score,
			mutedStyle.Render(plural(e.TotalRequests, "req")),
			mutedStyle.Render(ruleSummary(e)))
	}
	if rest := report.Len() - len(shown); rest > 0 {
		fmt.Fprintln(c.out, mutedStyle.Render(fmt.Sprintf("  ... and %d more (see report files)", rest)))
	}
	return nil
}

// Alert prints a one-line notice for an IP whose score appeared or rose
// during watch mode.
func (c *Console) Alert(e domain.ReportEntry, previous int) {
	verb := "raised to"
	if previous == 0 {
		verb = "flagged at"
	}
	score := scoreStyle(e.ThreatScore).Render(fmt.Sprint(e.ThreatScore))
	fmt.Fprintf(c.out, "%s %s %s %s  %s\n",
		amberStyle.Render("!"), e.IP.String(), verb, score,
		mutedStyle.Render(ruleSummary(e)))
}

func ruleSummary(e domain.ReportEntry) string {
	rules := make([]string, 0, len(e.RuleScores))
	for rule := range e.RuleScores {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	return strings.Join(rules, ",")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
