package domain

import (
	"net/netip"
	"time"
)

// DefaultMaxScore caps a profile's combined threat score.
const DefaultMaxScore = 100

// IPProfile accumulates per-source-IP state over one analysis run. It is
// mutated only by the pipeline goroutine; renderers receive copies via
// ThreatReport.
type IPProfile struct {
	IP            netip.Addr
	TotalRequests int
	FirstSeen     time.Time
	LastSeen      time.Time

	FailedAuthCount int
	UniquePaths     map[string]struct{}
	InjectionHits   int

	// RuleScores maps rule name to its accumulated contribution. Entries
	// are only ever added to within a run; ThreatScore is always the
	// clamped sum of the values.
	RuleScores  map[string]int
	ThreatScore int

	maxScore int
}

func NewIPProfile(ip netip.Addr, maxScore int) *IPProfile {
	if maxScore <= 0 {
		maxScore = DefaultMaxScore
	}
	return &IPProfile{
		IP:          ip,
		UniquePaths: make(map[string]struct{}),
		RuleScores:  make(map[string]int),
		maxScore:    maxScore,
	}
}

// Observe folds one event into the profile's aggregate counters. Window-bound
// rule state is kept by the rules themselves, not here.
func (p *IPProfile) Observe(ev *AccessEvent) {
	p.TotalRequests++
	p.UniquePaths[ev.Path] = struct{}{}

	if ev.StatusCode == 401 || ev.StatusCode == 403 {
		p.FailedAuthCount++
	}

	if p.FirstSeen.IsZero() || ev.Timestamp.Before(p.FirstSeen) {
		p.FirstSeen = ev.Timestamp
	}
	if p.LastSeen.IsZero() || ev.Timestamp.After(p.LastSeen) {
		p.LastSeen = ev.Timestamp
	}
}

// AddRuleScore credits a rule contribution and reclamps the threat score.
func (p *IPProfile) AddRuleScore(rule string, delta int) {
	if delta <= 0 {
		return
	}
	p.RuleScores[rule] += delta
	p.ThreatScore = clampScore(p.sumRuleScores(), p.maxScore)
}

func (p *IPProfile) sumRuleScores() int {
	sum := 0
	for _, s := range p.RuleScores {
		sum += s
	}
	return sum
}

func clampScore(score, max int) int {
	if score > max {
		return max
	}
	return score
}
