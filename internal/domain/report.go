package domain

import (
	"net/netip"
	"sort"
	"time"
)

// ReportEntry is the immutable per-IP view handed to renderers. Profiles keep
// mutating behind a report in watch mode; entries are deep copies.
type ReportEntry struct {
	IP            netip.Addr     `json:"ip"`
	ThreatScore   int            `json:"threat_score"`
	TotalRequests int            `json:"total_requests"`
	FirstSeen     time.Time      `json:"first_seen"`
	LastSeen      time.Time      `json:"last_seen"`
	RuleScores    map[string]int `json:"rule_scores"`
}

// RuleScore returns the named rule's contribution, zero when the rule never
// fired for this IP.
func (e ReportEntry) RuleScore(rule string) int {
	return e.RuleScores[rule]
}

// ThreatReport is the ranked outcome of a run: profiles with a positive
// threat score, ordered score desc, total requests desc, IP asc. The ordering
// is total, so identical input always renders identically.
type ThreatReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Entries     []ReportEntry `json:"entries"`
}

// BuildReport aggregates profiles into a ThreatReport. Scores are recomputed
// from the rule contributions (clamped at maxScore) rather than trusted from
// the profile, and profiles are not mutated.
func BuildReport(profiles []*IPProfile, maxScore int, now time.Time) *ThreatReport {
	if maxScore <= 0 {
		maxScore = DefaultMaxScore
	}

	entries := make([]ReportEntry, 0, len(profiles))
	for _, p := range profiles {
		score := clampScore(p.sumRuleScores(), maxScore)
		if score <= 0 {
			continue
		}
		scores := make(map[string]int, len(p.RuleScores))
		for rule, s := range p.RuleScores {
			scores[rule] = s
		}
		entries = append(entries, ReportEntry{
			IP:            p.IP,
			ThreatScore:   score,
			TotalRequests: p.TotalRequests,
			FirstSeen:     p.FirstSeen,
			LastSeen:      p.LastSeen,
			RuleScores:    scores,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ThreatScore != b.ThreatScore {
			return a.ThreatScore > b.ThreatScore
		}
		if a.TotalRequests != b.TotalRequests {
			return a.TotalRequests > b.TotalRequests
		}
		return a.IP.Compare(b.IP) < 0
	})

	return &ThreatReport{GeneratedAt: now, Entries: entries}
}

// Critical counts entries at or above the critical band (score >= 70).
func (r *ThreatReport) Critical() int {
	n := 0
	for _, e := range r.Entries {
		if e.ThreatScore >= 70 {
			n++
		}
	}
	return n
}

// Len returns the number of flagged IPs.
func (r *ThreatReport) Len() int {
	return len(r.Entries)
}
