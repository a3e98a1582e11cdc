package domain

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func event(ip string, at time.Time, method, path string, status int) *AccessEvent {
	return &AccessEvent{
		IP:         netip.MustParseAddr(ip),
		Timestamp:  at,
		Method:     method,
		Path:       path,
		StatusCode: status,
	}
}

func TestProfileObserve(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	p := NewIPProfile(netip.MustParseAddr("203.0.113.5"), 0)

	p.Observe(event("203.0.113.5", base.Add(time.Minute), "POST", "/login", 401))
	p.Observe(event("203.0.113.5", base, "GET", "/", 200))
	p.Observe(event("203.0.113.5", base.Add(2*time.Minute), "POST", "/login", 403))

	assert.Equal(t, 3, p.TotalRequests)
	assert.Equal(t, 2, p.FailedAuthCount)
	assert.Len(t, p.UniquePaths, 2)
	assert.Equal(t, base, p.FirstSeen)
	assert.Equal(t, base.Add(2*time.Minute), p.LastSeen)
}

func TestProfileScoreClamp(t *testing.T) {
	p := NewIPProfile(netip.MustParseAddr("198.51.100.1"), 100)

	p.AddRuleScore("SQL_INJECTION", 60)
	assert.Equal(t, 60, p.ThreatScore)

	p.AddRuleScore("DDOS", 80)
	assert.Equal(t, 100, p.ThreatScore)
	assert.Equal(t, 60, p.RuleScores["SQL_INJECTION"])
	assert.Equal(t, 80, p.RuleScores["DDOS"])
}

func TestProfileIgnoresNonPositiveDeltas(t *testing.T) {
	p := NewIPProfile(netip.MustParseAddr("198.51.100.1"), 100)
	p.AddRuleScore("BRUTE_FORCE", 0)
	p.AddRuleScore("BRUTE_FORCE", -5)
	assert.Empty(t, p.RuleScores)
	assert.Zero(t, p.ThreatScore)
}
