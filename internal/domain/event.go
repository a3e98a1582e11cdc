package domain

import (
	"net/netip"
	"time"
)

// MaxLineLength bounds how much of a single log line is retained and
// inspected. Oversized lines are truncated, not rejected.
const MaxLineLength = 8192

// AccessEvent is one successfully parsed access-log line.
type AccessEvent struct {
	IP         netip.Addr `json:"ip"`
	Timestamp  time.Time  `json:"timestamp"`
	Method     string     `json:"method"`
	Path       string     `json:"path"`
	StatusCode int        `json:"status_code"`

	// RawLine keeps the original line for signature matching and forensics.
	RawLine string `json:"raw_line,omitempty"`
}

// IPString returns the canonical text form of the source address.
func (e *AccessEvent) IPString() string {
	if !e.IP.IsValid() {
		return ""
	}
	return e.IP.String()
}
