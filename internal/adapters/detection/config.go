// Package detection implements the scoring rules and the engine that runs
// them over a stream of access events.
package detection

import "time"

// Rule names as they appear in reports and per-rule score breakdowns.
const (
	RuleBruteForce     = "BRUTE_FORCE"
	RulePortScan       = "PORT_SCAN"
	RuleSQLInjection   = "SQL_INJECTION"
	RuleDDoS           = "DDOS"
	RuleExternalAccess = "EXTERNAL_ACCESS"
)

// RuleOrder is the canonical rule ordering used for report columns.
var RuleOrder = []string{
	RuleBruteForce,
	RulePortScan,
	RuleSQLInjection,
	RuleDDoS,
	RuleExternalAccess,
}

// Config holds every tunable the rules read. It is built once at startup and
// never mutated afterwards, so rules may read it without locking.
type Config struct {
	// Window is the sliding window applied to brute-force and port-scan
	// counting. The burst rule has its own fixed one-minute window.
	Window   time.Duration
	MaxScore int

	BruteForce BruteForceConfig
	PortScan   PortScanConfig
	Injection  InjectionConfig
	Burst      BurstConfig
	External   ExternalConfig
}

type BruteForceConfig struct {
	// Threshold is the number of failed authentications inside Window that
	// triggers the rule.
	Threshold int
	Weight    int
	// Statuses are the HTTP status codes counted as failed authentication.
	Statuses []int
	// SensitivePaths restricts counting to authentication endpoints.
	SensitivePaths []string
}

type PortScanConfig struct {
	// PathThreshold is the number of distinct paths inside Window that
	// triggers the rule, provided at least RequestFloor requests were seen.
	PathThreshold int
	RequestFloor  int
	Weight        int
}

type InjectionConfig struct {
	// Weight is scored once per distinct matched signature, up to Cap.
	Weight     int
	Cap        int
	Signatures []string
}

type BurstConfig struct {
	Window time.Duration
	// PerMinuteThreshold is the request rate that triggers the rule.
	PerMinuteThreshold int
	Weight             int
}

type ExternalConfig struct {
	Weight int
	// Prefixes are path prefixes considered sensitive when reached from a
	// non-internal address.
	Prefixes []string
}

// DefaultConfig returns the stock rule tuning.
func DefaultConfig() Config {
	return Config{
		Window:   time.Hour,
		MaxScore: 100,
		BruteForce: BruteForceConfig{
			Threshold:      10,
			Weight:         15,
			Statuses:       []int{401, 403},
			SensitivePaths: []string{"/login", "/wp-login.php", "/admin"},
		},
		PortScan: PortScanConfig{
			PathThreshold: 20,
			RequestFloor:  50,
			Weight:        10,
		},
		Injection: InjectionConfig{
			Weight: 30,
			Cap:    60,
			Signatures: []string{
				`(?i)union.*select`,
				`(?i)select.*from`,
				`1=1`,
				`(?i)drop\s+table`,
			},
		},
		Burst: BurstConfig{
			Window:             time.Minute,
			PerMinuteThreshold: 500,
			Weight:             40,
		},
		External: ExternalConfig{
			Weight: 20,
			Prefixes: []string{
				"/admin",
				"/wp-admin",
				"/phpmyadmin",
				"/.env",
				"/.git",
				"/manager",
			},
		},
	}
}
