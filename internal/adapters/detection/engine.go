package detection

import (
	"net/netip"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/logsentry/logsentry/internal/domain"
	"github.com/logsentry/logsentry/internal/ports"
)

// Engine owns the per-IP profiles and runs every rule over each event. It is
// the single mutator of detection state: callers feed it events from one
// goroutine and ask for reports between batches.
type Engine struct {
	cfg      Config
	rules    []ports.Rule
	profiles map[netip.Addr]*domain.IPProfile

	// onScore, when set, is invoked for every score increment a rule
	// produces. Used to feed metrics.
	onScore func(rule string, delta int)
}

func New(cfg Config, internal func(netip.Addr) bool) *Engine {
	return &Engine{
		cfg: cfg,
		rules: []ports.Rule{
			NewBruteForceRule(cfg),
			NewPortScanRule(cfg),
			NewInjectionRule(cfg),
			NewBurstRule(cfg),
			NewExternalAccessRule(cfg, internal),
		},
		profiles: make(map[netip.Addr]*domain.IPProfile),
	}
}

// SetScoreHook registers a callback for rule score increments. Must be set
// before the first Process call.
func (e *Engine) SetScoreHook(fn func(rule string, delta int)) {
	e.onScore = fn
}

// Process folds one event into the engine: the profile observes it, then
// every rule evaluates it and any positive score is attributed.
func (e *Engine) Process(ev *domain.AccessEvent) {
	profile := e.profiles[ev.IP]
	if profile == nil {
		profile = domain.NewIPProfile(ev.IP, e.cfg.MaxScore)
		e.profiles[ev.IP] = profile
	}

	profile.Observe(ev)

	for _, rule := range e.rules {
		delta := rule.Evaluate(ev, profile)
		if delta <= 0 {
			continue
		}
		profile.AddRuleScore(rule.Name(), delta)
		if e.onScore != nil {
			e.onScore(rule.Name(), delta)
		}
		log.Debug().
			Str("ip", ev.IP.String()).
			Str("rule", rule.Name()).
			Int("delta", delta).
			Int("score", profile.ThreatScore).
			Msg("Rule triggered")
	}
}

// Report builds the ranked threat report over all profiles seen so far.
func (e *Engine) Report(now time.Time) *domain.ThreatReport {
	profiles := make([]*domain.IPProfile, 0, len(e.profiles))
	for _, p := range e.profiles {
		profiles = append(profiles, p)
	}
	return domain.BuildReport(profiles, e.cfg.MaxScore, now)
}

// Profiles returns the number of distinct IPs tracked.
func (e *Engine) Profiles() int {
	return len(e.profiles)
}

// Reset drops all profiles and rule state.
func (e *Engine) Reset() {
	e.profiles = make(map[netip.Addr]*domain.IPProfile)
	for _, rule := range e.rules {
		rule.Reset()
	}
}
