package detection

import (
	"net/netip"
	"net/url"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/logsentry/logsentry/internal/domain"
)

// InjectionRule matches SQL injection signatures against the request path
// and query string. Each distinct signature scores once per IP, up to a cap,
// so a vulnerability scanner replaying one payload thousands of times does
// not dominate the score.
type InjectionRule struct {
	cfg      InjectionConfig
	patterns []*regexp.Regexp
	state    map[netip.Addr]*injectionState
}

type injectionState struct {
	matched map[int]struct{}
	scored  int
}

func NewInjectionRule(cfg Config) *InjectionRule {
	rule := &InjectionRule{
		cfg:   cfg.Injection,
		state: make(map[netip.Addr]*injectionState),
	}
	for _, sig := range cfg.Injection.Signatures {
		re, err := regexp.Compile(sig)
		if err != nil {
			log.Warn().Err(err).Str("signature", sig).Msg("Skipping invalid injection signature")
			continue
		}
		rule.patterns = append(rule.patterns, re)
	}
	return rule
}

func (r *InjectionRule) Name() string { return RuleSQLInjection }

func (r *InjectionRule) Evaluate(ev *domain.AccessEvent, profile *domain.IPProfile) int {
	target := ev.Path
	// Payloads are routinely percent-encoded; match the decoded form too.
	if decoded, err := url.QueryUnescape(ev.Path); err == nil && decoded != ev.Path {
		target = target + " " + decoded
	}
	// The raw line catches payloads smuggled outside the path, such as in
	// the referrer or user agent.
	if ev.RawLine != "" {
		target = target + " " + ev.RawLine
	}

	st := r.state[ev.IP]
	if st == nil {
		st = &injectionState{matched: make(map[int]struct{})}
		r.state[ev.IP] = st
	}

	score := 0
	for i, re := range r.patterns {
		if !re.MatchString(target) {
			continue
		}
		profile.InjectionHits++
		if _, seen := st.matched[i]; seen {
			continue
		}
		st.matched[i] = struct{}{}
		if st.scored+r.cfg.Weight <= r.cfg.Cap {
			st.scored += r.cfg.Weight
			score += r.cfg.Weight
		}
	}
	return score
}

func (r *InjectionRule) Reset() {
	r.state = make(map[netip.Addr]*injectionState)
}
