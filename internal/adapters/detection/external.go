package detection

import (
	"net/netip"
	"strings"

	"github.com/logsentry/logsentry/internal/domain"
)

// ExternalAccessRule flags non-internal sources reaching administrative or
// secret-bearing paths. It fires at most once per IP: the finding is "this
// outsider touched an admin surface", not a per-request event.
type ExternalAccessRule struct {
	cfg      ExternalConfig
	internal func(netip.Addr) bool
	fired    map[netip.Addr]struct{}
}

func NewExternalAccessRule(cfg Config, internal func(netip.Addr) bool) *ExternalAccessRule {
	return &ExternalAccessRule{
		cfg:      cfg.External,
		internal: internal,
		fired:    make(map[netip.Addr]struct{}),
	}
}

func (r *ExternalAccessRule) Name() string { return RuleExternalAccess }

func (r *ExternalAccessRule) Evaluate(ev *domain.AccessEvent, _ *domain.IPProfile) int {
	if _, done := r.fired[ev.IP]; done {
		return 0
	}
	if r.internal != nil && r.internal(ev.IP) {
		return 0
	}
	for _, p := range r.cfg.Prefixes {
		if strings.HasPrefix(ev.Path, p) {
			r.fired[ev.IP] = struct{}{}
			return r.cfg.Weight
		}
	}
	return 0
}

func (r *ExternalAccessRule) Reset() {
	r.fired = make(map[netip.Addr]struct{})
}
