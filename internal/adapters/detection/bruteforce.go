package detection

import (
	"net/netip"
	"strings"
	"time"

	"github.com/logsentry/logsentry/internal/domain"
	"github.com/logsentry/logsentry/pkg/slidingwindow"
)

// BruteForceRule flags repeated failed authentication against sensitive
// endpoints. It scores once per threshold crossing: the weight is added when
// the in-window failure count reaches the threshold, and can only be added
// again after the count falls back below it.
type BruteForceRule struct {
	cfg    BruteForceConfig
	window time.Duration
	state  map[netip.Addr]*bruteForceState
}

type bruteForceState struct {
	failures *slidingwindow.Window
	above    bool
}

func NewBruteForceRule(cfg Config) *BruteForceRule {
	return &BruteForceRule{
		cfg:    cfg.BruteForce,
		window: cfg.Window,
		state:  make(map[netip.Addr]*bruteForceState),
	}
}

func (r *BruteForceRule) Name() string { return RuleBruteForce }

func (r *BruteForceRule) Evaluate(ev *domain.AccessEvent, _ *domain.IPProfile) int {
	st := r.state[ev.IP]
	if st == nil {
		st = &bruteForceState{failures: slidingwindow.New(r.window)}
		r.state[ev.IP] = st
	}

	st.failures.Prune(ev.Timestamp)

	if r.failedAuth(ev) {
		st.failures.Add(ev.Timestamp)
	}

	if st.failures.Len() >= r.cfg.Threshold {
		if st.above {
			return 0
		}
		st.above = true
		return r.cfg.Weight
	}
	st.above = false
	return 0
}

func (r *BruteForceRule) failedAuth(ev *domain.AccessEvent) bool {
	status := false
	for _, s := range r.cfg.Statuses {
		if ev.StatusCode == s {
			status = true
			break
		}
	}
	if !status {
		return false
	}
	for _, p := range r.cfg.SensitivePaths {
		if strings.HasPrefix(ev.Path, p) {
			return true
		}
	}
	return false
}

func (r *BruteForceRule) Reset() {
	r.state = make(map[netip.Addr]*bruteForceState)
}
