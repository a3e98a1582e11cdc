package detection

import (
	"net/netip"

	"github.com/logsentry/logsentry/internal/domain"
	"github.com/logsentry/logsentry/pkg/slidingwindow"
)

// BurstRule flags request floods: a per-minute rate at or above the
// threshold. The contribution scales linearly with how far past the
// threshold the rate climbs, capped at twice the base weight. While the rate
// stays above the threshold the rule only tops up the difference, so the
// accumulated contribution tracks the peak rate instead of growing with
// every request; once the rate drains below the threshold the cycle re-arms.
type BurstRule struct {
	cfg   BurstConfig
	state map[netip.Addr]*burstState
}

type burstState struct {
	requests *slidingwindow.Window
	scored   int
}

func NewBurstRule(cfg Config) *BurstRule {
	return &BurstRule{
		cfg:   cfg.Burst,
		state: make(map[netip.Addr]*burstState),
	}
}

func (r *BurstRule) Name() string { return RuleDDoS }

func (r *BurstRule) Evaluate(ev *domain.AccessEvent, _ *domain.IPProfile) int {
	st := r.state[ev.IP]
	if st == nil {
		st = &burstState{requests: slidingwindow.New(r.cfg.Window)}
		r.state[ev.IP] = st
	}

	st.requests.Prune(ev.Timestamp)
	st.requests.Add(ev.Timestamp)

	rate := st.requests.Len()
	if rate < r.cfg.PerMinuteThreshold {
		st.scored = 0
		return 0
	}

	scale := float64(rate) / float64(r.cfg.PerMinuteThreshold)
	if scale > 2 {
		scale = 2
	}
	want := int(float64(r.cfg.Weight) * scale)
	if want <= st.scored {
		return 0
	}
	delta := want - st.scored
	st.scored = want
	return delta
}

func (r *BurstRule) Reset() {
	r.state = make(map[netip.Addr]*burstState)
}
