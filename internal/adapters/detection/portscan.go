package detection

import (
	"net/netip"
	"time"

	"github.com/logsentry/logsentry/internal/domain"
	"github.com/logsentry/logsentry/pkg/slidingwindow"
)

// PortScanRule flags path enumeration: many distinct paths probed inside the
// window by one source. The distinct-path condition alone is too easy to meet
// for a busy legitimate crawler hitting a handful of pages, so the rule also
// requires a minimum total request count before it fires.
type PortScanRule struct {
	cfg    PortScanConfig
	window time.Duration
	state  map[netip.Addr]*portScanState
}

type portScanState struct {
	requests *slidingwindow.Keyed
	above    bool
}

func NewPortScanRule(cfg Config) *PortScanRule {
	return &PortScanRule{
		cfg:    cfg.PortScan,
		window: cfg.Window,
		state:  make(map[netip.Addr]*portScanState),
	}
}

func (r *PortScanRule) Name() string { return RulePortScan }

func (r *PortScanRule) Evaluate(ev *domain.AccessEvent, _ *domain.IPProfile) int {
	st := r.state[ev.IP]
	if st == nil {
		st = &portScanState{requests: slidingwindow.NewKeyed(r.window)}
		r.state[ev.IP] = st
	}

	st.requests.Prune(ev.Timestamp)
	st.requests.Add(ev.Timestamp, ev.Path)

	if st.requests.Distinct() >= r.cfg.PathThreshold && st.requests.Len() >= r.cfg.RequestFloor {
		if st.above {
			return 0
		}
		st.above = true
		return r.cfg.Weight
	}
	st.above = false
	return 0
}

func (r *PortScanRule) Reset() {
	r.state = make(map[netip.Addr]*portScanState)
}
