package output

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics exposes pipeline counters on a Prometheus registry. A fresh
// registry per instance keeps tests independent and avoids duplicate
// registration when the analyzer is constructed more than once in a process.
type Metrics struct {
	registry *prometheus.Registry

	linesRead    prometheus.Counter
	linesSkipped prometheus.Counter
	excluded     prometheus.Counter
	events       prometheus.Counter
	ruleScores   *prometheus.CounterVec
	profiles     prometheus.Gauge
	rotations    prometheus.Counter

	server *http.Server
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.linesRead = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "logsentry",
		Name:      "lines_read_total",
		Help:      "Log lines read from input sources",
	})
	m.linesSkipped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "logsentry",
		Name:      "lines_skipped_total",
		Help:      "Lines dropped because they could not be parsed",
	})
	m.excluded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "logsentry",
		Name:      "events_excluded_total",
		Help:      "Events dropped by the whitelist or internal-range filter",
	})
	m.events = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "logsentry",
		Name:      "events_processed_total",
		Help:      "Events scored by the detection engine",
	})
	m.ruleScores = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logsentry",
		Name:      "rule_score_total",
		Help:      "Score points contributed, by rule",
	}, []string{"rule"})
	m.profiles = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "logsentry",
		Name:      "tracked_profiles",
		Help:      "Distinct source IPs currently tracked",
	})
	m.rotations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "logsentry",
		Name:      "log_rotations_total",
		Help:      "Rotations or truncations detected on the watched file",
	})

	return m
}

// LineRead and LineSkipped implement ports.ProcessingObserver.
func (m *Metrics) LineRead()    { m.linesRead.Inc() }
func (m *Metrics) LineSkipped() { m.linesSkipped.Inc() }

func (m *Metrics) EventExcluded()  { m.excluded.Inc() }
func (m *Metrics) EventProcessed() { m.events.Inc() }
func (m *Metrics) RotationSeen()   { m.rotations.Inc() }

func (m *Metrics) RuleScored(rule string, delta int) {
	m.ruleScores.WithLabelValues(rule).Add(float64(delta))
}

func (m *Metrics) SetProfiles(n int) {
	m.profiles.Set(float64(n))
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve starts the metrics endpoint in the background. Errors other than
// clean shutdown are logged, never fatal: losing metrics should not take the
// analyzer down.
func (m *Metrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	m.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("Metrics endpoint failed")
		}
	}()
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
