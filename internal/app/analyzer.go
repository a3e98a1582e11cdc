package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/logsentry/logsentry/internal/adapters/detection"
	"github.com/logsentry/logsentry/internal/adapters/filter"
	"github.com/logsentry/logsentry/internal/adapters/input"
	"github.com/logsentry/logsentry/internal/adapters/output"
	"github.com/logsentry/logsentry/internal/domain"
	"github.com/logsentry/logsentry/internal/ports"
)

// Analyzer owns one analysis run: input, filtering, detection and report
// sinks. Batch mode processes a glob once and writes the reports; watch mode
// re-scans a single file on change and keeps the reports current.
type Analyzer struct {
	cfg     Config
	parser  *input.CLFParser
	filter  *filter.Filter
	engine  *detection.Engine
	metrics *output.Metrics
	console *output.Console
	sinks   []ports.ReportSink
}

// New builds an analyzer from a validated configuration. The whitelist file
// is read here: a missing or unreadable whitelist is a configuration error,
// not something to silently analyze without.
func New(cfg Config, out io.Writer) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var whitelist []netip.Prefix
	if !cfg.NoWhitelist && cfg.WhitelistPath != "" {
		var err error
		whitelist, err = filter.LoadWhitelist(cfg.WhitelistPath)
		if err != nil {
			return nil, &ConfigError{Field: "filter.whitelist", Value: cfg.WhitelistPath, Reason: err.Error()}
		}
	}

	detCfg := detection.DefaultConfig()
	detCfg.Window = cfg.TimeWindow
	detCfg.BruteForce.Threshold = cfg.Threshold

	metrics := output.NewMetrics()
	engine := detection.New(detCfg, filter.Internal)
	engine.SetScoreHook(metrics.RuleScored)

	a := &Analyzer{
		cfg:     cfg,
		parser:  input.NewCLFParser(),
		filter:  filter.New(whitelist, cfg.IgnoreInternal),
		engine:  engine,
		metrics: metrics,
		console: output.NewConsole(out, 10),
		sinks: []ports.ReportSink{
			output.NewCSVWriter(cfg.OutputBase+".csv", detection.RuleOrder),
			output.NewHTMLWriter(cfg.OutputBase+".html", detection.RuleOrder),
		},
	}

	if cfg.MetricsAddr != "" {
		metrics.Serve(cfg.MetricsAddr)
	}
	return a, nil
}

// process feeds one parsed event through the filter into the engine.
func (a *Analyzer) process(ev *domain.AccessEvent) {
	if a.filter.Excluded(ev.IP) {
		a.metrics.EventExcluded()
		return
	}
	a.engine.Process(ev)
	a.metrics.EventProcessed()
}

// RunBatch analyzes every file matching the configured glob once, then
// writes the reports. Identical input always yields identical report files.
func (a *Analyzer) RunBatch(ctx context.Context) error {
	start := time.Now()
	reader := input.NewBatchReader(a.parser, a.metrics)

	if err := reader.Each(ctx, a.cfg.LogPath, a.process); err != nil {
		return fmt.Errorf("batch analysis: %w", err)
	}

	a.metrics.SetProfiles(a.engine.Profiles())
	report := a.engine.Report(time.Now())

	log.Info().
		Int("profiles", a.engine.Profiles()).
		Int("flagged", report.Len()).
		Int64("skipped_lines", reader.Skipped()).
		Dur("elapsed", time.Since(start)).
		Msg("Batch analysis complete")

	return a.flush(report)
}

// RunWatch follows a single log file until ctx is cancelled. Reports are
// rewritten after every scan that produced events, console alerts fire for
// IPs whose score appeared or rose, and a final report is flushed on
// shutdown.
func (a *Analyzer) RunWatch(ctx context.Context) error {
	reader := input.NewCursorReader(a.cfg.LogPath, a.parser, a.metrics)

	var notifier ports.ChangeNotifier
	fsn, err := input.NewFSNotifier()
	if err != nil {
		log.Warn().Err(err).Msg("Filesystem notifications unavailable, polling only")
	} else {
		notifier = fsn
		defer fsn.Close()
	}

	prevScores := make(map[netip.Addr]int)
	var lastRotations int64

	onScan := func(events int) {
		for n := reader.Rotations(); lastRotations < n; lastRotations++ {
			a.metrics.RotationSeen()
		}
		a.metrics.SetProfiles(a.engine.Profiles())

		report := a.engine.Report(time.Now())
		for _, e := range report.Entries {
			if prev := prevScores[e.IP]; e.ThreatScore > prev {
				a.console.Alert(e, prev)
				prevScores[e.IP] = e.ThreatScore
			}
		}
		if err := a.writeSinks(report); err != nil {
			log.Warn().Err(err).Msg("Report write failed, will retry after next scan")
		}
	}

	watcher := input.NewWatcher(a.cfg.LogPath, reader, notifier, a.cfg.MinInterval, onScan)
	if err := watcher.Run(ctx, a.process); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	log.Info().Msg("Shutting down, flushing final report")
	return a.flush(a.engine.Report(time.Now()))
}

// flush writes the report to every sink and prints the console summary.
func (a *Analyzer) flush(report *domain.ThreatReport) error {
	err := a.writeSinks(report)
	if cerr := a.console.Write(report); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

func (a *Analyzer) writeSinks(report *domain.ThreatReport) error {
	var errs []error
	for _, sink := range a.sinks {
		if err := sink.Write(report); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown stops the metrics endpoint, if one was started.
func (a *Analyzer) Shutdown(ctx context.Context) error {
	return a.metrics.Shutdown(ctx)
}
