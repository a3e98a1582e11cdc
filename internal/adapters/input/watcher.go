package input

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/logsentry/logsentry/internal/domain"
	"github.com/logsentry/logsentry/internal/ports"
)

// Watcher drives the continuous-monitoring loop: it suspends between scans
// and wakes on a filesystem change signal or when the minimum interval
// elapses, whichever comes first. The interval also caps scan frequency, so
// a flood of notifications on a very active log cannot cause busier re-scans
// than one per interval.
//
// With a nil notifier the loop degrades to pure interval polling.
type Watcher struct {
	reader      *CursorReader
	path        string
	notifier    ports.ChangeNotifier
	minInterval time.Duration

	// onScan runs after every scan that produced at least one event, from
	// the same goroutine that ran the pipeline.
	onScan func(events int)
}

func NewWatcher(path string, reader *CursorReader, notifier ports.ChangeNotifier, minInterval time.Duration, onScan func(int)) *Watcher {
	if minInterval <= 0 {
		minInterval = 5 * time.Second
	}
	return &Watcher{
		reader:      reader,
		path:        path,
		notifier:    notifier,
		minInterval: minInterval,
		onScan:      onScan,
	}
}

// Run blocks until ctx is cancelled, feeding newly appended events to fn.
// Transient read errors are logged and retried on the next wake; they never
// terminate the loop.
func (w *Watcher) Run(ctx context.Context, fn func(*domain.AccessEvent)) error {
	var notifyCh <-chan struct{}
	if w.notifier != nil {
		ch, err := w.notifier.Watch(ctx, w.path)
		if err != nil {
			log.Warn().Err(err).Str("file", w.path).
				Msg("Change notification unavailable, falling back to polling")
		} else {
			notifyCh = ch
		}
	}

	ticker := time.NewTicker(w.minInterval)
	defer ticker.Stop()

	scan := func() {
		n, err := w.reader.ReadNew(ctx, fn)
		if n > 0 && w.onScan != nil {
			w.onScan(n)
		}
		if err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("file", w.path).Msg("Scan failed, will retry")
		}
	}

	log.Info().Str("file", w.path).Dur("min_interval", w.minInterval).
		Bool("notify", notifyCh != nil).Msg("Watching log file")

	scan()
	lastScan := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-notifyCh:
			if time.Since(lastScan) < w.minInterval {
				// Too soon; the pending change is picked up on the
				// next tick.
				continue
			}
			scan()
			lastScan = time.Now()
		case <-ticker.C:
			scan()
			lastScan = time.Now()
		}
	}
}
