package ports

import "context"

// ChangeNotifier abstracts the filesystem-notification mechanism that wakes
// the watch loop. The loop must keep working when no notifier is available
// (nil notifier degrades to pure min-interval polling), and tests substitute
// a manual tick source.
type ChangeNotifier interface {
	// Watch starts delivering change signals for path. Signals are
	// best-effort wake-ups, not a byte-accurate change log; the watch loop
	// coalesces them and re-reads from its own cursor.
	Watch(ctx context.Context, path string) (<-chan struct{}, error)
	Close() error
}
