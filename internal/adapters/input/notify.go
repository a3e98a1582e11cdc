package input

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// FSNotifier adapts fsnotify to the ChangeNotifier port. It watches the
// file's parent directory (so rotation re-creates are seen too) and forwards
// a coalesced signal whenever the watched file is written, created, or
// renamed.
type FSNotifier struct {
	watcher *fsnotify.Watcher
}

func NewFSNotifier() (*FSNotifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FSNotifier{watcher: w}, nil
}

func (n *FSNotifier) Watch(ctx context.Context, path string) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := n.watcher.Add(filepath.Dir(abs)); err != nil {
		return nil, err
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-n.watcher.Events:
				if !ok {
					return
				}
				if ev.Name != abs {
					continue
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
					continue
				}
				select {
				case ch <- struct{}{}:
				default: // a wake-up is already pending
				}
			case err, ok := <-n.watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("Filesystem watcher error")
			}
		}
	}()
	return ch, nil
}

func (n *FSNotifier) Close() error {
	return n.watcher.Close()
}

// ManualNotifier is a ChangeNotifier driven by explicit Tick calls, used in
// tests in place of a real filesystem watcher.
type ManualNotifier struct {
	ch chan struct{}
}

func NewManualNotifier() *ManualNotifier {
	return &ManualNotifier{ch: make(chan struct{}, 1)}
}

func (n *ManualNotifier) Watch(ctx context.Context, path string) (<-chan struct{}, error) {
	return n.ch, nil
}

func (n *ManualNotifier) Tick() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n *ManualNotifier) Close() error {
	return nil
}
