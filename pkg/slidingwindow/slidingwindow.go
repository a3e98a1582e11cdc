// Package slidingwindow provides time-bounded event windows with amortized
// O(1) eviction from the front. Rule state in the detection engine is built
// on these instead of unbounded slices so memory stays bounded in long
// watch-mode runs.
package slidingwindow

import "time"

// Window is an ordered sequence of instants bounded by a fixed span.
// Instants must be added in non-decreasing order; Prune drops everything
// older than now minus the span.
//
// Not safe for concurrent use. The detection pipeline has a single mutator.
type Window struct {
	span  time.Duration
	items []time.Time
	head  int
}

func New(span time.Duration) *Window {
	return &Window{span: span}
}

// Add appends an instant to the window.
func (w *Window) Add(t time.Time) {
	w.items = append(w.items, t)
}

// Prune evicts all instants older than now - span. Eviction advances a head
// index; the backing slice is compacted once the dead prefix dominates, which
// keeps eviction amortized O(1).
func (w *Window) Prune(now time.Time) {
	cutoff := now.Add(-w.span)
	for w.head < len(w.items) && w.items[w.head].Before(cutoff) {
		w.head++
	}
	w.compact()
}

func (w *Window) compact() {
	if w.head > 0 && w.head*2 >= len(w.items) {
		n := copy(w.items, w.items[w.head:])
		w.items = w.items[:n]
		w.head = 0
	}
}

// Len returns the number of instants currently inside the window.
func (w *Window) Len() int {
	return len(w.items) - w.head
}

// Span returns the configured window size.
func (w *Window) Span() time.Duration {
	return w.span
}

// Oldest returns the earliest instant still in the window.
func (w *Window) Oldest() (time.Time, bool) {
	if w.Len() == 0 {
		return time.Time{}, false
	}
	return w.items[w.head], true
}

// Reset empties the window.
func (w *Window) Reset() {
	w.items = w.items[:0]
	w.head = 0
}

type keyedItem struct {
	at  time.Time
	key string
}

// Keyed is a Window whose entries carry a string key, with an O(1) count of
// distinct keys currently inside the window. Used for windowed unique-path
// tracking.
type Keyed struct {
	span   time.Duration
	items  []keyedItem
	head   int
	counts map[string]int
}

func NewKeyed(span time.Duration) *Keyed {
	return &Keyed{span: span, counts: make(map[string]int)}
}

func (k *Keyed) Add(t time.Time, key string) {
	k.items = append(k.items, keyedItem{at: t, key: key})
	k.counts[key]++
}

func (k *Keyed) Prune(now time.Time) {
	cutoff := now.Add(-k.span)
	for k.head < len(k.items) && k.items[k.head].at.Before(cutoff) {
		it := k.items[k.head]
		if n := k.counts[it.key]; n <= 1 {
			delete(k.counts, it.key)
		} else {
			k.counts[it.key] = n - 1
		}
		k.head++
	}
	if k.head > 0 && k.head*2 >= len(k.items) {
		n := copy(k.items, k.items[k.head:])
		k.items = k.items[:n]
		k.head = 0
	}
}

// Len returns the number of entries in the window.
func (k *Keyed) Len() int {
	return len(k.items) - k.head
}

// Distinct returns the number of distinct keys in the window.
func (k *Keyed) Distinct() int {
	return len(k.counts)
}

func (k *Keyed) Reset() {
	k.items = k.items[:0]
	k.head = 0
	clear(k.counts)
}
