package slidingwindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestWindowPrune(t *testing.T) {
	w := New(time.Minute)

	for i := 0; i < 10; i++ {
		w.Add(base.Add(time.Duration(i) * 10 * time.Second))
	}
	assert.Equal(t, 10, w.Len())

	// At base+90s the one-minute window spans (base+30s, base+90s];
	// entries at 0s, 10s and 20s fall out.
	w.Prune(base.Add(90 * time.Second))
	assert.Equal(t, 7, w.Len())

	oldest, ok := w.Oldest()
	assert.True(t, ok)
	assert.Equal(t, base.Add(30*time.Second), oldest)
}

func TestWindowPruneAll(t *testing.T) {
	w := New(time.Minute)
	w.Add(base)
	w.Add(base.Add(time.Second))

	w.Prune(base.Add(time.Hour))
	assert.Equal(t, 0, w.Len())

	_, ok := w.Oldest()
	assert.False(t, ok)
}

func TestWindowCompaction(t *testing.T) {
	w := New(time.Minute)
	for i := 0; i < 1000; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		w.Add(at)
		w.Prune(at)
		assert.LessOrEqual(t, w.Len(), 61)
	}
	// Backing slice must not retain the full history.
	assert.Less(t, cap(w.items), 1000)
}

func TestWindowBoundaryInclusive(t *testing.T) {
	w := New(time.Minute)
	w.Add(base)
	// An entry exactly at now-span stays in the window.
	w.Prune(base.Add(time.Minute))
	assert.Equal(t, 1, w.Len())
	w.Prune(base.Add(time.Minute + time.Nanosecond))
	assert.Equal(t, 0, w.Len())
}

func TestKeyedDistinct(t *testing.T) {
	k := NewKeyed(time.Minute)

	k.Add(base, "/a")
	k.Add(base.Add(time.Second), "/b")
	k.Add(base.Add(2*time.Second), "/a")
	assert.Equal(t, 3, k.Len())
	assert.Equal(t, 2, k.Distinct())

	// Evict the first /a; /a is still present once.
	k.Prune(base.Add(time.Minute + time.Second))
	assert.Equal(t, 2, k.Len())
	assert.Equal(t, 2, k.Distinct())

	// Evict /b; only the second /a remains.
	k.Prune(base.Add(time.Minute + 2*time.Second))
	assert.Equal(t, 1, k.Len())
	assert.Equal(t, 1, k.Distinct())
}

func TestKeyedReset(t *testing.T) {
	k := NewKeyed(time.Minute)
	k.Add(base, "/a")
	k.Reset()
	assert.Equal(t, 0, k.Len())
	assert.Equal(t, 0, k.Distinct())
}
