// Package dedup remembers which item links have already been reported.
//
// In Coarse mode the whole set is dropped every window: one deadline for all
// entries, checked lazily on each call. A link can therefore stay blocked for
// up to twice the window, or become eligible again right after a sweep.
// Sliding mode expires each entry exactly window after it was first recorded.
package dedup

import (
	"sync"
	"time"
)

type Mode int

const (
	Coarse Mode = iota
	Sliding
)

// ParseMode maps "coarse"/"sliding" to a Mode; anything else is Coarse.
func ParseMode(s string) Mode {
	if s == "sliding" {
		return Sliding
	}
	return Coarse
}

type Option func(*Window)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Window) { w.now = now }
}

func WithMode(m Mode) Option {
	return func(w *Window) { w.mode = m }
}

type Window struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	window    time.Duration
	mode      Mode
	now       func() time.Time
	nextSweep time.Time
}

func New(window time.Duration, opts ...Option) *Window {
	w := &Window{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.nextSweep = w.now().Add(window)
	return w
}

// Seen reports whether link was recorded inside the current window.
func (w *Window) Seen(link string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.expireLocked(now)

	first, ok := w.seen[link]
	if !ok {
		return false
	}
	if w.mode == Sliding && !now.Before(first.Add(w.window)) {
		delete(w.seen, link)
		return false
	}
	return true
}

// Record stores link with the current time. Re-recording keeps the first-seen time.
func (w *Window) Record(link string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.expireLocked(now)
	if _, ok := w.seen[link]; !ok {
		w.seen[link] = now
	}
}

// Sweep clears every entry and restarts the coarse timer.
func (w *Window) Sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sweepLocked(w.now())
}

func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expireLocked(w.now())
	return len(w.seen)
}

func (w *Window) expireLocked(now time.Time) {
	switch w.mode {
	case Sliding:
		for link, first := range w.seen {
			if !now.Before(first.Add(w.window)) {
				delete(w.seen, link)
			}
		}
	default:
		if !now.Before(w.nextSweep) {
			w.sweepLocked(now)
		}
	}
}

func (w *Window) sweepLocked(now time.Time) {
	clear(w.seen)
	w.nextSweep = now.Add(w.window)
}

// Snapshot is the persisted form of a Window.
type Snapshot struct {
	Links     map[string]time.Time `json:"links"`
	NextSweep time.Time            `json:"next_sweep"`
}

func (w *Window) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expireLocked(w.now())

	links := make(map[string]time.Time, len(w.seen))
	for link, first := range w.seen {
		links[link] = first
	}
	return Snapshot{Links: links, NextSweep: w.nextSweep}
}

// Restore merges s into the window. Entries that are already expired are
// dropped on the next call.
func (w *Window) Restore(s Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for link, first := range s.Links {
		if cur, ok := w.seen[link]; !ok || first.Before(cur) {
			w.seen[link] = first
		}
	}
	if !s.NextSweep.IsZero() {
		w.nextSweep = s.NextSweep
	}
	w.expireLocked(w.now())
}
