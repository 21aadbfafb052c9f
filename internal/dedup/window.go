// Package dedup suppresses repeat notifications for the same container
// and lifecycle kind inside a fixed time span.
package dedup

import (
	"sync"
	"time"

	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/event"
)

// Key identifies a notification stream for suppression purposes. At
// most one last-accepted time is tracked per key.
type Key struct {
	Entity string
	Kind   event.Kind
}

// Window tracks the last accepted occurrence per key and reports
// repeats that land inside the span. State lives for the process
// lifetime only; a restart resets it.
//
// The event loop is single-threaded, but the mutex keeps the table
// safe should delivery ever be parallelized.
type Window struct {
	span time.Duration
	now  func() time.Time

	mu   sync.Mutex
	seen map[Key]time.Time
}

// New creates a Window with the given span. A zero span disables
// deduplication entirely.
func New(span time.Duration) *Window {
	return NewWithClock(span, time.Now)
}

// NewWithClock creates a Window with an injected clock, used by tests
// to drive eviction deterministically.
func NewWithClock(span time.Duration, now func() time.Time) *Window {
	return &Window{
		span: span,
		now:  now,
		seen: make(map[Key]time.Time),
	}
}

// Observe reports whether an occurrence at occurredAt is a duplicate of
// a recently accepted one. When it is not, occurredAt is recorded as
// the key's new last-accepted time; duplicates never refresh the
// recorded time. An occurrence exactly span after the last accepted one
// is not a duplicate.
func (w *Window) Observe(key Key, occurredAt time.Time) bool {
	if w.span <= 0 {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict()

	if last, ok := w.seen[key]; ok && occurredAt.Sub(last) < w.span {
		return true
	}
	w.seen[key] = occurredAt
	return false
}

// evict drops entries whose last-accepted time has aged out against the
// wall clock. Event timestamps can lag delivery, so eviction uses the
// clock rather than event time.
func (w *Window) evict() {
	cutoff := w.now().Add(-w.span)
	for key, last := range w.seen {
		if last.Before(cutoff) {
			delete(w.seen, key)
		}
	}
}
