// Package decisioncache stores recent evaluations keyed by image
// fingerprint, absorbing accidental duplicate submissions from a live
// camera feed. Losing entries never causes incorrect behavior, only
// repeated computation.
package decisioncache

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kiosklabs/shelfscan/internal/domain/decision"
)

type memoryEntry struct {
	evaluation decision.Evaluation
	insertedAt time.Time
}

// Memory is a bounded, time-expiring in-process cache. Expiry is enforced
// lazily on read; there is no sweeper goroutine.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	cacheTotal *prometheus.CounterVec
	now        func() time.Time
}

// NewMemory creates a memory cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"); may be nil.
func NewMemory(ttl time.Duration, maxEntries int, cacheTotal *prometheus.CounterVec) *Memory {
	return &Memory{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		cacheTotal: cacheTotal,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Get returns the cached evaluation for a fingerprint, if present and
// younger than the TTL. An expired entry is evicted on the spot.
func (m *Memory) Get(_ context.Context, fingerprint string) (decision.Evaluation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[fingerprint]
	if !ok {
		m.incCache("miss")
		return decision.Evaluation{}, false
	}
	if m.now().Sub(e.insertedAt) >= m.ttl {
		delete(m.entries, fingerprint)
		m.incCache("miss")
		return decision.Evaluation{}, false
	}
	m.incCache("hit")
	return e.evaluation, true
}

// Put stores an evaluation, overwriting any previous entry for the
// fingerprint. When the cache grows past its bound the single oldest entry
// by insertion time is evicted, so the size never exceeds the bound by more
// than one entry.
func (m *Memory) Put(_ context.Context, fingerprint string, ev decision.Evaluation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[fingerprint] = memoryEntry{evaluation: ev, insertedAt: m.now()}

	if len(m.entries) > m.maxEntries {
		m.evictOldestLocked()
	}
}

// Len returns the current entry count, expired entries included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range m.entries {
		if first || e.insertedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.insertedAt
			first = false
		}
	}
	delete(m.entries, oldestKey)
}

func (m *Memory) incCache(result string) {
	if m.cacheTotal != nil {
		m.cacheTotal.WithLabelValues(result).Inc()
	}
}
