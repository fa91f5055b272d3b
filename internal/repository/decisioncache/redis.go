package decisioncache

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kiosklabs/shelfscan/internal/db"
	"github.com/kiosklabs/shelfscan/internal/domain/decision"
)

// kvStore is the consumer interface for the shared cache (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Shared is a decision cache backed by a key-value store, letting several
// lanes share one cache. Expiry is server-side (SET EX); the store bounds
// its own memory, so no client-side eviction is needed.
type Shared struct {
	store      kvStore
	keyPrefix  string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// NewShared creates a store-backed cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"); may be nil.
func NewShared(
	store kvStore,
	keyPrefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Shared {
	return &Shared{
		store:      store,
		keyPrefix:  keyPrefix + "decision:",
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get returns the cached evaluation for a fingerprint. Store failures are
// logged and reported as misses; the cache is not correctness-critical.
func (s *Shared) Get(ctx context.Context, fingerprint string) (decision.Evaluation, bool) {
	data, err := s.store.Get(ctx, s.keyPrefix+fingerprint)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			s.logger.Warn("Failed to get cached decision", zap.String("fingerprint", fingerprint), zap.Error(err))
		}
		s.incCache("miss")
		return decision.Evaluation{}, false
	}

	ev, err := unmarshalEvaluation(data)
	if err != nil {
		s.logger.Warn("Failed to parse cached decision", zap.String("fingerprint", fingerprint), zap.Error(err))
		s.incCache("miss")
		return decision.Evaluation{}, false
	}

	s.incCache("hit")
	return ev, true
}

// Put stores an evaluation with the configured TTL, overwriting any
// previous entry.
func (s *Shared) Put(ctx context.Context, fingerprint string, ev decision.Evaluation) {
	data, err := marshalEvaluation(&ev)
	if err != nil {
		s.logger.Warn("Failed to encode decision for cache", zap.Error(err))
		return
	}
	if err := s.store.SetWithTTL(ctx, s.keyPrefix+fingerprint, data, s.ttl); err != nil {
		s.logger.Warn("Failed to cache decision", zap.String("fingerprint", fingerprint), zap.Error(err))
	}
}

func (s *Shared) incCache(result string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues(result).Inc()
	}
}
