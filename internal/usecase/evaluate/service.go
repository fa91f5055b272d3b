// Package evaluate is the detection decision engine: it turns raw model
// predictions plus a product catalog and image fingerprint into a
// deterministic, cached, ranked decision.
package evaluate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kiosklabs/shelfscan/internal/domain/decision"
	"github.com/kiosklabs/shelfscan/internal/domain/detection"
	"github.com/kiosklabs/shelfscan/internal/logger"
	"github.com/kiosklabs/shelfscan/internal/metrics"
)

// SuggestionLimits are the pick-list sizes per outcome.
type SuggestionLimits struct {
	Confirm   int // medium-confidence confirm and choose-among
	Uncertain int // low-confidence confirm shows more alternatives
	Fallback  int // no-match manual entry
}

// Result is what Evaluate returns to the transport layer.
type Result struct {
	Evaluation decision.Evaluation
	Cached     bool
}

// Service runs the evaluation pipeline. All fields are fixed at
// construction; the only shared mutable state is behind the cache and
// stats implementations.
type Service struct {
	catalog    CatalogLookup
	cache      DecisionCache
	stats      StatsRecorder
	adjuster   scoringAdjuster
	thresholds decision.Thresholds
	limits     SuggestionLimits
}

// scoringAdjuster is the confidence adjustment contract (satisfied by
// scoring.Adjuster).
type scoringAdjuster interface {
	Adjust(rawConfidence float64, category string) float64
}

// New creates the engine. Thresholds must already be validated; the engine
// itself cannot fail at runtime for any well-typed input.
func New(
	cat CatalogLookup,
	cache DecisionCache,
	stats StatsRecorder,
	adjuster scoringAdjuster,
	thresholds decision.Thresholds,
	limits SuggestionLimits,
) *Service {
	return &Service{
		catalog:    cat,
		cache:      cache,
		stats:      stats,
		adjuster:   adjuster,
		thresholds: thresholds,
		limits:     limits,
	}
}

// Evaluate is the single engine entry point: cache lookup, catalog mapping
// with confidence adjustment, dedup/rank, tier policy, suggestions, cache
// store and stats update. It is total over valid inputs — an empty
// detection list is a normal NoMatch, never an error.
//
// startedAt marks when the request began (so the recorded latency covers
// the upstream model call too); pass the zero value to measure from here.
func (s *Service) Evaluate(
	ctx context.Context,
	raws []detection.Raw,
	fingerprint string,
	startedAt time.Time,
) Result {
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	log := logger.FromContext(ctx)

	if ev, ok := s.cache.Get(ctx, fingerprint); ok {
		log.Debug("Using cached evaluation", zap.String("fingerprint", fingerprint))
		s.finish(startedAt, &ev)
		return Result{Evaluation: ev, Cached: true}
	}

	ranked := detection.Rank(s.score(ctx, raws))
	d, meta := decision.Decide(ranked, s.thresholds)
	ev := s.assemble(d, meta)

	s.cache.Put(ctx, fingerprint, ev)
	s.finish(startedAt, &ev)
	return Result{Evaluation: ev}
}

// score maps raw predictions to catalog-backed scored detections. A class
// with no catalog entry is logged and dropped, never surfaced as an error.
func (s *Service) score(ctx context.Context, raws []detection.Raw) []detection.Scored {
	log := logger.FromContext(ctx)

	scored := make([]detection.Scored, 0, len(raws))
	for _, raw := range raws {
		entry, ok := s.catalog.Lookup(raw.ClassID)
		if !ok {
			log.Warn("Unknown detection class, dropping", zap.String("class", raw.ClassID))
			metrics.UnknownClassTotal.Inc()
			continue
		}
		adjusted := s.adjuster.Adjust(raw.Confidence, entry.Category())
		scored = append(scored, detection.NewScored(
			entry.ClassID(), entry.DisplayName(), entry.Barcode(),
			raw.Confidence*100, adjusted, entry.Price(),
			entry.Category(), entry.Brand(), entry.Unit(), entry.Stock(),
			raw.BBox,
		))
	}
	return scored
}

// assemble builds the evaluation for a fresh decision: suggestions sized by
// outcome and the operator-facing message.
func (s *Service) assemble(d decision.Decision, meta decision.Meta) decision.Evaluation {
	var suggestions = s.suggestionsFor(&d)
	return decision.NewEvaluation(d, meta, suggestions, s.messageFor(&d, meta))
}

func (s *Service) messageFor(d *decision.Decision, meta decision.Meta) string {
	switch d.Outcome() {
	case decision.OutcomeAutoAccept:
		p, _ := d.Primary()
		return fmt.Sprintf("%s detected - ₱%.2f", p.ProductName(), p.Price())
	case decision.OutcomeConfirm:
		p, _ := d.Primary()
		if d.Level() == decision.LevelMedium {
			return fmt.Sprintf("Is this %s? (%.0f%% confidence)", p.ProductName(), p.AdjustedConfidence())
		}
		return "Uncertain detection. Please select the correct product."
	case decision.OutcomeChooseAmong:
		msg := fmt.Sprintf("Found %d products. ", len(d.Detections()))
		if meta.HighConfidenceCount > 0 {
			msg += fmt.Sprintf("%d with high confidence. ", meta.HighConfidenceCount)
		}
		return msg + "Select the correct one."
	default:
		return "No products detected. Please adjust position, lighting, or try manual entry."
	}
}

// finish records stats and the outcome metric for a completed evaluation.
func (s *Service) finish(startedAt time.Time, ev *decision.Evaluation) {
	d := ev.Decision()
	s.stats.Record(time.Since(startedAt).Seconds(), succeeded(&d))
	metrics.ScanRequestsTotal.WithLabelValues(string(d.Outcome())).Inc()
}

// succeeded reports whether an outcome counts as a successful detection:
// an auto-accept, a multi-product pick list, or a confirm the operator
// merely acknowledges. A low-certainty confirm and no-match count as
// failures, matching how the stats were kept historically.
func succeeded(d *decision.Decision) bool {
	switch d.Outcome() {
	case decision.OutcomeAutoAccept, decision.OutcomeChooseAmong:
		return true
	case decision.OutcomeConfirm:
		return d.Level() == decision.LevelMedium
	default:
		return false
	}
}

// Lookup returns the cached evaluation for a fingerprint without running
// the pipeline. Callers use it to skip the upstream model call entirely on
// a repeat submission; a hit records stats like any completed request.
func (s *Service) Lookup(ctx context.Context, fingerprint string, startedAt time.Time) (Result, bool) {
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	ev, ok := s.cache.Get(ctx, fingerprint)
	if !ok {
		return Result{}, false
	}
	s.finish(startedAt, &ev)
	return Result{Evaluation: ev, Cached: true}, true
}
