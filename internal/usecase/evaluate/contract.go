package evaluate

import (
	"context"

	"github.com/kiosklabs/shelfscan/internal/domain/catalog"
	"github.com/kiosklabs/shelfscan/internal/domain/decision"
)

// CatalogLookup is the read-only product catalog the engine matches
// detections against.
type CatalogLookup interface {
	Lookup(classID string) (catalog.Entry, bool)
	All() []catalog.Entry
}

// DecisionCache stores recent evaluations by image fingerprint. Both
// methods are best-effort: a Get miss or a failed Put only costs repeated
// computation.
type DecisionCache interface {
	Get(ctx context.Context, fingerprint string) (decision.Evaluation, bool)
	Put(ctx context.Context, fingerprint string, ev decision.Evaluation)
}

// StatsRecorder accumulates request counters and latency.
type StatsRecorder interface {
	Record(latencySeconds float64, succeeded bool)
}
