package scan

import (
	"context"
	"time"

	"github.com/kiosklabs/shelfscan/internal/domain/detection"
	"github.com/kiosklabs/shelfscan/internal/usecase/evaluate"
)

// Detector invokes the external vision model over a base64-encoded image.
// It owns its own timeout and retry policy; a final failure unwraps to
// domain.ErrUpstreamUnavailable.
type Detector interface {
	Detect(ctx context.Context, imageB64 string) ([]detection.Raw, error)
}

// Engine is the decision engine consumed by the scan pipeline.
type Engine interface {
	Lookup(ctx context.Context, fingerprint string, startedAt time.Time) (evaluate.Result, bool)
	Evaluate(ctx context.Context, raws []detection.Raw, fingerprint string, startedAt time.Time) evaluate.Result
}
