// Package scan orchestrates one scan event: image validation, fingerprint,
// cache short-circuit, the upstream model call, and evaluation.
package scan

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kiosklabs/shelfscan/internal/logger"
	"github.com/kiosklabs/shelfscan/internal/usecase/evaluate"
)

// Result is the full scan outcome handed to the transport layer.
type Result struct {
	Evaluation  evaluate.Result
	Image       ImageInfo
	Fingerprint string
	// Predictions is how many raw predictions the model returned before
	// catalog mapping and dedup (0 on a cache hit).
	Predictions    int
	ProcessingTime float64
	Timestamp      time.Time
}

// Service runs the scan pipeline.
type Service struct {
	detector Detector
	engine   Engine
}

// New creates a scan service.
func New(detector Detector, engine Engine) *Service {
	return &Service{detector: detector, engine: engine}
}

// Scan validates the image, consults the result cache and, on a miss,
// calls the detector and evaluates its predictions. Detector failures
// propagate as a retryable service error — never masked as an empty
// detection result.
func (s *Service) Scan(ctx context.Context, imageB64 string) (Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	cleaned, raw, info, err := decodeImage(imageB64)
	if err != nil {
		return Result{}, err
	}
	fp := fingerprint(raw)

	log.Debug("Scan request validated",
		zap.String("format", info.Format),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Int("bytes", info.SizeBytes),
	)

	if cached, ok := s.engine.Lookup(ctx, fp, start); ok {
		return s.result(cached, info, fp, 0, start), nil
	}

	raws, err := s.detector.Detect(ctx, cleaned)
	if err != nil {
		return Result{}, fmt.Errorf("invoke detector: %w", err)
	}

	evaluated := s.engine.Evaluate(ctx, raws, fp, start)
	return s.result(evaluated, info, fp, len(raws), start), nil
}

func (s *Service) result(ev evaluate.Result, info ImageInfo, fp string, predictions int, start time.Time) Result {
	return Result{
		Evaluation:     ev,
		Image:          info,
		Fingerprint:    fp,
		Predictions:    predictions,
		ProcessingTime: time.Since(start).Seconds(),
		Timestamp:      time.Now().UTC(),
	}
}
