package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store    StorePinger
	detector DetectorChecker
}

// New creates a Service. Either dependency can be nil (memory cache has no
// store to ping; the detector check can be disabled).
func New(store StorePinger, detector DetectorChecker) *Service {
	return &Service{store: store, detector: detector}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks["cache_store"] = CheckError
		} else {
			checks["cache_store"] = CheckOK
		}
	}

	if s.detector != nil {
		if err := s.detector.HealthCheck(ctx); err != nil {
			checks["detector"] = CheckError
		} else {
			checks["detector"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
