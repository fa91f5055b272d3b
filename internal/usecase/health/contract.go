package health

import "context"

// StorePinger checks shared cache store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// DetectorChecker checks upstream detection service availability.
type DetectorChecker interface {
	HealthCheck(ctx context.Context) error
}
