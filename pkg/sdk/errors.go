package shelfscan

import "github.com/kiosklabs/shelfscan/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound             = domain.ErrNotFound
	ErrInvalidConfiguration = domain.ErrInvalidConfiguration
)
