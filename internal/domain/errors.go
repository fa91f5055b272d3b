package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing catalog resource.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable signals that the detection model could not be reached.
	ErrUpstreamUnavailable = errors.New("detection service unavailable")
	// ErrUnknownClass signals a detection class with no catalog entry.
	ErrUnknownClass = errors.New("unknown detection class")
	// ErrInvalidImage signals an undecodable or truncated image payload.
	ErrInvalidImage = errors.New("invalid image")
	// ErrInvalidConfiguration signals a config that fails startup validation.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// DetectorErrorKind classifies detector call failures.
type DetectorErrorKind string

// Detector failure kinds.
const (
	DetectorTimeout     DetectorErrorKind = "timeout"
	DetectorUnreachable DetectorErrorKind = "unreachable"
	DetectorBadStatus   DetectorErrorKind = "bad_status"
)

// DetectorError wraps ErrUpstreamUnavailable with the failure kind and,
// for bad_status, the upstream HTTP status and response body.
type DetectorError struct {
	Kind       DetectorErrorKind
	StatusCode int
	Body       string
}

func (e *DetectorError) Error() string {
	if e.Kind == DetectorBadStatus {
		return fmt.Sprintf("%s: upstream status %d: %s", ErrUpstreamUnavailable.Error(), e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %s", ErrUpstreamUnavailable.Error(), e.Kind)
}

func (e *DetectorError) Unwrap() error { return ErrUpstreamUnavailable }

// NewDetectorError creates a detector failure of the given kind.
func NewDetectorError(kind DetectorErrorKind) error {
	return &DetectorError{Kind: kind}
}

// NewDetectorBadStatus creates a detector failure for a non-2xx upstream response.
func NewDetectorBadStatus(status int, body string) error {
	return &DetectorError{Kind: DetectorBadStatus, StatusCode: status, Body: body}
}
