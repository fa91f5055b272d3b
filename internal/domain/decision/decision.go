// Package decision implements the three-tier policy that turns a ranked
// detection list into a point-of-sale outcome.
package decision

import (
	"fmt"

	"github.com/kiosklabs/shelfscan/internal/domain"
	"github.com/kiosklabs/shelfscan/internal/domain/detection"
)

// Outcome is the tagged result of the policy. Exactly one outcome is
// produced per request.
type Outcome string

// Policy outcomes.
const (
	// OutcomeAutoAccept carries exactly one detection, safe to add to the cart.
	OutcomeAutoAccept Outcome = "auto_accept"
	// OutcomeConfirm carries exactly one detection the operator should confirm.
	OutcomeConfirm Outcome = "confirm"
	// OutcomeChooseAmong carries two or more plausible detections.
	OutcomeChooseAmong Outcome = "choose_among"
	// OutcomeNoMatch carries no detections; the caller falls back to manual entry.
	OutcomeNoMatch Outcome = "no_match"
)

// Level is the confidence band the primary detection fell into. It phrases
// the operator-facing message and sizes the suggestion list; it does not
// add a fourth outcome.
type Level string

// Confidence bands.
const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Thresholds are the three configured confidence bands, in percent.
type Thresholds struct {
	High   float64 `yaml:"high" json:"high"`
	Medium float64 `yaml:"medium" json:"medium"`
	Low    float64 `yaml:"low" json:"low"`
}

// Validate enforces high >= medium >= low >= 0. A violation is a startup
// configuration error, never a runtime condition.
func (t Thresholds) Validate() error {
	if t.Low < 0 {
		return fmt.Errorf("%w: low threshold %.1f is negative", domain.ErrInvalidConfiguration, t.Low)
	}
	if t.High < t.Medium || t.Medium < t.Low {
		return fmt.Errorf("%w: thresholds must satisfy high >= medium >= low, got %.1f/%.1f/%.1f",
			domain.ErrInvalidConfiguration, t.High, t.Medium, t.Low)
	}
	return nil
}

// Decision is the policy result: an outcome plus the detections it carries.
// AutoAccept/Confirm carry exactly one, ChooseAmong at least two, NoMatch none.
type Decision struct {
	outcome    Outcome
	detections []detection.Scored
	level      Level
}

// Outcome returns the outcome tag.
func (d *Decision) Outcome() Outcome { return d.outcome }

// Detections returns the carried detections (nil for NoMatch).
func (d *Decision) Detections() []detection.Scored { return d.detections }

// Primary returns the top-ranked detection, if the decision carries any.
func (d *Decision) Primary() (detection.Scored, bool) {
	if len(d.detections) == 0 {
		return detection.Scored{}, false
	}
	return d.detections[0], true
}

// Level returns the confidence band of the primary detection
// (LevelHigh for AutoAccept and ChooseAmong, "" for NoMatch).
func (d *Decision) Level() Level { return d.level }

// Meta is response metadata reported alongside the Decision. Callers use it
// to phrase messages; it is not part of the outcome itself.
type Meta struct {
	// HighConfidenceCount is how many ranked detections individually clear
	// the high threshold.
	HighConfidenceCount int
}

// Decide runs the tier state machine over a ranked, deduplicated list.
// Boundaries are inclusive: confidence exactly equal to High auto-accepts.
// Values under Low are normally filtered upstream by the model call's
// minimum-confidence parameter; if one slips through it is treated as a
// maximally uncertain Confirm, never an error.
func Decide(ranked []detection.Scored, th Thresholds) (Decision, Meta) {
	meta := Meta{}
	for i := range ranked {
		if ranked[i].AdjustedConfidence() >= th.High {
			meta.HighConfidenceCount++
		}
	}

	switch {
	case len(ranked) == 0:
		return Decision{outcome: OutcomeNoMatch}, meta

	case len(ranked) >= 2:
		return Decision{outcome: OutcomeChooseAmong, detections: ranked, level: LevelHigh}, meta

	default:
		d := ranked[0]
		conf := d.AdjustedConfidence()
		switch {
		case conf >= th.High:
			return Decision{outcome: OutcomeAutoAccept, detections: ranked, level: LevelHigh}, meta
		case conf >= th.Medium:
			return Decision{outcome: OutcomeConfirm, detections: ranked, level: LevelMedium}, meta
		default:
			return Decision{outcome: OutcomeConfirm, detections: ranked, level: LevelLow}, meta
		}
	}
}

// Reconstruct rebuilds a Decision from stored parts (cache hydration).
func Reconstruct(outcome Outcome, detections []detection.Scored, level Level) Decision {
	return Decision{outcome: outcome, detections: detections, level: level}
}
