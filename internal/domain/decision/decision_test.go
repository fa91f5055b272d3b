package decision

import (
	"errors"
	"testing"

	"github.com/kiosklabs/shelfscan/internal/domain"
	"github.com/kiosklabs/shelfscan/internal/domain/detection"
)

var defaultThresholds = Thresholds{High: 75, Medium: 50, Low: 25}

func scored(classID string, adjusted float64) detection.Scored {
	return detection.NewScored(classID, classID, "", adjusted, adjusted, 10, "Snacks", "", "pack", 5, detection.BBox{})
}

func TestDecide_Empty_NoMatch(t *testing.T) {
	d, meta := Decide(nil, defaultThresholds)

	if d.Outcome() != OutcomeNoMatch {
		t.Errorf("outcome = %q, want %q", d.Outcome(), OutcomeNoMatch)
	}
	if len(d.Detections()) != 0 {
		t.Errorf("NoMatch carries %d detections", len(d.Detections()))
	}
	if meta.HighConfidenceCount != 0 {
		t.Errorf("HighConfidenceCount = %d, want 0", meta.HighConfidenceCount)
	}
}

func TestDecide_SingleHigh_AutoAccept(t *testing.T) {
	// coke at 0.90 raw with a +5 category bias lands at 95.
	d, _ := Decide([]detection.Scored{scored("coke", 95)}, defaultThresholds)

	if d.Outcome() != OutcomeAutoAccept {
		t.Errorf("outcome = %q, want %q", d.Outcome(), OutcomeAutoAccept)
	}
	if d.Level() != LevelHigh {
		t.Errorf("level = %q, want %q", d.Level(), LevelHigh)
	}
	primary, ok := d.Primary()
	if !ok || primary.ClassID() != "coke" {
		t.Errorf("primary = %v, %v", primary.ClassID(), ok)
	}
}

func TestDecide_ExactlyHighThreshold_AutoAccepts(t *testing.T) {
	// Boundary is inclusive.
	d, meta := Decide([]detection.Scored{scored("coke", 75)}, defaultThresholds)

	if d.Outcome() != OutcomeAutoAccept {
		t.Errorf("outcome at exact threshold = %q, want %q", d.Outcome(), OutcomeAutoAccept)
	}
	if meta.HighConfidenceCount != 1 {
		t.Errorf("HighConfidenceCount = %d, want 1", meta.HighConfidenceCount)
	}
}

func TestDecide_SingleMedium_ConfirmMediumLevel(t *testing.T) {
	d, _ := Decide([]detection.Scored{scored("ligo", 60)}, defaultThresholds)

	if d.Outcome() != OutcomeConfirm {
		t.Errorf("outcome = %q, want %q", d.Outcome(), OutcomeConfirm)
	}
	if d.Level() != LevelMedium {
		t.Errorf("level = %q, want %q", d.Level(), LevelMedium)
	}
}

func TestDecide_SingleLow_ConfirmLowLevel(t *testing.T) {
	d, _ := Decide([]detection.Scored{scored("egg", 30)}, defaultThresholds)

	if d.Outcome() != OutcomeConfirm {
		t.Errorf("outcome = %q, want %q", d.Outcome(), OutcomeConfirm)
	}
	if d.Level() != LevelLow {
		t.Errorf("level = %q, want %q", d.Level(), LevelLow)
	}
}

func TestDecide_BelowLow_StillConfirms(t *testing.T) {
	// Sub-minimum detections normally never reach the engine; if one does,
	// it is handled as a maximally uncertain confirm.
	d, _ := Decide([]detection.Scored{scored("egg", 10)}, defaultThresholds)

	if d.Outcome() != OutcomeConfirm || d.Level() != LevelLow {
		t.Errorf("got %q/%q, want confirm/low", d.Outcome(), d.Level())
	}
}

func TestDecide_Multiple_ChooseAmong(t *testing.T) {
	ranked := []detection.Scored{scored("coke", 90), scored("ligo", 85), scored("egg", 40)}
	d, meta := Decide(ranked, defaultThresholds)

	if d.Outcome() != OutcomeChooseAmong {
		t.Errorf("outcome = %q, want %q", d.Outcome(), OutcomeChooseAmong)
	}
	if len(d.Detections()) != 3 {
		t.Errorf("carried %d detections, want 3", len(d.Detections()))
	}
	if meta.HighConfidenceCount != 2 {
		t.Errorf("HighConfidenceCount = %d, want 2", meta.HighConfidenceCount)
	}
}

func TestDecide_TwoHighDetections_NotAutoAccepted(t *testing.T) {
	// Two distinct products both above the high bar still require a choice.
	d, _ := Decide([]detection.Scored{scored("coke", 95), scored("ligo", 90)}, defaultThresholds)

	if d.Outcome() != OutcomeChooseAmong {
		t.Errorf("outcome = %q, want %q", d.Outcome(), OutcomeChooseAmong)
	}
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name    string
		th      Thresholds
		wantErr bool
	}{
		{"default ordering", Thresholds{High: 75, Medium: 50, Low: 25}, false},
		{"equal bands allowed", Thresholds{High: 50, Medium: 50, Low: 50}, false},
		{"medium above high", Thresholds{High: 50, Medium: 75, Low: 25}, true},
		{"low above medium", Thresholds{High: 75, Medium: 25, Low: 50}, true},
		{"negative low", Thresholds{High: 75, Medium: 50, Low: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.th.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidConfiguration) {
				t.Errorf("error %v is not ErrInvalidConfiguration", err)
			}
		})
	}
}
