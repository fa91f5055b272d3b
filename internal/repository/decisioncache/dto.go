package decisioncache

import (
	"encoding/json"
	"fmt"

	"github.com/kiosklabs/shelfscan/internal/domain/decision"
	"github.com/kiosklabs/shelfscan/internal/domain/detection"
	"github.com/kiosklabs/shelfscan/internal/domain/suggestion"
)

// detectionRow is the JSON-serializable representation of a scored detection.
type detectionRow struct {
	ClassID       string  `json:"class"`
	ProductName   string  `json:"name"`
	Barcode       string  `json:"barcode"`
	RawConfidence float64 `json:"confidence"`
	Adjusted      float64 `json:"adjusted_confidence"`
	Price         float64 `json:"price"`
	Category      string  `json:"category"`
	Brand         string  `json:"brand,omitempty"`
	Unit          string  `json:"unit,omitempty"`
	Stock         int     `json:"stock"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
}

// evaluationRow is the JSON document stored in the shared cache.
type evaluationRow struct {
	Outcome             string             `json:"outcome"`
	Level               string             `json:"level,omitempty"`
	Detections          []detectionRow     `json:"detections,omitempty"`
	HighConfidenceCount int                `json:"high_confidence_count"`
	Suggestions         []suggestion.Entry `json:"suggestions,omitempty"`
	Message             string             `json:"message,omitempty"`
}

func marshalEvaluation(ev *decision.Evaluation) ([]byte, error) {
	d := ev.Decision()
	row := evaluationRow{
		Outcome:             string(d.Outcome()),
		Level:               string(d.Level()),
		HighConfidenceCount: ev.Meta().HighConfidenceCount,
		Suggestions:         ev.Suggestions(),
		Message:             ev.Message(),
	}
	for i := range d.Detections() {
		s := d.Detections()[i]
		row.Detections = append(row.Detections, detectionRow{
			ClassID:       s.ClassID(),
			ProductName:   s.ProductName(),
			Barcode:       s.Barcode(),
			RawConfidence: s.RawConfidence(),
			Adjusted:      s.AdjustedConfidence(),
			Price:         s.Price(),
			Category:      s.Category(),
			Brand:         s.Brand(),
			Unit:          s.Unit(),
			Stock:         s.Stock(),
			X:             s.BBox().X,
			Y:             s.BBox().Y,
			Width:         s.BBox().Width,
			Height:        s.BBox().Height,
		})
	}
	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation: %w", err)
	}
	return data, nil
}

func unmarshalEvaluation(data []byte) (decision.Evaluation, error) {
	var row evaluationRow
	if err := json.Unmarshal(data, &row); err != nil {
		return decision.Evaluation{}, fmt.Errorf("unmarshal evaluation: %w", err)
	}

	var scored []detection.Scored
	for _, r := range row.Detections {
		scored = append(scored, detection.NewScored(
			r.ClassID, r.ProductName, r.Barcode,
			r.RawConfidence, r.Adjusted, r.Price,
			r.Category, r.Brand, r.Unit, r.Stock,
			detection.BBox{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height},
		))
	}

	d := decision.Reconstruct(decision.Outcome(row.Outcome), scored, decision.Level(row.Level))
	meta := decision.Meta{HighConfidenceCount: row.HighConfidenceCount}
	return decision.NewEvaluation(d, meta, row.Suggestions, row.Message), nil
}
