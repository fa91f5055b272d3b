package shelfscan

import (
	"github.com/kiosklabs/shelfscan/internal/domain/decision"
	"github.com/kiosklabs/shelfscan/internal/domain/detection"
	"github.com/kiosklabs/shelfscan/internal/domain/suggestion"
)

// Outcome values a decision can produce.
const (
	OutcomeAutoAccept  = string(decision.OutcomeAutoAccept)
	OutcomeConfirm     = string(decision.OutcomeConfirm)
	OutcomeChooseAmong = string(decision.OutcomeChooseAmong)
	OutcomeNoMatch     = string(decision.OutcomeNoMatch)
)

// Confidence levels of a decision's primary detection.
const (
	LevelHigh   = string(decision.LevelHigh)
	LevelMedium = string(decision.LevelMedium)
	LevelLow    = string(decision.LevelLow)
)

// Product is one catalog entry, keyed by the detection class identifier.
type Product struct {
	Class    string
	Name     string
	Barcode  string
	Price    float64
	Category string
	Brand    string
	Unit     string
	Weight   string
	Stock    int
}

// Prediction is one raw model output: a class identifier, a confidence in
// [0, 1] and a bounding box in model pixel coordinates.
type Prediction struct {
	Class      string
	Confidence float64
	X          float64
	Y          float64
	Width      float64
	Height     float64
}

// Detection is one catalog-matched, confidence-adjusted detection.
// Confidences are on the 0-100 scale.
type Detection struct {
	Class              string
	Name               string
	Barcode            string
	Price              float64
	Category           string
	Brand              string
	Unit               string
	Stock              int
	Confidence         float64
	AdjustedConfidence float64
}

// Suggestion is one pick-list alternative offered when the decision is not
// an auto-accept.
type Suggestion struct {
	Class       string
	Name        string
	Barcode     string
	Price       float64
	Category    string
	Brand       string
	Highlighted bool
	Reason      string
}

// Evaluation is the complete engine outcome for one set of predictions.
type Evaluation struct {
	Outcome             string
	Level               string
	Message             string
	Detections          []Detection
	Suggestions         []Suggestion
	HighConfidenceCount int
	Cached              bool
}

// Stats are the running engine counters since the client was created.
type Stats struct {
	TotalRequests         int64
	SuccessCount          int64
	FailureCount          int64
	AverageLatencySeconds float64
	SuccessRate           float64
}

func predictionsToRaw(preds []Prediction) []detection.Raw {
	raws := make([]detection.Raw, len(preds))
	for i, p := range preds {
		raws[i] = detection.Raw{
			ClassID:    p.Class,
			Confidence: p.Confidence,
			BBox:       detection.BBox{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height},
		}
	}
	return raws
}

func evaluationFromDomain(ev *decision.Evaluation, cached bool) Evaluation {
	d := ev.Decision()

	out := Evaluation{
		Outcome:             string(d.Outcome()),
		Level:               string(d.Level()),
		Message:             ev.Message(),
		HighConfidenceCount: ev.Meta().HighConfidenceCount,
		Cached:              cached,
	}

	ds := d.Detections()
	out.Detections = make([]Detection, len(ds))
	for i := range ds {
		out.Detections[i] = detectionFromDomain(&ds[i])
	}

	if sugg := ev.Suggestions(); len(sugg) > 0 {
		out.Suggestions = make([]Suggestion, len(sugg))
		for i, s := range sugg {
			out.Suggestions[i] = suggestionFromDomain(s)
		}
	}
	return out
}

func detectionFromDomain(d *detection.Scored) Detection {
	return Detection{
		Class:              d.ClassID(),
		Name:               d.ProductName(),
		Barcode:            d.Barcode(),
		Price:              d.Price(),
		Category:           d.Category(),
		Brand:              d.Brand(),
		Unit:               d.Unit(),
		Stock:              d.Stock(),
		Confidence:         d.RawConfidence(),
		AdjustedConfidence: d.AdjustedConfidence(),
	}
}

func suggestionFromDomain(s suggestion.Entry) Suggestion {
	return Suggestion{
		Class:       s.ClassID,
		Name:        s.Name,
		Barcode:     s.Barcode,
		Price:       s.Price,
		Category:    s.Category,
		Brand:       s.Brand,
		Highlighted: s.Highlighted,
		Reason:      s.Reason,
	}
}
