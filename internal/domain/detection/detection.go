package detection

import "sort"

// BBox is the bounding box of one detection, in model pixel coordinates.
type BBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Area returns the box area.
func (b BBox) Area() float64 { return b.Width * b.Height }

// Raw is one prediction as returned by the external detection model:
// a class identifier, a confidence in [0,1] and a bounding box.
// Raw values live only for the duration of a request.
type Raw struct {
	ClassID    string
	Confidence float64
	BBox       BBox
}

// Scored combines a Raw detection with its catalog attributes and the
// category-adjusted confidence (0-100). Created once per request by the
// evaluation pipeline and discarded after the response is built.
type Scored struct {
	classID       string
	productName   string
	barcode       string
	rawConfidence float64
	adjusted      float64
	price         float64
	category      string
	brand         string
	unit          string
	stock         int
	bbox          BBox
}

// NewScored creates a scored detection.
// rawConfidence and adjusted are both on the 0-100 scale.
func NewScored(
	classID, productName, barcode string,
	rawConfidence, adjusted, price float64,
	category, brand, unit string,
	stock int,
	bbox BBox,
) Scored {
	return Scored{
		classID:       classID,
		productName:   productName,
		barcode:       barcode,
		rawConfidence: rawConfidence,
		adjusted:      adjusted,
		price:         price,
		category:      category,
		brand:         brand,
		unit:          unit,
		stock:         stock,
		bbox:          bbox,
	}
}

// ClassID returns the model class identifier.
func (s *Scored) ClassID() string { return s.classID }

// ProductName returns the catalog display name.
func (s *Scored) ProductName() string { return s.productName }

// Barcode returns the catalog barcode.
func (s *Scored) Barcode() string { return s.barcode }

// RawConfidence returns the model confidence on the 0-100 scale.
func (s *Scored) RawConfidence() float64 { return s.rawConfidence }

// AdjustedConfidence returns the category-adjusted confidence (0-100).
func (s *Scored) AdjustedConfidence() float64 { return s.adjusted }

// Price returns the catalog unit price.
func (s *Scored) Price() float64 { return s.price }

// Category returns the catalog category.
func (s *Scored) Category() string { return s.category }

// Brand returns the catalog brand ("" if unknown).
func (s *Scored) Brand() string { return s.brand }

// Unit returns the catalog sale unit ("" if unknown).
func (s *Scored) Unit() string { return s.unit }

// Stock returns the catalog stock count.
func (s *Scored) Stock() int { return s.stock }

// BBox returns the bounding box.
func (s *Scored) BBox() BBox { return s.bbox }

// Rank sorts detections descending by adjusted confidence and drops repeat
// detections of the same class, keeping the first occurrence. The sort is
// stable: on equal confidence the earlier input element survives, which
// determines which duplicate instance of a repeated class is kept. Repeats
// represent the same physical product detected twice, not two products.
func Rank(detections []Scored) []Scored {
	if len(detections) <= 1 {
		return detections
	}

	sorted := make([]Scored, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].adjusted > sorted[j].adjusted
	})

	seen := make(map[string]struct{}, len(sorted))
	unique := sorted[:0]
	for _, d := range sorted {
		if _, ok := seen[d.classID]; ok {
			continue
		}
		seen[d.classID] = struct{}{}
		unique = append(unique, d)
	}
	return unique
}
