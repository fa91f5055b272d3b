// Package suggestion defines the pick-list entries offered when a scan does
// not auto-accept.
package suggestion

// Entry is one alternative the operator can pick instead of (or to confirm)
// the detected product. It carries enough to render a pick list row.
type Entry struct {
	ClassID     string  `json:"class"`
	Name        string  `json:"name"`
	Barcode     string  `json:"barcode"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand,omitempty"`
	Highlighted bool    `json:"highlighted"`
	// Reason is a human-readable hint, e.g. "92% match" or "same brand: Oishi".
	Reason string `json:"reason"`
}
