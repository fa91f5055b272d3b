// Package catalog defines the immutable product record the engine matches
// detections against. Entries are loaded once at process start and never
// mutated by the engine.
package catalog

// Entry is one known product, keyed by the detection class identifier.
type Entry struct {
	classID     string
	displayName string
	barcode     string
	price       float64
	category    string
	brand       string
	unit        string
	weight      string
	stock       int
}

// NewEntry creates a catalog entry.
func NewEntry(classID, displayName, barcode string, price float64, category, brand, unit, weight string, stock int) Entry {
	return Entry{
		classID:     classID,
		displayName: displayName,
		barcode:     barcode,
		price:       price,
		category:    category,
		brand:       brand,
		unit:        unit,
		weight:      weight,
		stock:       stock,
	}
}

// ClassID returns the detection class identifier.
func (e *Entry) ClassID() string { return e.classID }

// DisplayName returns the customer-facing product name.
func (e *Entry) DisplayName() string { return e.displayName }

// Barcode returns the product barcode.
func (e *Entry) Barcode() string { return e.barcode }

// Price returns the unit price.
func (e *Entry) Price() float64 { return e.price }

// Category returns the product category.
func (e *Entry) Category() string { return e.category }

// Brand returns the brand ("" if unknown).
func (e *Entry) Brand() string { return e.brand }

// Unit returns the sale unit, e.g. "can" or "pack" ("" if unknown).
func (e *Entry) Unit() string { return e.unit }

// Weight returns the net weight or volume label ("" if unknown).
func (e *Entry) Weight() string { return e.weight }

// Stock returns the current stock count.
func (e *Entry) Stock() int { return e.stock }
