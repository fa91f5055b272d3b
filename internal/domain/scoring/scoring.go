// Package scoring converts raw model confidences into category-adjusted
// percentages. Categories with distinctive packaging carry a positive bias,
// visually similar or highly variable ones a negative bias.
package scoring

// Adjuster applies a per-category confidence bias. The zero value (nil
// table) applies no bias at all.
type Adjuster struct {
	bias map[string]int
}

// NewAdjuster creates an adjuster from a category bias table.
// Unknown categories get bias 0.
func NewAdjuster(bias map[string]int) Adjuster {
	return Adjuster{bias: bias}
}

// Bias returns the configured bias for a category (0 if absent).
func (a Adjuster) Bias(category string) int {
	return a.bias[category]
}

// Table returns a copy of the bias table.
func (a Adjuster) Table() map[string]int {
	out := make(map[string]int, len(a.bias))
	for k, v := range a.bias {
		out[k] = v
	}
	return out
}

// Adjust maps a raw model confidence in [0,1] to the 0-100 scale, applies
// the category bias and clamps the result to [0,100]. Pure and
// deterministic; out-of-range inputs are clamped rather than rejected.
func (a Adjuster) Adjust(rawConfidence float64, category string) float64 {
	adjusted := rawConfidence*100 + float64(a.bias[category])
	if adjusted < 0 {
		return 0
	}
	if adjusted > 100 {
		return 100
	}
	return adjusted
}
