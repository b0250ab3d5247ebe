package strategy

import (
	"math"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// Classifier maps the indicator frame at bar i to a trend verdict.
// Implementations may look at bar i-1 but never beyond i.
type Classifier interface {
	Name() string
	// Columns lists the frame columns the rule reads.
	Columns() []string
	Classify(f *calculator.Frame, i int) model.Verdict
}

// descending reports whether vs is strictly decreasing. Any NaN fails.
func descending(vs ...float64) bool {
	for i, v := range vs {
		if math.IsNaN(v) {
			return false
		}
		if i > 0 && !(vs[i-1] > v) {
			return false
		}
	}
	return true
}

// ascending reports whether vs is strictly increasing. Any NaN fails.
func ascending(vs ...float64) bool {
	for i, v := range vs {
		if math.IsNaN(v) {
			return false
		}
		if i > 0 && !(vs[i-1] < v) {
			return false
		}
	}
	return true
}

// between reports whether x lies in the closed interval spanned by a and b.
func between(x, a, b float64) bool {
	if math.IsNaN(x) || math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return math.Min(a, b) <= x && x <= math.Max(a, b)
}

func values(f *calculator.Frame, i int, names []string) []float64 {
	out := make([]float64, len(names))
	for k, n := range names {
		out[k] = f.At(n, i)
	}
	return out
}

func verdict(t model.Trend, snapshot model.IndicatorVector) model.Verdict {
	return model.Verdict{Trend: t, Detected: t, Values: snapshot}
}
