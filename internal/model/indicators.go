package model

import "math"

// IndicatorVector maps indicator names (EMA8, RSI6, WR14, ...) to their value at one bar.
// NaN marks a value that is not defined yet.
type IndicatorVector map[string]float64

// Defined reports whether every named value exists and is not NaN.
func (v IndicatorVector) Defined(names ...string) bool {
	for _, n := range names {
		x, ok := v[n]
		if !ok || math.IsNaN(x) {
			return false
		}
	}
	return true
}
