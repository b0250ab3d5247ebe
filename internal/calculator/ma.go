package calculator

import (
	"math"

	"TrendSentinel/internal/model"
)

// SMA returns the simple moving average of values over window.
// Indices before window-1 are NaN.
func SMA(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(window)
	}
	return out
}

// EMA returns the exponential moving average with the given span.
// EMA[0] = values[0]; EMA[t] = a*values[t] + (1-a)*EMA[t-1] with a = 2/(span+1).
func EMA(values []float64, span int) []float64 {
	out := nanSlice(len(values))
	if span <= 0 || len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		// incremental form keeps a constant input exactly constant
		out[i] = out[i-1] + alpha*(values[i]-out[i-1])
	}
	return out
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
