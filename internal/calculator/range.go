package calculator

import (
	"math"

	"TrendSentinel/internal/model"
)

// RangeEpsilon is the smallest high-low range treated as non-degenerate.
const RangeEpsilon = 1e-12

// HighestHigh returns the rolling maximum of bar highs over period bars.
func HighestHigh(bars []model.OHLCV, period int) []float64 {
	out := nanSlice(len(bars))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(bars); i++ {
		high := math.Inf(-1)
		for j := i - period + 1; j <= i; j++ {
			if bars[j].High > high {
				high = bars[j].High
			}
		}
		out[i] = high
	}
	return out
}

// LowestLow returns the rolling minimum of bar lows over period bars.
func LowestLow(bars []model.OHLCV, period int) []float64 {
	out := nanSlice(len(bars))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(bars); i++ {
		low := math.Inf(1)
		for j := i - period + 1; j <= i; j++ {
			if bars[j].Low < low {
				low = bars[j].Low
			}
		}
		out[i] = low
	}
	return out
}
