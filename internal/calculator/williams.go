package calculator

import "TrendSentinel/internal/model"

// WRConvention selects the sign convention of Williams %R.
type WRConvention string

const (
	// WRNegative is the textbook form: -100 at the low, 0 at the high.
	WRNegative WRConvention = "negative"
	// WRPositive is 100 + WRNegative: 0 at the low, 100 at the high.
	WRPositive WRConvention = "positive"
)

// WilliamsR computes Williams %R over period bars. A zero range returns the midpoint.
func WilliamsR(bars []model.OHLCV, period int, convention WRConvention) []float64 {
	out := nanSlice(len(bars))
	highs := HighestHigh(bars, period)
	lows := LowestLow(bars, period)
	for i := period - 1; period > 0 && i < len(bars); i++ {
		wr := -50.0
		if rng := highs[i] - lows[i]; rng > RangeEpsilon {
			wr = -100 * (highs[i] - bars[i].Close) / rng
		}
		if convention == WRPositive {
			wr += 100
		}
		out[i] = wr
	}
	return out
}
