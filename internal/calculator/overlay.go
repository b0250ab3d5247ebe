package calculator

import (
	"github.com/markcheno/go-talib"

	"TrendSentinel/internal/model"
)

// ParabolicSAR returns the parabolic stop-and-reverse level. Index 0 is NaN.
func ParabolicSAR(bars []model.OHLCV, acceleration, maximum float64) []float64 {
	out := nanSlice(len(bars))
	if len(bars) < 2 || acceleration <= 0 || maximum <= 0 {
		return out
	}
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}
	sar := talib.Sar(highs, lows, acceleration, maximum)
	copy(out[1:], sar[1:])
	return out
}

// Bollinger returns the upper and lower bands of a period-bar SMA envelope at k
// population standard deviations. Indices before period-1 are NaN.
func Bollinger(values []float64, period int, k float64) (upper, lower []float64) {
	upper, lower = nanSlice(len(values)), nanSlice(len(values))
	if period < 2 || len(values) < period {
		return upper, lower
	}
	up, _, lo := talib.BBands(values, period, k, k, talib.SMA)
	copy(upper[period-1:], up[period-1:])
	copy(lower[period-1:], lo[period-1:])
	return upper, lower
}
