package calculator

import "TrendSentinel/internal/model"

// KDJ computes the stochastic K, D and J lines.
//
// RSV uses a lookback-bar high/low range. K smooths RSV with factor 1/m1 and
// D smooths K with 1/m2, both seeded at 50. J = 3K - 2D. A zero range gives
// RSV = 50.
func KDJ(bars []model.OHLCV, lookback, m1, m2 int) (k, d, j []float64) {
	n := len(bars)
	k, d, j = nanSlice(n), nanSlice(n), nanSlice(n)
	if lookback <= 0 || m1 <= 0 || m2 <= 0 {
		return k, d, j
	}
	highs := HighestHigh(bars, lookback)
	lows := LowestLow(bars, lookback)

	prevK, prevD := 50.0, 50.0
	for i := lookback - 1; i < n; i++ {
		rsv := 50.0
		if rng := highs[i] - lows[i]; rng > RangeEpsilon {
			rsv = 100 * (bars[i].Close - lows[i]) / rng
		}
		prevK += (rsv - prevK) / float64(m1)
		prevD += (prevK - prevD) / float64(m2)
		k[i] = prevK
		d[i] = prevD
		j[i] = 3*prevK - 2*prevD
	}
	return k, d, j
}
