package calculator

// RSIMode selects how average gains and losses are smoothed.
type RSIMode string

const (
	// RSISimple averages the last period deltas arithmetically.
	RSISimple RSIMode = "simple"
	// RSIExponential smooths deltas with alpha = 1/period, seeded at the first delta.
	RSIExponential RSIMode = "exponential"
)

// RSIEpsilon stands in for a zero average loss.
const RSIEpsilon = 1e-9

// RSI computes the relative strength index over period deltas.
// Values are NaN until period deltas exist (index < period).
// A window with neither gains nor losses yields 50.
func RSI(values []float64, period int, mode RSIMode) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < 2 {
		return out
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	switch mode {
	case RSIExponential:
		alpha := 1.0 / float64(period)
		avgGain, avgLoss := gains[1], losses[1]
		for i := 1; i < len(values); i++ {
			if i > 1 {
				avgGain += alpha * (gains[i] - avgGain)
				avgLoss += alpha * (losses[i] - avgLoss)
			}
			if i >= period {
				out[i] = rsiFromAverages(avgGain, avgLoss)
			}
		}
	default:
		for i := period; i < len(values); i++ {
			var sumGain, sumLoss float64
			for j := i - period + 1; j <= i; j++ {
				sumGain += gains[j]
				sumLoss += losses[j]
			}
			out[i] = rsiFromAverages(sumGain/float64(period), sumLoss/float64(period))
		}
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgGain == 0 && avgLoss == 0 {
		return 50.0
	}
	if avgLoss == 0 {
		avgLoss = RSIEpsilon
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
