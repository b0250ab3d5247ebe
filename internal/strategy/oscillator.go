package strategy

import (
	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// Oscillator combines KDJ, RSI and Williams %R orderings.
//
// Uptrend needs J > K > D, RSI short > mid > long and
// WR short > mid1 >= mid2 >= long. Downtrend is the mirror. J-D = 3(K-D),
// so the bullish KDJ stack is J > K > D.
//
// TrendEnd fires when the short RSI and the short WR both sit inside the
// closed range of the two longest periods of their family. Williams %R must
// use the positive convention.
type Oscillator struct {
	RSI []int // short, mid, long
	WR  []int // short, mid1, mid2, long
}

// NewOscillator returns the RSI 6/12/24, WR 6/10/14/21 rule.
func NewOscillator() *Oscillator {
	return &Oscillator{RSI: []int{6, 12, 24}, WR: []int{6, 10, 14, 21}}
}

func (o *Oscillator) Name() string { return "oscillator" }

func (o *Oscillator) Columns() []string {
	cols := []string{calculator.ColK, calculator.ColD, calculator.ColJ}
	for _, p := range o.RSI {
		cols = append(cols, calculator.RSIName(p))
	}
	for _, p := range o.WR {
		cols = append(cols, calculator.WRName(p))
	}
	return cols
}

func (o *Oscillator) Classify(f *calculator.Frame, i int) model.Verdict {
	snap := f.Pick(i, o.Columns()...)
	if !snap.Defined(o.Columns()...) {
		return verdict(model.TrendNone, snap)
	}

	k, d, j := snap[calculator.ColK], snap[calculator.ColD], snap[calculator.ColJ]
	rsi := values(f, i, names(calculator.RSIName, o.RSI))
	wr := values(f, i, names(calculator.WRName, o.WR))

	up := j > k && k > d &&
		descending(rsi...) &&
		wr[0] > wr[1] && wr[1] >= wr[2] && wr[2] >= wr[3]
	if up {
		return verdict(model.Uptrend, snap)
	}

	down := j < k && k < d &&
		ascending(rsi...) &&
		wr[0] < wr[1] && wr[1] <= wr[2] && wr[2] <= wr[3]
	if down {
		return verdict(model.Downtrend, snap)
	}

	if between(rsi[0], rsi[1], rsi[2]) && between(wr[0], wr[2], wr[3]) {
		return verdict(model.TrendEnd, snap)
	}
	return verdict(model.TrendNone, snap)
}

func names(name func(int) string, periods []int) []string {
	out := make([]string, len(periods))
	for i, p := range periods {
		out[i] = name(p)
	}
	return out
}
