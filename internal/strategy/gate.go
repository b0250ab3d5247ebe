package strategy

import (
	"math"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// Gated wraps a rule with a price-position precondition: the close must lie
// within the range spanned by the Bracket columns, otherwise the verdict is
// None whatever the inner rule says.
type Gated struct {
	Inner   Classifier
	Bracket []string
}

// DefaultBracket is the MA50/EMA200/MA200 long-horizon bracket.
func DefaultBracket() []string {
	return []string{calculator.MAName(50), calculator.EMAName(200), calculator.MAName(200)}
}

// NewGated gates inner on the default bracket.
func NewGated(inner Classifier) *Gated {
	return &Gated{Inner: inner, Bracket: DefaultBracket()}
}

func (g *Gated) Name() string { return "gated-" + g.Inner.Name() }

func (g *Gated) Columns() []string {
	var cols []string
	if g.Inner != nil {
		cols = g.Inner.Columns()
	}
	cols = append([]string{calculator.ColClose}, cols...)
	return append(cols, g.Bracket...)
}

// Open reports whether the close at bar i is bracketed by the gate's averages.
func (g *Gated) Open(f *calculator.Frame, i int) bool {
	closePrice := f.At(calculator.ColClose, i)
	if math.IsNaN(closePrice) || len(g.Bracket) == 0 {
		return false
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, col := range g.Bracket {
		v := f.At(col, i)
		if math.IsNaN(v) {
			return false
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo <= closePrice && closePrice <= hi
}

func (g *Gated) Classify(f *calculator.Frame, i int) model.Verdict {
	v := g.Inner.Classify(f, i)
	if v.Values == nil {
		v.Values = model.IndicatorVector{}
	}
	if !g.Open(f, i) {
		v.Values["gate"] = 0
		v.Trend, v.Detected, v.Confirmed = model.TrendNone, model.TrendNone, model.TrendNone
		return v
	}
	v.Values["gate"] = 1
	return v
}
