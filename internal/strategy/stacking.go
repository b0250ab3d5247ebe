package strategy

import (
	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// Stacking detects a short-term move running against a long-term average.
//
// Uptrend: EMA(ceiling) > close > EMA(fast[0]) > ... > EMA(fast[n]) > MA(floor)
// and close < MA(cap). Downtrend reverses every inequality. The condition
// must hold on the current bar and the one before it.
type Stacking struct {
	Ceiling int
	Fast    []int
	Floor   int
	Cap     int
}

// NewStacking returns the EMA200 / EMA8-13-21-50 / MA50 / MA200 rule.
func NewStacking() *Stacking {
	return &Stacking{Ceiling: 200, Fast: []int{8, 13, 21, 50}, Floor: 50, Cap: 200}
}

func (s *Stacking) Name() string { return "stacking" }

func (s *Stacking) Columns() []string {
	cols := []string{calculator.ColClose, calculator.EMAName(s.Ceiling)}
	for _, span := range s.Fast {
		cols = append(cols, calculator.EMAName(span))
	}
	return append(cols, calculator.MAName(s.Floor), calculator.MAName(s.Cap))
}

// chain returns ceiling, close, fast EMAs..., floor MA at bar i.
func (s *Stacking) chain(f *calculator.Frame, i int) []float64 {
	chain := []float64{f.At(calculator.EMAName(s.Ceiling), i), f.At(calculator.ColClose, i)}
	for _, span := range s.Fast {
		chain = append(chain, f.At(calculator.EMAName(span), i))
	}
	return append(chain, f.At(calculator.MAName(s.Floor), i))
}

func (s *Stacking) up(f *calculator.Frame, i int) bool {
	return descending(s.chain(f, i)...) && ascending(f.At(calculator.ColClose, i), f.At(calculator.MAName(s.Cap), i))
}

func (s *Stacking) down(f *calculator.Frame, i int) bool {
	return ascending(s.chain(f, i)...) && descending(f.At(calculator.ColClose, i), f.At(calculator.MAName(s.Cap), i))
}

func (s *Stacking) Classify(f *calculator.Frame, i int) model.Verdict {
	snap := f.Pick(i, s.Columns()...)
	if i < 1 {
		return verdict(model.TrendNone, snap)
	}
	switch {
	case s.up(f, i) && s.up(f, i-1):
		return verdict(model.Uptrend, snap)
	case s.down(f, i) && s.down(f, i-1):
		return verdict(model.Downtrend, snap)
	}
	return verdict(model.TrendNone, snap)
}
