package calculator

import (
	"github.com/pkg/errors"

	"TrendSentinel/internal/model"
)

// KDJParams configures the stochastic oscillator.
type KDJParams struct {
	Lookback int `yaml:"lookback"`
	M1       int `yaml:"m1"`
	M2       int `yaml:"m2"`
}

// SARParams configures the parabolic stop overlay.
type SARParams struct {
	Acceleration float64 `yaml:"acceleration"`
	Maximum      float64 `yaml:"maximum"`
}

// BollingerParams configures the volatility envelope.
type BollingerParams struct {
	Period int     `yaml:"period"`
	K      float64 `yaml:"k"`
}

// Params lists which indicators the pipeline computes. Zero-valued families are skipped.
type Params struct {
	EMASpans     []int           `yaml:"ema_spans"`
	MAWindows    []int           `yaml:"ma_windows"`
	RSIPeriods   []int           `yaml:"rsi_periods"`
	RSIMode      RSIMode         `yaml:"rsi_mode"`
	KDJ          KDJParams       `yaml:"kdj"`
	WRPeriods    []int           `yaml:"wr_periods"`
	WRConvention WRConvention    `yaml:"wr_convention"`
	SAR          SARParams       `yaml:"sar"`
	Bollinger    BollingerParams `yaml:"bollinger"`
}

// DefaultParams covers every rule set shipped in the strategy package.
func DefaultParams() Params {
	return Params{
		EMASpans:     []int{8, 13, 21, 50, 200},
		MAWindows:    []int{50, 100, 200},
		RSIPeriods:   []int{6, 12, 24},
		RSIMode:      RSISimple,
		KDJ:          KDJParams{Lookback: 9, M1: 3, M2: 3},
		WRPeriods:    []int{6, 10, 14, 21},
		WRConvention: WRPositive,
		SAR:          SARParams{Acceleration: 0.02, Maximum: 0.2},
		Bollinger:    BollingerParams{Period: 20, K: 2},
	}
}

// Pipeline derives a Frame from a series of bars.
type Pipeline struct {
	Params Params
}

// NewPipeline creates a pipeline for the given parameters.
func NewPipeline(p Params) *Pipeline {
	return &Pipeline{Params: p}
}

// Compute evaluates every configured indicator over bars. Every column is
// causal: the value at i depends only on bars[0..i].
func (p *Pipeline) Compute(bars []model.OHLCV) *Frame {
	f := NewFrame(bars)
	closes := f.Column(ColClose)

	for _, s := range p.Params.EMASpans {
		f.Set(EMAName(s), EMA(closes, s))
	}
	for _, w := range p.Params.MAWindows {
		f.Set(MAName(w), SMA(closes, w))
	}
	mode := p.Params.RSIMode
	if mode == "" {
		mode = RSISimple
	}
	for _, per := range p.Params.RSIPeriods {
		f.Set(RSIName(per), RSI(closes, per, mode))
	}
	if kp := p.Params.KDJ; kp.Lookback > 0 {
		k, d, j := KDJ(bars, kp.Lookback, kp.M1, kp.M2)
		f.Set(ColK, k)
		f.Set(ColD, d)
		f.Set(ColJ, j)
	}
	conv := p.Params.WRConvention
	if conv == "" {
		conv = WRNegative
	}
	for _, per := range p.Params.WRPeriods {
		f.Set(WRName(per), WilliamsR(bars, per, conv))
	}
	if sp := p.Params.SAR; sp.Acceleration > 0 {
		f.Set(ColSAR, ParabolicSAR(bars, sp.Acceleration, sp.Maximum))
	}
	if bp := p.Params.Bollinger; bp.Period > 0 {
		up, lo := Bollinger(closes, bp.Period, bp.K)
		f.Set(ColBollUpper, up)
		f.Set(ColBollLower, lo)
	}
	return f
}

// Columns lists the column names Compute produces for these parameters.
func (p Params) Columns() []string {
	cols := []string{ColClose}
	for _, s := range p.EMASpans {
		cols = append(cols, EMAName(s))
	}
	for _, w := range p.MAWindows {
		cols = append(cols, MAName(w))
	}
	for _, per := range p.RSIPeriods {
		cols = append(cols, RSIName(per))
	}
	if p.KDJ.Lookback > 0 {
		cols = append(cols, ColK, ColD, ColJ)
	}
	for _, per := range p.WRPeriods {
		cols = append(cols, WRName(per))
	}
	if p.SAR.Acceleration > 0 {
		cols = append(cols, ColSAR)
	}
	if p.Bollinger.Period > 0 {
		cols = append(cols, ColBollUpper, ColBollLower)
	}
	return cols
}

// Validate rejects non-positive periods.
func (p Params) Validate() error {
	for _, group := range [][]int{p.EMASpans, p.MAWindows, p.RSIPeriods, p.WRPeriods} {
		for _, n := range group {
			if n <= 0 {
				return errors.Errorf("indicator period must be positive, got %d", n)
			}
		}
	}
	switch p.RSIMode {
	case "", RSISimple, RSIExponential:
	default:
		return errors.Errorf("unknown rsi mode %q", p.RSIMode)
	}
	switch p.WRConvention {
	case "", WRNegative, WRPositive:
	default:
		return errors.Errorf("unknown williams %%R convention %q", p.WRConvention)
	}
	if p.KDJ.Lookback > 0 && (p.KDJ.M1 <= 0 || p.KDJ.M2 <= 0) {
		return errors.New("kdj smoothing periods must be positive")
	}
	return nil
}
