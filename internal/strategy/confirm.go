package strategy

import (
	"math"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// Driver selects which signal of a confirmed rule moves positions.
type Driver string

const (
	DriveConfirmed Driver = "confirmed"
	DriveDetected  Driver = "detected"
)

// Confirmed adds a parabolic-stop confirmation to a rule.
//
// A detected uptrend is confirmed when SAR stayed below the lower Bollinger
// band for the last Bars bars (a downtrend: above the upper band). Both the
// detected and confirmed signals are reported; Driver chooses which one ends
// up in Verdict.Trend. TrendEnd is passed through unconfirmed.
type Confirmed struct {
	Inner  Classifier
	Bars   int
	Driver Driver
}

// NewConfirmed confirms inner over 3 bars and drives positions on the confirmed signal.
func NewConfirmed(inner Classifier) *Confirmed {
	return &Confirmed{Inner: inner, Bars: 3, Driver: DriveConfirmed}
}

func (c *Confirmed) Name() string { return "confirmed-" + c.Inner.Name() }

func (c *Confirmed) Columns() []string {
	return append(c.Inner.Columns(), calculator.ColSAR, calculator.ColBollUpper, calculator.ColBollLower)
}

func (c *Confirmed) outside(f *calculator.Frame, i int, t model.Trend) bool {
	if c.Bars <= 0 || i-c.Bars+1 < 0 {
		return false
	}
	for k := i - c.Bars + 1; k <= i; k++ {
		sar := f.At(calculator.ColSAR, k)
		upper := f.At(calculator.ColBollUpper, k)
		lower := f.At(calculator.ColBollLower, k)
		if math.IsNaN(sar) || math.IsNaN(upper) || math.IsNaN(lower) {
			return false
		}
		if t == model.Uptrend && !(sar < lower) {
			return false
		}
		if t == model.Downtrend && !(sar > upper) {
			return false
		}
	}
	return true
}

func (c *Confirmed) Classify(f *calculator.Frame, i int) model.Verdict {
	v := c.Inner.Classify(f, i)
	v.Detected = v.Trend
	v.Confirmed = model.TrendNone

	switch v.Trend {
	case model.Uptrend, model.Downtrend:
		if c.outside(f, i, v.Trend) {
			v.Confirmed = v.Trend
		}
	case model.TrendEnd:
		v.Confirmed = model.TrendEnd
	}

	if c.Driver == DriveDetected {
		v.Trend = v.Detected
	} else {
		v.Trend = v.Confirmed
	}
	return v
}
