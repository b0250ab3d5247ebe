package model

// Trend is the label produced by a classifier for one bar.
type Trend int

const (
	TrendNone Trend = iota
	Uptrend
	Downtrend
	TrendEnd
)

func (t Trend) String() string {
	switch t {
	case Uptrend:
		return "UP"
	case Downtrend:
		return "DOWN"
	case TrendEnd:
		return "END"
	default:
		return "NONE"
	}
}

// Verdict is the classification result at one bar.
//
// Detected and Confirmed are only set by rule sets with a confirmation
// filter; Trend is whichever of the two the rule set is configured to act on.
type Verdict struct {
	Trend     Trend
	Detected  Trend
	Confirmed Trend
	Values    IndicatorVector
}

// Direction of an open position.
type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

// Sign returns +1 for Long and -1 for Short.
func (d Direction) Sign() float64 { return float64(d) }

func (d Direction) String() string {
	if d == Short {
		return "SHORT"
	}
	return "LONG"
}
