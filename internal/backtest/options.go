package backtest

import "github.com/pkg/errors"

// CloseTrigger selects which verdicts close an open position.
type CloseTrigger string

const (
	// CloseOnNone closes when the classifier has no signal.
	CloseOnNone CloseTrigger = "none"
	// CloseOnEnd closes only on an explicit TrendEnd.
	CloseOnEnd CloseTrigger = "end"
	// CloseOnEither closes on both.
	CloseOnEither CloseTrigger = "either"
)

// FlipExit selects the exit bar used when a position is reversed.
type FlipExit string

const (
	// FlipAtCurrent exits at the close of the bar that opens the new position.
	FlipAtCurrent FlipExit = "current"
	// FlipAtPrevious exits at the close of the bar before it.
	FlipAtPrevious FlipExit = "previous"
)

// AuxExit force-closes a position when the parabolic stop crosses the MA
// against it, independently of the classifier.
type AuxExit struct {
	Enabled bool `yaml:"enabled"`
	MA      int  `yaml:"ma"`
}

// Options configures a backtest run.
type Options struct {
	Leverage float64      `yaml:"leverage"`
	Warmup   int          `yaml:"warmup"`
	CloseOn  CloseTrigger `yaml:"close_on"`
	FlipExit FlipExit     `yaml:"flip_exit"`
	AuxExit  AuxExit      `yaml:"aux_exit"`
}

// DefaultOptions returns 10x leverage, a 200 bar warm-up, closing on any
// loss of signal and flipping at the previous bar's close.
func DefaultOptions() Options {
	return Options{
		Leverage: 10,
		Warmup:   200,
		CloseOn:  CloseOnEither,
		FlipExit: FlipAtPrevious,
	}
}

// Validate checks the options for unknown policies and impossible values.
func (o Options) Validate() error {
	if o.Leverage <= 0 {
		return errors.Errorf("leverage must be positive, got %v", o.Leverage)
	}
	if o.Warmup < 0 {
		return errors.Errorf("warmup must not be negative, got %d", o.Warmup)
	}
	switch o.CloseOn {
	case CloseOnNone, CloseOnEnd, CloseOnEither:
	default:
		return errors.Errorf("unknown close trigger %q", o.CloseOn)
	}
	switch o.FlipExit {
	case FlipAtCurrent, FlipAtPrevious:
	default:
		return errors.Errorf("unknown flip exit %q", o.FlipExit)
	}
	if o.AuxExit.Enabled && o.AuxExit.MA <= 0 {
		return errors.New("aux exit needs a positive MA window")
	}
	return nil
}
