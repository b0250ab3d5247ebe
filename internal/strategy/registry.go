package strategy

import (
	"sort"

	"github.com/pkg/errors"
)

// Options selects and parameterizes a rule set.
type Options struct {
	Rule string `yaml:"rule"`

	StackCeiling int   `yaml:"stack_ceiling"`
	StackFast    []int `yaml:"stack_fast"`
	StackFloor   int   `yaml:"stack_floor"`
	StackCap     int   `yaml:"stack_cap"`

	RSIPeriods []int `yaml:"rsi_periods"`
	WRPeriods  []int `yaml:"wr_periods"`

	GateColumns []string `yaml:"gate_columns"`
	ConfirmBars int      `yaml:"confirm_bars"`
	Driver      Driver   `yaml:"driver"`
}

// DefaultOptions returns the stacking rule with its standard periods.
func DefaultOptions() Options {
	return Options{
		Rule:         "stacking",
		StackCeiling: 200,
		StackFast:    []int{8, 13, 21, 50},
		StackFloor:   50,
		StackCap:     200,
		RSIPeriods:   []int{6, 12, 24},
		WRPeriods:    []int{6, 10, 14, 21},
		GateColumns:  DefaultBracket(),
		ConfirmBars:  3,
		Driver:       DriveConfirmed,
	}
}

type factory func(o Options) (Classifier, error)

var rules = map[string]factory{
	"stacking":             stacking,
	"oscillator":           oscillator,
	"gated-oscillator":     gatedOscillator,
	"confirmed-stacking":   confirmedStacking,
	"confirmed-oscillator": confirmedOscillator,
}

// Rules lists the registered rule names.
func Rules() []string {
	out := make([]string, 0, len(rules))
	for name := range rules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New builds the classifier named by o.Rule.
func New(o Options) (Classifier, error) {
	f, ok := rules[o.Rule]
	if !ok {
		return nil, errors.Errorf("unknown rule %q (have %v)", o.Rule, Rules())
	}
	if o.Driver != "" && o.Driver != DriveConfirmed && o.Driver != DriveDetected {
		return nil, errors.Errorf("unknown driver %q", o.Driver)
	}
	return f(o)
}

// Missing returns the columns c reads that are absent from available.
func Missing(c Classifier, available []string) []string {
	have := make(map[string]bool, len(available))
	for _, n := range available {
		have[n] = true
	}
	var missing []string
	seen := make(map[string]bool)
	for _, n := range c.Columns() {
		if !have[n] && !seen[n] {
			missing = append(missing, n)
			seen[n] = true
		}
	}
	return missing
}

func stacking(o Options) (Classifier, error) {
	if o.StackCeiling <= 0 || o.StackFloor <= 0 || o.StackCap <= 0 || len(o.StackFast) == 0 {
		return nil, errors.New("stacking rule needs ceiling, fast, floor and cap periods")
	}
	return &Stacking{Ceiling: o.StackCeiling, Fast: o.StackFast, Floor: o.StackFloor, Cap: o.StackCap}, nil
}

func oscillator(o Options) (Classifier, error) {
	if len(o.RSIPeriods) != 3 {
		return nil, errors.Errorf("oscillator rule needs 3 RSI periods, got %d", len(o.RSIPeriods))
	}
	if len(o.WRPeriods) != 4 {
		return nil, errors.Errorf("oscillator rule needs 4 WR periods, got %d", len(o.WRPeriods))
	}
	return &Oscillator{RSI: o.RSIPeriods, WR: o.WRPeriods}, nil
}

func gatedOscillator(o Options) (Classifier, error) {
	if len(o.GateColumns) == 0 {
		return nil, errors.New("gated rule needs at least one gate column")
	}
	inner, err := oscillator(o)
	if err != nil {
		return nil, err
	}
	return &Gated{Inner: inner, Bracket: o.GateColumns}, nil
}

func confirmed(inner Classifier, o Options) (Classifier, error) {
	if o.ConfirmBars < 1 {
		return nil, errors.Errorf("confirmed rule needs confirm_bars >= 1, got %d", o.ConfirmBars)
	}
	return &Confirmed{Inner: inner, Bars: o.ConfirmBars, Driver: o.Driver}, nil
}

func confirmedStacking(o Options) (Classifier, error) {
	inner, err := stacking(o)
	if err != nil {
		return nil, err
	}
	return confirmed(inner, o)
}

func confirmedOscillator(o Options) (Classifier, error) {
	inner, err := oscillator(o)
	if err != nil {
		return nil, err
	}
	return confirmed(inner, o)
}
