package backtest

import (
	"math"

	"github.com/pkg/errors"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// ErrInsufficientHistory is returned when a series is shorter than the warm-up.
var ErrInsufficientHistory = errors.New("insufficient history")

// Classifier is the subset of strategy.Classifier the engine needs.
type Classifier interface {
	Classify(f *calculator.Frame, i int) model.Verdict
}

// Trade close reasons.
const (
	ReasonFlip        = "flip"
	ReasonTrendEnd    = "trend-end"
	ReasonNoSignal    = "no-signal"
	ReasonAuxExit     = "aux-exit"
	ReasonEndOfSeries = "end-of-series"
)

// Position is the single open position of a simulation.
type Position struct {
	Direction  model.Direction
	EntryIndex int
	EntryPrice float64
}

// Result is the outcome of one simulation.
type Result struct {
	Trades []model.Trade
	// Trace holds the verdict of every bar; bars before Start are zero verdicts.
	Trace []model.Verdict
	Start int
}

// Engine walks a series bar by bar holding at most one position.
// It keeps no state between runs and may be shared.
type Engine struct {
	Classifier Classifier
	Opts       Options
}

// NewEngine creates an engine.
func NewEngine(c Classifier, opts Options) *Engine {
	return &Engine{Classifier: c, Opts: opts}
}

// Run simulates the series. f must be the frame computed over the same bars.
func (e *Engine) Run(series *model.Series, f *calculator.Frame) (*Result, error) {
	n := series.Len()
	if f == nil || f.Len() != n {
		return nil, errors.Errorf("frame does not match series %s", series.Key())
	}
	if n == 0 || n < e.Opts.Warmup {
		return &Result{}, errors.Wrapf(ErrInsufficientHistory, "%s has %d bars, need %d", series.Key(), n, e.Opts.Warmup)
	}

	r := &run{opts: e.Opts, series: series, frame: f}
	start := e.Opts.Warmup
	if start < 0 {
		start = 0
	}
	trace := make([]model.Verdict, n)
	for i := start; i < n; i++ {
		v := e.Classifier.Classify(f, i)
		trace[i] = v
		// An aux exit consumes its bar; the verdict there is not acted on.
		if r.auxExit(i) {
			r.close(i, ReasonAuxExit)
			continue
		}
		r.step(i, v)
	}
	if r.pos != nil {
		r.close(n-1, ReasonEndOfSeries)
	}
	return &Result{Trades: r.trades, Trace: trace, Start: start}, nil
}

type run struct {
	opts   Options
	series *model.Series
	frame  *calculator.Frame
	pos    *Position
	trades []model.Trade
}

func (r *run) step(i int, v model.Verdict) {
	switch v.Trend {
	case model.Uptrend:
		r.enter(i, model.Long)
	case model.Downtrend:
		r.enter(i, model.Short)
	case model.TrendEnd:
		if r.opts.CloseOn == CloseOnEnd || r.opts.CloseOn == CloseOnEither {
			r.close(i, ReasonTrendEnd)
		}
	default:
		if r.opts.CloseOn == CloseOnNone || r.opts.CloseOn == CloseOnEither {
			r.close(i, ReasonNoSignal)
		}
	}
}

func (r *run) enter(i int, dir model.Direction) {
	if r.pos != nil {
		if r.pos.Direction == dir {
			return
		}
		exit := i
		if r.opts.FlipExit == FlipAtPrevious && i-1 >= r.pos.EntryIndex {
			exit = i - 1
		}
		r.close(exit, ReasonFlip)
	}
	r.pos = &Position{Direction: dir, EntryIndex: i, EntryPrice: r.series.Bars[i].Close}
}

// close records the open position as a trade exiting at bar exit. It is a
// no-op when flat.
func (r *run) close(exit int, reason string) {
	if r.pos == nil {
		return
	}
	entryBar := r.series.Bars[r.pos.EntryIndex]
	exitBar := r.series.Bars[exit]
	r.trades = append(r.trades, model.Trade{
		Symbol:     r.series.Symbol,
		Interval:   r.series.Interval,
		Direction:  r.pos.Direction,
		EntryIndex: r.pos.EntryIndex,
		EntryTime:  entryBar.Time,
		EntryPrice: r.pos.EntryPrice,
		ExitIndex:  exit,
		ExitTime:   exitBar.Time,
		ExitPrice:  exitBar.Close,
		Profit:     Profit(r.pos.Direction, r.pos.EntryPrice, exitBar.Close, r.opts.Leverage),
		Reason:     reason,
	})
	r.pos = nil
}

// auxExit reports whether the parabolic stop crossed the configured MA
// against the open position between bars i-1 and i.
func (r *run) auxExit(i int) bool {
	if !r.opts.AuxExit.Enabled || r.pos == nil || r.pos.EntryIndex >= i {
		return false
	}
	ma := calculator.MAName(r.opts.AuxExit.MA)
	sarPrev, sarNow := r.frame.At(calculator.ColSAR, i-1), r.frame.At(calculator.ColSAR, i)
	maPrev, maNow := r.frame.At(ma, i-1), r.frame.At(ma, i)
	for _, v := range []float64{sarPrev, sarNow, maPrev, maNow} {
		if math.IsNaN(v) {
			return false
		}
	}
	if r.pos.Direction == model.Long {
		return sarPrev >= maPrev && sarNow < maNow
	}
	return sarPrev <= maPrev && sarNow > maNow
}

// Profit is the leveraged price difference of a position.
func Profit(dir model.Direction, entry, exit, leverage float64) float64 {
	return (exit - entry) * dir.Sign() * leverage
}
