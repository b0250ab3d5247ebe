// Package scanner flags symbols whose latest bar meets simple indicator
// conditions, without running a backtest.
package scanner

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/strategy"
	"TrendSentinel/pkg/logger"
)

// Options configures a scan.
type Options struct {
	Interval string `yaml:"interval"`
	Limit    int    `yaml:"limit"`
	// MinBars skips symbols with a shorter history.
	MinBars    int                  `yaml:"min_bars"`
	Bracket    []string             `yaml:"bracket"`
	RSIPeriods []int                `yaml:"rsi_periods"`
	KDJ        calculator.KDJParams `yaml:"kdj"`
}

// DefaultOptions scans 12h bars for the MA50/EMA200/MA200 bracket, RSI
// 8/13/21 and KDJ(5, 8, 8).
func DefaultOptions() Options {
	return Options{
		Interval:   "12h",
		Limit:      210,
		MinBars:    200,
		Bracket:    strategy.DefaultBracket(),
		RSIPeriods: []int{8, 13, 21},
		KDJ:        calculator.KDJParams{Lookback: 5, M1: 8, M2: 8},
	}
}

// Params returns the indicator set a scan computes.
func (o Options) Params() calculator.Params {
	d := calculator.DefaultParams()
	return calculator.Params{
		EMASpans:   d.EMASpans,
		MAWindows:  d.MAWindows,
		RSIPeriods: o.RSIPeriods,
		RSIMode:    calculator.RSIExponential,
		KDJ:        o.KDJ,
	}
}

// Validate checks that every bracket column is computed.
func (o Options) Validate() error {
	if o.Interval == "" {
		return errors.New("scan interval is required")
	}
	if o.Limit < o.MinBars {
		return errors.Errorf("scan limit %d is below min_bars %d", o.Limit, o.MinBars)
	}
	if len(o.Bracket) == 0 {
		return errors.New("scan bracket needs at least one column")
	}
	if len(o.RSIPeriods) < 2 {
		return errors.New("scan needs at least two RSI periods")
	}
	p := o.Params()
	if err := p.Validate(); err != nil {
		return err
	}
	if o.KDJ.Lookback <= 0 {
		return errors.New("scan kdj lookback must be positive")
	}
	if missing := strategy.Missing(&strategy.Gated{Bracket: o.Bracket}, p.Columns()); len(missing) > 0 {
		return errors.Errorf("scan bracket reads %v which is not computed", missing)
	}
	return nil
}

// Skip is a symbol the scan could not evaluate.
type Skip struct {
	Symbol string
	Reason string
}

// Result lists the flagged symbols of one scan, in input order.
type Result struct {
	At       time.Time
	Interval string
	Scanned  int
	// BetweenMAs holds symbols whose close lies inside the bracket.
	BetweenMAs []string
	// UnequalRSI holds symbols whose RSI values are not all equal.
	UnequalRSI []string
	// UnequalKDJ holds symbols whose K, D and J are not all equal.
	UnequalKDJ []string
	Skipped    []Skip
}

// Scanner evaluates the latest bar of every symbol.
type Scanner struct {
	Collector   *collector.Collector
	Opts        Options
	Concurrency int
	Metrics     *metrics.Metrics

	pipeline *calculator.Pipeline
	gate     *strategy.Gated
	now      func() time.Time
}

// New creates a scanner. col should fetch at least opts.Limit bars.
func New(col *collector.Collector, opts Options, concurrency int) *Scanner {
	return &Scanner{
		Collector:   col,
		Opts:        opts,
		Concurrency: concurrency,
		pipeline:    calculator.NewPipeline(opts.Params()),
		gate:        &strategy.Gated{Bracket: opts.Bracket},
		now:         time.Now,
	}
}

type flags struct {
	between, rsi, kdj bool
	skip              string
}

// Scan fetches and checks every symbol. Fetch failures and short histories
// are recorded as skips; only cancellation of ctx fails the scan.
func (s *Scanner) Scan(ctx context.Context, symbols []string) (*Result, error) {
	out := make([]flags, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, sym := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.scanOne(gctx, sym)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}

	res := &Result{At: s.now().UTC(), Interval: s.Opts.Interval, Scanned: len(symbols)}
	for i, sym := range symbols {
		fl := out[i]
		if fl.skip != "" {
			res.Skipped = append(res.Skipped, Skip{Symbol: sym, Reason: fl.skip})
			continue
		}
		if fl.between {
			res.BetweenMAs = append(res.BetweenMAs, sym)
		}
		if fl.rsi {
			res.UnequalRSI = append(res.UnequalRSI, sym)
		}
		if fl.kdj {
			res.UnequalKDJ = append(res.UnequalKDJ, sym)
		}
	}
	if s.Metrics != nil {
		s.Metrics.ScanAlerts.WithLabelValues("between_mas").Add(float64(len(res.BetweenMAs)))
		s.Metrics.ScanAlerts.WithLabelValues("rsi").Add(float64(len(res.UnequalRSI)))
		s.Metrics.ScanAlerts.WithLabelValues("kdj").Add(float64(len(res.UnequalKDJ)))
	}
	logger.Info("scan %s: %d symbols, %d between MAs, %d rsi, %d kdj, %d skipped", res.Interval,
		res.Scanned, len(res.BetweenMAs), len(res.UnequalRSI), len(res.UnequalKDJ), len(res.Skipped))
	return res, nil
}

func (s *Scanner) scanOne(ctx context.Context, symbol string) flags {
	series, err := s.Collector.Collect(ctx, symbol, s.Opts.Interval)
	if err != nil {
		logger.Warn("scan skip %s: %v", symbol, err)
		return flags{skip: "fetch failed: " + err.Error()}
	}
	if series.Len() < s.Opts.MinBars {
		return flags{skip: "insufficient history"}
	}
	return s.check(s.pipeline.Compute(series.Bars))
}

// check evaluates the last bar of f. Undefined values never raise a flag.
func (s *Scanner) check(f *calculator.Frame) flags {
	i := f.Len() - 1
	rsi := make([]float64, len(s.Opts.RSIPeriods))
	for k, p := range s.Opts.RSIPeriods {
		rsi[k] = f.At(calculator.RSIName(p), i)
	}
	kdj := []float64{f.At(calculator.ColK, i), f.At(calculator.ColD, i), f.At(calculator.ColJ, i)}
	return flags{
		between: s.gate.Open(f, i),
		rsi:     defined(rsi) && !allClose(rsi),
		kdj:     defined(kdj) && !allClose(kdj),
	}
}

func defined(vs []float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// allClose compares neighbours with a relative tolerance of 1e-5 and an
// absolute one of 1e-8.
func allClose(vs []float64) bool {
	for k := 1; k < len(vs); k++ {
		a, b := vs[k-1], vs[k]
		if math.Abs(a-b) > 1e-8+1e-5*math.Abs(b) {
			return false
		}
	}
	return true
}
