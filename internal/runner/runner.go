// Package runner executes one batch of backtests over symbol × interval.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"TrendSentinel/internal/backtest"
	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/report"
	"TrendSentinel/internal/state"
	"TrendSentinel/internal/strategy"
	"TrendSentinel/pkg/logger"
)

// Runner wires the collector, indicator pipeline, classifier and backtester.
// State and Metrics are optional.
type Runner struct {
	Collector   *collector.Collector
	Pipeline    *calculator.Pipeline
	Classifier  strategy.Classifier
	Backtest    backtest.Options
	Window      time.Duration
	Concurrency int

	State   *state.Manager
	Metrics *metrics.Metrics

	now func() time.Time
}

// New creates a runner.
func New(col *collector.Collector, p *calculator.Pipeline, c strategy.Classifier, opts backtest.Options, window time.Duration, concurrency int) *Runner {
	return &Runner{
		Collector:   col,
		Pipeline:    p,
		Classifier:  c,
		Backtest:    opts,
		Window:      window,
		Concurrency: concurrency,
		now:         time.Now,
	}
}

// Run simulates every symbol/interval pair. A failing job is recorded as
// skipped; only cancellation of ctx fails the batch. The recency window of
// every job ends at the batch start time.
func (r *Runner) Run(ctx context.Context, symbols, intervals []string) (*report.Digest, error) {
	started := time.Now()
	at := r.now().UTC()
	runID := ulid.Make().String()
	logger.Info("run %s: %d symbols x %d intervals, rule %s", runID, len(symbols), len(intervals), r.Classifier.Name())

	type job struct{ symbol, interval string }
	var jobs []job
	for _, s := range symbols {
		for _, iv := range intervals {
			jobs = append(jobs, job{s, iv})
		}
	}

	results := make([]report.JobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	limit := r.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.runJob(gctx, j.symbol, j.interval, at)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "run %s", runID)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "run %s", runID)
	}

	d := report.Build(runID, r.Classifier.Name(), at, r.Window, results)
	if r.Metrics != nil {
		r.Metrics.RunsTotal.Inc()
		r.Metrics.RunDuration.Observe(time.Since(started).Seconds())
		r.Metrics.LastRunTime.Set(float64(d.GeneratedAt.Unix()))
	}
	logger.Info("run %s done: %d jobs, %d skipped, %d recent trades, pnl %+.2f",
		runID, len(d.Jobs), len(d.Skipped()), d.Overall.Count, d.Overall.TotalProfit)
	return d, nil
}

func (r *Runner) runJob(ctx context.Context, symbol, interval string, now time.Time) report.JobResult {
	key := model.JobKey(symbol, interval)

	fetchStart := time.Now()
	series, err := r.Collector.Collect(ctx, symbol, interval)
	if r.Metrics != nil {
		r.Metrics.FetchDur.WithLabelValues(r.Collector.Fetcher.Name()).Observe(time.Since(fetchStart).Seconds())
	}
	if err != nil {
		logger.Warn("skip %s: %v", key, err)
		r.count(interval, "failed")
		return report.Skip(symbol, interval, "fetch failed: "+err.Error())
	}

	res, err := r.Simulate(series)
	if err != nil {
		outcome, reason := "failed", err.Error()
		if errors.Is(err, backtest.ErrInsufficientHistory) {
			outcome = "skipped"
			reason = fmt.Sprintf("insufficient history (%d bars, need %d)", series.Len(), r.Backtest.Warmup)
		}
		logger.Warn("skip %s: %v", key, err)
		r.count(interval, outcome)
		return report.Skip(symbol, interval, reason)
	}
	r.count(interval, "ok")

	last := series.Last()
	recent := report.FilterRecent(res.Trades, now, r.Window)
	out := report.JobResult{
		Symbol:    symbol,
		Interval:  interval,
		Bars:      series.Len(),
		LastTime:  last.Time,
		LastClose: last.Close,
		Latest:    res.Trace[series.Len()-1],
		Trades:    res.Trades,
		Recent:    recent,
		Summary:   report.Summarize(recent),
	}
	if r.State != nil {
		out.NewTrades = r.State.CountNew(key, recent)
	}
	if r.Metrics != nil {
		for _, t := range res.Trades {
			r.Metrics.TradesTotal.WithLabelValues(interval, t.Direction.String()).Inc()
		}
		r.Metrics.RecentProfit.WithLabelValues(symbol, interval).Set(out.Summary.TotalProfit)
	}
	logger.Debug("%s: %d trades, %d recent, latest %s", key, len(res.Trades), len(recent), out.Latest.Trend)
	return out
}

// Simulate computes the indicator frame and backtests one series.
func (r *Runner) Simulate(series *model.Series) (*backtest.Result, error) {
	start := time.Now()
	f := r.Pipeline.Compute(series.Bars)
	res, err := backtest.NewEngine(r.Classifier, r.Backtest).Run(series, f)
	if r.Metrics != nil {
		r.Metrics.SimulateDur.Observe(time.Since(start).Seconds())
	}
	return res, err
}

func (r *Runner) count(interval, outcome string) {
	if r.Metrics != nil {
		r.Metrics.JobsTotal.WithLabelValues(interval, outcome).Inc()
	}
}
