// Package report filters and aggregates backtest trades into digests.
package report

import (
	"sort"
	"time"

	"TrendSentinel/internal/model"
)

// FilterRecent keeps trades whose entry time lies in [now-window, now].
// A non-positive window keeps everything up to now.
func FilterRecent(trades []model.Trade, now time.Time, window time.Duration) []model.Trade {
	from := now.Add(-window)
	var out []model.Trade
	for _, t := range trades {
		if t.EntryTime.After(now) {
			continue
		}
		if window > 0 && t.EntryTime.Before(from) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Summarize counts wins (profit > 0); every other trade, break-even
// included, is a loss.
func Summarize(trades []model.Trade) model.Summary {
	var s model.Summary
	for _, t := range trades {
		s.Count++
		s.TotalProfit += t.Profit
		if t.Profit > 0 {
			s.Wins++
		}
	}
	s.Losses = s.Count - s.Wins
	if s.Count > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Count)
	}
	return s
}

// JobResult is the outcome of simulating one symbol/interval pair.
type JobResult struct {
	Symbol    string
	Interval  string
	Bars      int
	LastTime  time.Time
	LastClose float64
	// Latest is the verdict at the newest bar.
	Latest model.Verdict
	Trades []model.Trade
	// Recent holds the trades inside the recency window and Summary
	// aggregates them.
	Recent  []model.Trade
	Summary model.Summary
	// NewTrades counts recent trades entered after the last reported one.
	NewTrades int

	Skipped bool
	Reason  string
}

// Key returns the SYMBOL@interval job key.
func (r JobResult) Key() string { return model.JobKey(r.Symbol, r.Interval) }

// Earliest returns the first entry time among the recent trades.
func (r JobResult) Earliest() (time.Time, bool) {
	var first time.Time
	for i, t := range r.Recent {
		if i == 0 || t.EntryTime.Before(first) {
			first = t.EntryTime
		}
	}
	return first, len(r.Recent) > 0
}

// Skip builds a skipped result.
func Skip(symbol, interval, reason string) JobResult {
	return JobResult{Symbol: symbol, Interval: interval, Skipped: true, Reason: reason}
}

// Digest is one batch of job results plus the global recency summary.
type Digest struct {
	RunID       string
	Rule        string
	GeneratedAt time.Time
	Window      time.Duration
	Jobs        []JobResult
	Overall     model.Summary
}

// Build sorts jobs by symbol then interval and summarizes their recent trades.
func Build(runID, rule string, at time.Time, window time.Duration, jobs []JobResult) *Digest {
	sorted := make([]JobResult, len(jobs))
	copy(sorted, jobs)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Symbol != sorted[b].Symbol {
			return sorted[a].Symbol < sorted[b].Symbol
		}
		return sorted[a].Interval < sorted[b].Interval
	})

	var recent []model.Trade
	for _, j := range sorted {
		recent = append(recent, j.Recent...)
	}
	return &Digest{
		RunID:       runID,
		Rule:        rule,
		GeneratedAt: at,
		Window:      window,
		Jobs:        sorted,
		Overall:     Summarize(recent),
	}
}

// Period returns the recency window the digest covers. ok is false when
// the window is unbounded.
func (d *Digest) Period() (from, to time.Time, ok bool) {
	if d.Window <= 0 {
		return time.Time{}, d.GeneratedAt, false
	}
	return d.GeneratedAt.Add(-d.Window), d.GeneratedAt, true
}

// Sections returns the jobs with recent trades, ordered by their earliest
// recent entry. Jobs without recent trades are left out.
func (d *Digest) Sections() []JobResult {
	var out []JobResult
	for _, j := range d.Jobs {
		if !j.Skipped && len(j.Recent) > 0 {
			out = append(out, j)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		ea, _ := out[a].Earliest()
		eb, _ := out[b].Earliest()
		return ea.Before(eb)
	})
	return out
}

// Skipped returns the jobs that produced no simulation.
func (d *Digest) Skipped() []JobResult {
	var out []JobResult
	for _, j := range d.Jobs {
		if j.Skipped {
			out = append(out, j)
		}
	}
	return out
}

// NewTrades totals the new-trade counts of every job.
func (d *Digest) NewTrades() int {
	n := 0
	for _, j := range d.Jobs {
		n += j.NewTrades
	}
	return n
}
