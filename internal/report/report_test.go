package report

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/model"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func trade(symbol string, ago time.Duration, profit float64) model.Trade {
	return model.Trade{Symbol: symbol, Interval: "1d", EntryTime: now.Add(-ago), Profit: profit}
}

func TestFilterRecent(t *testing.T) {
	trades := []model.Trade{
		trade("BTCUSDT", 40*24*time.Hour, 5),
		trade("BTCUSDT", 30*24*time.Hour, 1),
		trade("BTCUSDT", time.Hour, -2),
		trade("BTCUSDT", -time.Hour, 3),
	}

	got := FilterRecent(trades, now, 30*24*time.Hour)
	require.Len(t, got, 2, "window bounds are inclusive, future entries dropped")
	assert.Equal(t, 1.0, got[0].Profit)
	assert.Equal(t, -2.0, got[1].Profit)

	assert.Len(t, FilterRecent(trades, now, 0), 3)
	assert.Empty(t, FilterRecent(nil, now, time.Hour))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]model.Trade{
		trade("A", 0, 10),
		trade("A", 0, -4),
		trade("A", 0, 0),
		trade("A", 0, 6),
	})
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses, "break-even counts as a loss")
	assert.InDelta(t, 0.5, s.WinRate, 1e-12)
	assert.InDelta(t, 12.0, s.TotalProfit, 1e-12)
}

func TestSummarize_BreakEvenIsLoss(t *testing.T) {
	s := Summarize([]model.Trade{trade("A", 0, 5), trade("A", 0, 0)})
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, s.Count, s.Wins+s.Losses)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Count)
	assert.False(t, math.IsNaN(s.WinRate))
	assert.Zero(t, s.WinRate)
}

func TestBuild(t *testing.T) {
	jobs := []JobResult{
		{Symbol: "SOLUSDT", Interval: "4h", Recent: []model.Trade{trade("SOLUSDT", 0, -1)}, NewTrades: 1},
		Skip("ETHUSDT", "1d", "insufficient history"),
		{Symbol: "BTCUSDT", Interval: "6h", Recent: []model.Trade{trade("BTCUSDT", 0, 3)}},
		{Symbol: "BTCUSDT", Interval: "12h", Recent: []model.Trade{trade("BTCUSDT", 0, 2)}, NewTrades: 2},
	}
	d := Build("01HX", "stacking", now, 30*24*time.Hour, jobs)

	assert.Equal(t, "BTCUSDT", d.Jobs[0].Symbol)
	assert.Equal(t, "12h", d.Jobs[0].Interval)
	assert.Equal(t, "SOLUSDT", jobs[0].Symbol, "input must not be reordered")

	assert.Equal(t, 3, d.Overall.Count)
	assert.Equal(t, 2, d.Overall.Wins)
	assert.InDelta(t, 4.0, d.Overall.TotalProfit, 1e-12)
	assert.Equal(t, 3, d.NewTrades())

	skipped := d.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "ETHUSDT@1d", skipped[0].Key())

	from, to, ok := d.Period()
	require.True(t, ok)
	assert.Equal(t, now, to)
	assert.Equal(t, now.Add(-30*24*time.Hour), from)
}

func TestDigest_SectionsByEarliestEntry(t *testing.T) {
	jobs := []JobResult{
		{Symbol: "AAAUSDT", Interval: "4h", Recent: []model.Trade{trade("AAAUSDT", time.Hour, 1)}},
		{Symbol: "BBBUSDT", Interval: "4h"},
		{Symbol: "CCCUSDT", Interval: "6h", Recent: []model.Trade{
			trade("CCCUSDT", 2*time.Hour, 1),
			trade("CCCUSDT", 50*time.Hour, -1),
		}},
		{Symbol: "DDDUSDT", Interval: "12h", Recent: []model.Trade{trade("DDDUSDT", 10*time.Hour, 2)}},
		Skip("EEEUSDT", "4h", "fetch failed"),
	}
	d := Build("01HX", "stacking", now, 96*time.Hour, jobs)

	var keys []string
	for _, j := range d.Sections() {
		keys = append(keys, j.Key())
	}
	assert.Equal(t, []string{"CCCUSDT@6h", "DDDUSDT@12h", "AAAUSDT@4h"}, keys)

	first, ok := d.Sections()[0].Earliest()
	require.True(t, ok)
	assert.Equal(t, now.Add(-50*time.Hour), first)

	_, ok = jobs[1].Earliest()
	assert.False(t, ok)

	quiet := Build("01HY", "stacking", now, 0, []JobResult{jobs[1]})
	assert.Empty(t, quiet.Sections())
	_, _, ok = quiet.Period()
	assert.False(t, ok)
}
