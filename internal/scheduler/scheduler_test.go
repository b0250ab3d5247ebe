package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/backtest"
	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/config"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/runner"
	"TrendSentinel/internal/scanner"
	"TrendSentinel/internal/state"
	"TrendSentinel/internal/strategy"
)

type captureNotifier struct {
	mu    sync.Mutex
	fail  bool
	texts []string
}

func (c *captureNotifier) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("telegram down")
	}
	c.texts = append(c.texts, text)
	return nil
}

func newScheduler(t *testing.T, n *captureNotifier) (*Scheduler, *state.Manager) {
	t.Helper()
	closes := make([]float64, 500)
	for i := range closes {
		if i <= 300 {
			closes[i] = 400 - float64(i)
		} else {
			closes[i] = 100 + float64(i-300)
		}
	}
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}

	mock := &collector.MockFetcher{Bars: map[string][]model.OHLCV{"BTCUSDT@1d": bars}}
	r := runner.New(collector.NewCollector(mock, 600, time.Second),
		calculator.NewPipeline(calculator.DefaultParams()), strategy.NewStacking(), backtest.DefaultOptions(), 0, 1)

	st, err := state.NewManager(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	r.State = st
	s := NewScheduler(context.Background(), r, n, recorder.NewNoopRecorder(), st, []string{"BTCUSDT"}, []string{"1d"})
	return s, st
}

func TestHandleCommand_ReportThenStatus(t *testing.T) {
	n := &captureNotifier{}
	s, _ := newScheduler(t, n)

	assert.Contains(t, s.HandleCommand(context.Background(), "/status"), "no run")
	assert.Contains(t, s.HandleCommand(context.Background(), "/report@sentinel_bot"), "running the backtest batch")
	s.Wait()
	require.Len(t, n.texts, 1)
	assert.Contains(t, n.texts[0], "BTCUSDT")
	assert.Contains(t, n.texts[0], "🆕1")

	status := s.HandleCommand(context.Background(), "/status")
	assert.Contains(t, status, "trades: 1 (1 new)")
}

func TestBatch_CommitsOnlyAfterDelivery(t *testing.T) {
	n := &captureNotifier{fail: true}
	s, st := newScheduler(t, n)

	require.True(t, s.RunNow(nil))
	assert.Nil(t, st.LastRun(), "undelivered digest must not be committed")

	n.fail = false
	require.True(t, s.RunNow(nil))
	require.NotNil(t, st.LastRun())
	assert.Contains(t, n.texts[0], "🆕1")

	require.True(t, s.RunNow(nil))
	assert.NotContains(t, n.texts[1], "🆕")
}

func TestHandleCommand_ReportRepliesBeforeBatchEnds(t *testing.T) {
	n := &captureNotifier{}
	s, _ := newScheduler(t, n)

	// hold the notifier so the batch cannot finish
	n.mu.Lock()
	reply := s.HandleCommand(context.Background(), "/report")
	assert.Contains(t, reply, "running the backtest batch")
	assert.Contains(t, s.HandleCommand(context.Background(), "/report"), "already running")
	n.mu.Unlock()

	s.Wait()
	assert.Len(t, n.texts, 1)
}

type historyRecorder struct {
	recorder.NoopRecorder
	runs []recorder.RunRow
}

func (h *historyRecorder) RecentRuns(n int) ([]recorder.RunRow, error) {
	if len(h.runs) > n {
		return h.runs[:n], nil
	}
	return h.runs, nil
}

func TestHandleCommand_StatusListsHistory(t *testing.T) {
	s, _ := newScheduler(t, &captureNotifier{})
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	s.Recorder = &historyRecorder{runs: []recorder.RunRow{{RunID: "r2", Timestamp: at.Unix(), Rule: "stacking", Trades: 2, Simulated: 9}}}

	status := s.HandleCommand(context.Background(), "/status")
	assert.Contains(t, status, "no run")
	assert.Contains(t, status, "History")
	assert.Contains(t, status, "2 recent of 9 trades")
}

func TestHandleCommand_Scan(t *testing.T) {
	n := &captureNotifier{}
	s, _ := newScheduler(t, n)
	assert.Contains(t, s.HandleCommand(context.Background(), "/scan"), "not configured")
	assert.Error(t, s.RegisterScan("0 2 0,12 * * *"))

	opts := scanner.DefaultOptions()
	opts.Interval = "1d"
	opts.Limit = 300
	s.Scanner = scanner.New(s.Runner.Collector, opts, 1)
	require.NoError(t, s.RegisterScan("0 2 0,12 * * *"))

	assert.Contains(t, s.HandleCommand(context.Background(), "/scan"), "scanning")
	s.Wait()
	require.Len(t, n.texts, 3)
	assert.Contains(t, n.texts[0], "1D Price Between MAs Alert")
	assert.Contains(t, n.texts[0], "No coins have current price between")
	assert.Contains(t, n.texts[1], "RSI Alert")
	assert.Contains(t, n.texts[2], "KDJ Alert")

	s.scanning.Lock()
	assert.False(t, s.RunScan())
	s.scanning.Unlock()
}

func TestHandleCommand_Help(t *testing.T) {
	s, _ := newScheduler(t, &captureNotifier{})
	assert.Contains(t, s.HandleCommand(context.Background(), "/help"), "/report")
	assert.Contains(t, s.HandleCommand(context.Background(), "/help"), "/scan")
	assert.Contains(t, s.HandleCommand(context.Background(), "hello"), "/status")
}

func TestRunNow_SkipsWhenBusy(t *testing.T) {
	s, _ := newScheduler(t, &captureNotifier{})
	s.busy.Lock()
	assert.False(t, s.RunNow(nil))
	assert.Contains(t, s.HandleCommand(context.Background(), "/report"), "already running")
	s.busy.Unlock()
}

func TestRegisterAll(t *testing.T) {
	s, _ := newScheduler(t, &captureNotifier{})
	require.NoError(t, s.RegisterAll([]config.Job{{Cron: "0 5 0 * * *"}, {Cron: "@every 6h", Intervals: []string{"1d"}}}))
	assert.Len(t, s.Cron.Entries(), 2)

	assert.Error(t, s.RegisterAll([]config.Job{{Cron: "61 * * * * *"}}))
}
