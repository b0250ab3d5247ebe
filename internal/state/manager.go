package state

import (
	"sync"
	"time"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/report"
	"TrendSentinel/pkg/logger"
)

// Manager guards the state file between the scheduler and command handlers.
type Manager struct {
	mu       sync.Mutex
	state    *State
	filePath string
}

// NewManager creates a Manager, loading state from disk.
func NewManager(filePath string) (*Manager, error) {
	st, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	return &Manager{state: st, filePath: filePath}, nil
}

// CountNew returns how many trades were entered after the newest trade
// already reported for key.
func (m *Manager) CountNew(key string, trades []model.Trade) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	last, seen := m.state.LastReported[key]
	n := 0
	for _, t := range trades {
		if !seen || t.EntryTime.After(last) {
			n++
		}
	}
	return n
}

// Commit marks every recent trade of the digest as reported and stores the
// run summary. Call it once the digest was delivered.
func (m *Manager) Commit(d *report.Digest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	trades := 0
	for _, j := range d.Jobs {
		trades += len(j.Recent)
		for _, t := range j.Recent {
			if t.EntryTime.After(m.state.LastReported[j.Key()]) {
				m.state.LastReported[j.Key()] = t.EntryTime
			}
		}
	}
	m.state.LastRun = &RunInfo{
		RunID:       d.RunID,
		At:          d.GeneratedAt,
		Jobs:        len(d.Jobs),
		Skipped:     len(d.Skipped()),
		Trades:      trades,
		NewTrades:   d.NewTrades(),
		WinRate:     d.Overall.WinRate,
		TotalProfit: d.Overall.TotalProfit,
	}

	if err := m.save(); err != nil {
		logger.Error("failed to save state: %v", err)
		return err
	}
	return nil
}

// LastRun returns a copy of the last run summary, or nil before the first run.
func (m *Manager) LastRun() *RunInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.LastRun == nil {
		return nil
	}
	info := *m.state.LastRun
	return &info
}

// Reported returns the newest reported entry time for key.
func (m *Manager) Reported(key string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.state.LastReported[key]
	return t, ok
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
