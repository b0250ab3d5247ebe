// Package state remembers what previous runs already reported.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// RunInfo summarizes the last completed batch.
type RunInfo struct {
	RunID       string    `json:"run_id"`
	At          time.Time `json:"at"`
	Jobs        int       `json:"jobs"`
	Skipped     int       `json:"skipped"`
	Trades      int       `json:"trades"`
	NewTrades   int       `json:"new_trades"`
	WinRate     float64   `json:"win_rate"`
	TotalProfit float64   `json:"total_profit"`
}

// State is persisted between runs.
type State struct {
	// LastReported maps a job key to the entry time of the newest trade
	// already sent out.
	LastReported map[string]time.Time `json:"last_reported"`
	LastRun      *RunInfo             `json:"last_run,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// LoadState reads the state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{LastReported: map[string]time.Time{}}, nil
		}
		return nil, errors.Wrap(err, "read state")
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrapf(err, "decode state %s", filePath)
	}
	if st.LastReported == nil {
		st.LastReported = map[string]time.Time{}
	}
	return &st, nil
}

// SaveState writes the state to a JSON file via a temporary file.
func SaveState(filePath string, st *State) error {
	st.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "create state dir")
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "write state")
	}
	return os.Rename(tmp, filePath)
}
