package recorder

import (
	"time"

	"TrendSentinel/internal/report"
)

// RunRow is one stored batch run.
type RunRow struct {
	RunID       string
	Timestamp   int64
	Rule        string
	Jobs        int
	Skipped     int
	Trades      int
	WinRate     float64
	TotalProfit float64
	// Simulated counts every stored trade of the run, recent or not.
	Simulated int
}

// At returns the run time.
func (r RunRow) At() time.Time { return time.Unix(r.Timestamp, 0).UTC() }

// History reads back recorded runs.
type History interface {
	// RecentRuns returns the newest n runs, newest first.
	RecentRuns(n int) ([]RunRow, error)
}

// Recorder persists historical data for analysis.
type Recorder interface {
	// RecordDigest stores the run, its jobs and every simulated trade.
	RecordDigest(d *report.Digest) error
	Close() error
}
