package recorder

import (
	"database/sql"
	"sync"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/report"
	"TrendSentinel/pkg/logger"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// WAL mode for better concurrent read performance (Grafana reads while bot writes).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	logger.Info("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id       TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			rule         TEXT,
			window_sec   INTEGER,
			jobs         INTEGER,
			skipped      INTEGER,
			trades       INTEGER,
			wins         INTEGER,
			losses       INTEGER,
			win_rate     REAL,
			total_profit REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS jobs (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL,
			symbol        TEXT NOT NULL,
			interval      TEXT NOT NULL,
			bars          INTEGER,
			last_time     INTEGER,
			last_close    REAL,
			latest_trend  TEXT,
			skipped       INTEGER,
			reason        TEXT,
			recent_trades INTEGER,
			recent_profit REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_run ON jobs(run_id)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			interval    TEXT NOT NULL,
			direction   TEXT,
			entry_index INTEGER,
			entry_time  INTEGER,
			entry_price REAL,
			exit_index  INTEGER,
			exit_time   INTEGER,
			exit_price  REAL,
			profit      REAL,
			reason      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_entry ON trades(symbol, interval, entry_time)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return errors.Wrapf(err, "exec %q", s[:40])
		}
	}
	return nil
}

// RecordDigest writes the run in a single transaction.
func (r *SQLiteRecorder) RecordDigest(d *report.Digest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(run_id, timestamp, rule, window_sec, jobs, skipped, trades, wins, losses, win_rate, total_profit)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.RunID, d.GeneratedAt.Unix(), d.Rule, int64(d.Window.Seconds()),
		len(d.Jobs), len(d.Skipped()), d.Overall.Count, d.Overall.Wins, d.Overall.Losses,
		d.Overall.WinRate, d.Overall.TotalProfit,
	)
	if err != nil {
		return errors.Wrap(err, "insert run")
	}

	for _, j := range d.Jobs {
		_, err := tx.Exec(`INSERT INTO jobs
			(run_id, symbol, interval, bars, last_time, last_close, latest_trend, skipped, reason, recent_trades, recent_profit)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			d.RunID, j.Symbol, j.Interval, j.Bars, unix(j), j.LastClose,
			j.Latest.Trend.String(), j.Skipped, j.Reason, j.Summary.Count, j.Summary.TotalProfit,
		)
		if err != nil {
			return errors.Wrapf(err, "insert job %s", j.Key())
		}
		for _, t := range j.Trades {
			if err := insertTrade(tx, d.RunID, t); err != nil {
				return errors.Wrapf(err, "insert trade %s", j.Key())
			}
		}
	}
	return tx.Commit()
}

func unix(j report.JobResult) int64 {
	if j.LastTime.IsZero() {
		return 0
	}
	return j.LastTime.Unix()
}

func insertTrade(tx *sql.Tx, runID string, t model.Trade) error {
	_, err := tx.Exec(`INSERT INTO trades
		(run_id, symbol, interval, direction, entry_index, entry_time, entry_price,
		 exit_index, exit_time, exit_price, profit, reason)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		runID, t.Symbol, t.Interval, t.Direction.String(),
		t.EntryIndex, t.EntryTime.Unix(), t.EntryPrice,
		t.ExitIndex, t.ExitTime.Unix(), t.ExitPrice,
		t.Profit, t.Reason,
	)
	return err
}

// RecentRuns returns the newest n runs, newest first.
func (r *SQLiteRecorder) RecentRuns(n int) ([]RunRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, timestamp, rule, jobs, skipped, trades, win_rate, total_profit,
		(SELECT COUNT(*) FROM trades t WHERE t.run_id = runs.run_id)
		FROM runs ORDER BY timestamp DESC, run_id DESC LIMIT ?`, n)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		if err := rows.Scan(&row.RunID, &row.Timestamp, &row.Rule, &row.Jobs, &row.Skipped,
			&row.Trades, &row.WinRate, &row.TotalProfit, &row.Simulated); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.Info("closing sqlite recorder")
	return r.db.Close()
}
