package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"TrendSentinel/internal/config"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/report"
	"TrendSentinel/internal/runner"
	"TrendSentinel/internal/scanner"
	"TrendSentinel/internal/state"
	"TrendSentinel/pkg/logger"
)

// sendRetries is the retry budget for one digest delivery.
const sendRetries = 3

// historyRuns is the number of recorded runs listed by /status.
const historyRuns = 5

type retrier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Runner    *runner.Runner
	Scanner   *scanner.Scanner
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	State     *state.Manager
	Metrics   *metrics.Metrics
	Symbols   []string
	Intervals []string
	Ctx       context.Context

	// busy serializes batches and scanning serializes scans; a tick
	// arriving mid-run is dropped.
	busy     sync.Mutex
	scanning sync.Mutex
	// wg tracks runs started from chat commands.
	wg sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, r *runner.Runner, n notifier.Notifier, rec recorder.Recorder, st *state.Manager, symbols, intervals []string) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Runner:    r,
		Notifier:  n,
		Recorder:  rec,
		State:     st,
		Symbols:   symbols,
		Intervals: intervals,
		Ctx:       ctx,
	}
}

// RegisterAll registers one cron task per configured job.
func (s *Scheduler) RegisterAll(jobs []config.Job) error {
	for i, job := range jobs {
		intervals := job.Intervals
		if len(intervals) == 0 {
			intervals = s.Intervals
		}
		if _, err := s.Cron.AddFunc(job.Cron, func() { s.RunNow(intervals) }); err != nil {
			return errors.Wrapf(err, "register job %d (%s)", i, job.Cron)
		}
		logger.Info("registered %q for intervals %v", job.Cron, intervals)
	}
	return nil
}

// RegisterScan schedules the indicator scan.
func (s *Scheduler) RegisterScan(spec string) error {
	if s.Scanner == nil {
		return errors.New("no scanner configured")
	}
	if _, err := s.Cron.AddFunc(spec, func() { s.RunScan() }); err != nil {
		return errors.Wrapf(err, "register scan (%s)", spec)
	}
	logger.Info("registered scan %q on %s bars", spec, s.Scanner.Opts.Interval)
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running batches and scans.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Wait()
	logger.Info("scheduler stopped")
}

// Wait blocks until every run started from a chat command has finished.
func (s *Scheduler) Wait() { s.wg.Wait() }

// RunNow executes a batch over the given intervals immediately (all
// configured intervals when empty). It returns false if a batch was already
// running.
func (s *Scheduler) RunNow(intervals []string) bool {
	if !s.busy.TryLock() {
		logger.Warn("batch already running, skipping")
		return false
	}
	defer s.busy.Unlock()

	if len(intervals) == 0 {
		intervals = s.Intervals
	}
	s.batch(intervals)
	return true
}

// start runs fn in the background while holding mu. It returns false
// without running fn when mu is already held.
func (s *Scheduler) start(mu *sync.Mutex, fn func()) bool {
	if !mu.TryLock() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer mu.Unlock()
		fn()
	}()
	return true
}

// RunScan scans every symbol and sends the three alert messages. It returns
// false if a scan was already running.
func (s *Scheduler) RunScan() bool {
	if !s.scanning.TryLock() {
		logger.Warn("scan already running, skipping")
		return false
	}
	defer s.scanning.Unlock()
	s.scan()
	return true
}

func (s *Scheduler) scan() {
	res, err := s.Scanner.Scan(s.Ctx, s.Symbols)
	if err != nil {
		logger.Error("scan: %v", err)
		_ = s.trySend(fmt.Sprintf("❌ scan failed: %v", err))
		return
	}
	for _, msg := range notifier.FormatScan(res, s.Scanner.Opts) {
		if err := s.trySend(msg); err != nil {
			return
		}
	}
}

func (s *Scheduler) batch(intervals []string) {
	logger.Info("running batch for %v", intervals)
	d, err := s.Runner.Run(s.Ctx, s.Symbols, intervals)
	if err != nil {
		logger.Error("batch: %v", err)
		_ = s.trySend(fmt.Sprintf("❌ batch failed: %v", err))
		return
	}

	if err := s.trySend(notifier.FormatDigest(d)); err == nil && s.State != nil {
		if err := s.State.Commit(d); err != nil {
			logger.Error("commit state: %v", err)
		}
	}
	s.record(d)
}

func (s *Scheduler) record(d *report.Digest) {
	if s.Recorder == nil {
		return
	}
	if err := s.Recorder.RecordDigest(d); err != nil {
		logger.Error("record digest: %v", err)
	}
}

// HandleCommand processes a user command and returns a reply. Batches and
// scans run in the background; their output arrives as separate messages.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	// "/report@my_bot" in group chats
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	switch strings.ToLower(command) {
	case "/report":
		if !s.start(&s.busy, func() { s.batch(s.Intervals) }) {
			return "⏳ a batch is already running"
		}
		return "⏳ running the backtest batch…"
	case "/scan":
		if s.Scanner == nil {
			return "scan is not configured"
		}
		if !s.start(&s.scanning, s.scan) {
			return "⏳ a scan is already running"
		}
		return "⏳ scanning…"
	case "/status":
		return s.status()
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) status() string {
	var info *state.RunInfo
	if s.State != nil {
		info = s.State.LastRun()
	}
	out := notifier.FormatStatus(info)
	h, ok := s.Recorder.(recorder.History)
	if !ok {
		return out
	}
	runs, err := h.RecentRuns(historyRuns)
	if err != nil {
		logger.Warn("read run history: %v", err)
		return out
	}
	return out + notifier.FormatHistory(runs)
}

func (s *Scheduler) trySend(text string) error {
	var err error
	if r, ok := s.Notifier.(retrier); ok {
		err = r.SendWithRetry(s.Ctx, text, sendRetries)
	} else {
		err = s.Notifier.Send(s.Ctx, text)
	}
	if err != nil {
		logger.Error("send notification: %v", err)
		if s.Metrics != nil {
			s.Metrics.NotifyErrors.Inc()
		}
	}
	return err
}
