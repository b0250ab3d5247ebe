package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"TrendSentinel/internal/config"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/scheduler"
	"TrendSentinel/internal/state"
	"TrendSentinel/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cron scheduler and the Telegram command bot",
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func newRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		logger.Warn("init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

func newNotifier(cfg *config.Config) (*notifier.TelegramNotifier, error) {
	chatID, err := cfg.ChatID()
	if err != nil {
		return nil, err
	}
	return notifier.NewTelegramNotifier(cfg.Telegram.BotToken, chatID, cfg.Proxy, cfg.Telegram.Endpoint)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("TrendSentinel starting, rule %s", cfg.Strategy.Rule)

	if !cfg.TelegramEnabled() {
		return errors.New("run needs telegram.bot_token; use backtest for a one-shot report")
	}
	tn, err := newNotifier(cfg)
	if err != nil {
		return errors.Wrap(err, "init telegram")
	}

	r, err := newRunner(cfg)
	if err != nil {
		return err
	}
	st, err := state.NewManager(cfg.State.File)
	if err != nil {
		return errors.Wrap(err, "init state")
	}
	r.State = st

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.Metrics = metrics.NewMetrics(reg)

	rec := newRecorder(cfg)
	defer rec.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg); err != nil {
				logger.Fatal("metrics server: %v", err)
			}
		}()
	}

	sched := scheduler.NewScheduler(ctx, r, tn, rec, st, cfg.DataSource.Symbols, cfg.DataSource.Intervals)
	sched.Metrics = r.Metrics
	if err := sched.RegisterAll(cfg.Schedule.Jobs); err != nil {
		return errors.Wrap(err, "register cron tasks")
	}
	sched.Scanner = newScanner(cfg)
	sched.Scanner.Metrics = r.Metrics
	if cfg.Scan.Enabled {
		if err := sched.RegisterScan(cfg.Scan.Cron); err != nil {
			return errors.Wrap(err, "register scan")
		}
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	logger.Info("telegram polling started")

	if cfg.Schedule.RunOnStart || os.Getenv("RUN_ON_START") == "true" {
		logger.Info("run_on_start enabled, executing batch now")
		go sched.RunNow(nil)
	}

	logger.Info("TrendSentinel is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Info("shutdown signal received, stopping...")
	return nil
}
