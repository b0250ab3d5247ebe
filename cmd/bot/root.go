package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/config"
	"TrendSentinel/internal/runner"
	"TrendSentinel/internal/scanner"
	"TrendSentinel/internal/strategy"
	"TrendSentinel/pkg/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "trend-sentinel",
	Short: "Indicator-driven trend backtester with Telegram digests",
	Long: `TrendSentinel fetches candles for a set of symbols and intervals, runs an
indicator-driven trend classifier over them, replays the signals as a
single-position backtest and reports the recent trades.

  trend-sentinel run                         # cron daemon with Telegram bot
  trend-sentinel backtest -s BTCUSDT -i 1d   # one-shot report to stdout
  trend-sentinel scan                        # one-shot indicator alerts`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	def := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		def = v
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", def, "path to YAML config (env CONFIG_PATH)")
}

// loadConfig reads, validates and initialises logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := logger.Init(cfg.Log.Debug); err != nil {
		return nil, errors.Wrap(err, "init logger")
	}
	logger.SetServiceName("trend-sentinel")
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation")
	}
	return cfg, nil
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.DataSource.Provider {
	case "yahoo":
		f := collector.NewYahooFetcher(cfg.Proxy)
		if cfg.DataSource.BaseURL != "" {
			f.BaseURL = cfg.DataSource.BaseURL
		}
		return f
	case "mock":
		return &collector.MockFetcher{Price: 30000}
	default:
		return collector.NewBinanceFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	}
}

// newScanner wires a scanner over its own collector, sized for the scan.
func newScanner(cfg *config.Config) *scanner.Scanner {
	col := collector.NewCollector(newFetcher(cfg), cfg.Scan.Limit, cfg.DataSource.Timeout)
	return scanner.New(col, cfg.Scan.Options, cfg.Runner.Concurrency)
}

// newRunner wires fetcher, indicators and classifier for cfg.
func newRunner(cfg *config.Config) (*runner.Runner, error) {
	fetcher := newFetcher(cfg)
	logger.Info("data source: %s", fetcher.Name())

	cl, err := strategy.New(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	col := collector.NewCollector(fetcher, cfg.DataSource.Limit, cfg.DataSource.Timeout)
	return runner.New(col, calculator.NewPipeline(cfg.Indicators), cl, cfg.Backtest,
		cfg.Runner.RecencyWindow, cfg.Runner.Concurrency), nil
}
