package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/strategy"
	"TrendSentinel/pkg/logger"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run one batch and print the digest",
	Long: `Backtest fetches every symbol/interval pair once, replays the configured
rule and prints the digest. State is left untouched.

Example:
  trend-sentinel backtest -s BTCUSDT,ETHUSDT -i 4h,1d -r confirmed-stacking --window 0`,
	RunE: runBacktest,
}

var (
	btSymbols   []string
	btIntervals []string
	btRule      string
	btLeverage  float64
	btWindow    string
	btSend      bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringSliceVarP(&btSymbols, "symbols", "s", nil, "symbols to test (default from config)")
	backtestCmd.Flags().StringSliceVarP(&btIntervals, "intervals", "i", nil, "intervals to test (default from config)")
	backtestCmd.Flags().StringVarP(&btRule, "rule", "r", "", "classification rule, one of "+joinRules())
	backtestCmd.Flags().Float64Var(&btLeverage, "leverage", 0, "profit multiplier (default from config)")
	backtestCmd.Flags().StringVar(&btWindow, "window", "", "recency window, e.g. 720h; 0 reports every trade")
	backtestCmd.Flags().BoolVar(&btSend, "send", false, "also send the digest to Telegram")
}

func joinRules() string {
	return strings.Join(strategy.Rules(), ", ")
}

// parseWindow accepts Go durations plus a whole-day "30d" form.
func parseWindow(v string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, errors.Wrapf(err, "window %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	w, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "window %q", v)
	}
	return w, nil
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(btSymbols) > 0 {
		cfg.DataSource.Symbols = btSymbols
	}
	if len(btIntervals) > 0 {
		cfg.DataSource.Intervals = btIntervals
	}
	if btRule != "" {
		cfg.Strategy.Rule = btRule
	}
	if btLeverage != 0 {
		cfg.Backtest.Leverage = btLeverage
	}
	if btWindow != "" {
		w, err := parseWindow(btWindow)
		if err != nil {
			return err
		}
		cfg.Runner.RecencyWindow = w
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "flags")
	}

	r, err := newRunner(cfg)
	if err != nil {
		return err
	}
	d, err := r.Run(cmd.Context(), cfg.DataSource.Symbols, cfg.DataSource.Intervals)
	if err != nil {
		return err
	}

	text := notifier.FormatDigest(d)
	out := &notifier.WriterNotifier{W: os.Stdout}
	if err := out.Send(cmd.Context(), text); err != nil {
		return err
	}

	if btSend {
		tn, err := newNotifier(cfg)
		if err != nil {
			return errors.Wrap(err, "init telegram")
		}
		return tn.SendWithRetry(cmd.Context(), text, 3)
	}
	return nil
}
