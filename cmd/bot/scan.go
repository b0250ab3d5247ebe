package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"TrendSentinel/internal/notifier"
	"TrendSentinel/pkg/logger"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the latest bar of every symbol and print the alerts",
	Long: `Scan fetches the configured scan interval once per symbol and reports the
coins whose close sits inside the moving-average bracket, whose RSI periods
disagree and whose K, D and J lines disagree.

Example:
  trend-sentinel scan -s XRPUSDT,DOGEUSDT --send`,
	RunE: runScan,
}

var (
	scSymbols []string
	scSend    bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringSliceVarP(&scSymbols, "symbols", "s", nil, "symbols to scan (default from config)")
	scanCmd.Flags().BoolVar(&scSend, "send", false, "also send the alerts to Telegram")
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(scSymbols) > 0 {
		cfg.DataSource.Symbols = scSymbols
	}
	if err := cfg.Scan.Options.Validate(); err != nil {
		return errors.Wrap(err, "scan")
	}

	sc := newScanner(cfg)
	res, err := sc.Scan(cmd.Context(), cfg.DataSource.Symbols)
	if err != nil {
		return err
	}
	msgs := notifier.FormatScan(res, sc.Opts)

	out := &notifier.WriterNotifier{W: os.Stdout}
	for _, m := range msgs {
		if err := out.Send(cmd.Context(), m); err != nil {
			return err
		}
	}
	if !scSend {
		return nil
	}
	tn, err := newNotifier(cfg)
	if err != nil {
		return errors.Wrap(err, "init telegram")
	}
	for _, m := range msgs {
		if err := tn.SendWithRetry(cmd.Context(), m, 3); err != nil {
			return err
		}
	}
	return nil
}
