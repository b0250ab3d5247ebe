package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/report"
	"TrendSentinel/internal/scanner"
	"TrendSentinel/internal/state"
)

// HelpText lists the bot commands.
const HelpText = `<b>TrendSentinel</b> commands:
/report - run the backtest batch now
/scan - run the indicator scan now
/status - last run summary and recent history
/help - this message`

const stampLayout = "2006-01-02 15:04"

// maxTradesPerJob bounds the trade lines listed under one job.
const maxTradesPerJob = 5

// FormatDigest renders a batch digest as Telegram HTML. Jobs without
// recent trades are left out; sections run from the earliest entry.
func FormatDigest(d *report.Digest) string {
	var b strings.Builder

	from, to, bounded := d.Period()
	period := "all history"
	if bounded {
		period = fmt.Sprintf("%s UTC to %s UTC", from.UTC().Format(stampLayout), to.UTC().Format(stampLayout))
	}
	b.WriteString(fmt.Sprintf("📊 <b>Backtest results for the period: %s</b>\n", period))
	b.WriteString(fmt.Sprintf("rule %s, window %s, run %s\n\n", html.EscapeString(d.Rule), formatWindow(d.Window), html.EscapeString(d.RunID)))

	sections := d.Sections()
	if len(sections) == 0 {
		if bounded {
			b.WriteString(fmt.Sprintf("No backtest results available for the past %s.\n", formatWindow(d.Window)))
		} else {
			b.WriteString("No backtest results available.\n")
		}
	}
	for _, j := range sections {
		b.WriteString(fmt.Sprintf("<b>%s</b> %s %s close %.4g | %d trades, %d W / %d L, win %.0f%%, pnl %+.2f",
			html.EscapeString(j.Symbol), j.Interval, trendIcon(j.Latest.Trend), j.LastClose,
			j.Summary.Count, j.Summary.Wins, j.Summary.Losses, j.Summary.WinRate*100, j.Summary.TotalProfit))
		if j.NewTrades > 0 {
			b.WriteString(fmt.Sprintf(" 🆕%d", j.NewTrades))
		}
		b.WriteString("\n")
		b.WriteString(formatTrades(j.Recent))
	}

	if len(sections) > 0 {
		s := d.Overall
		b.WriteString("  ─────────────────\n")
		b.WriteString(fmt.Sprintf("💰 <b>Total:</b> %d trades, %d W / %d L, win %.1f%%, pnl %+.2f\n",
			s.Count, s.Wins, s.Losses, s.WinRate*100, s.TotalProfit))
	}
	if skipped := d.Skipped(); len(skipped) > 0 {
		keys := make([]string, len(skipped))
		for i, j := range skipped {
			keys[i] = html.EscapeString(j.Key())
		}
		b.WriteString(fmt.Sprintf("⚠️ %d job(s) skipped: %s\n", len(skipped), strings.Join(keys, ", ")))
	}
	return b.String()
}

// FormatScan renders a scan as three messages: the MA bracket, RSI and KDJ
// alerts. An empty list gets its own fallback line.
func FormatScan(r *scanner.Result, o scanner.Options) []string {
	at := r.At.UTC().Format(stampLayout)
	title := strings.ToUpper(r.Interval)
	bracket := strings.Join(o.Bracket, ", ")

	rsi := make([]string, len(o.RSIPeriods))
	for i, p := range o.RSIPeriods {
		rsi[i] = fmt.Sprint(p)
	}
	periods := strings.Join(rsi, ", ")

	msgs := []string{
		scanMessage(fmt.Sprintf("%s Price Between MAs Alert (%s)", title, at),
			fmt.Sprintf("Coins with price between %s:", bracket), r.BetweenMAs,
			fmt.Sprintf("No coins have current price between %s.", bracket)),
		scanMessage(fmt.Sprintf("%s RSI Alert (%s)", title, at),
			fmt.Sprintf("Coins with unequal RSI values for periods %s:", periods), r.UnequalRSI,
			fmt.Sprintf("All coins have equal RSI values for periods %s.", periods)),
		scanMessage(fmt.Sprintf("%s KDJ Alert (%s)", title, at),
			fmt.Sprintf("Coins with unequal K, D and J for KDJ(%d, %d, %d):", o.KDJ.Lookback, o.KDJ.M1, o.KDJ.M2), r.UnequalKDJ,
			fmt.Sprintf("All coins have equal KDJ values for parameters length=%d, ma1=%d, ma2=%d.", o.KDJ.Lookback, o.KDJ.M1, o.KDJ.M2)),
	}
	if len(r.Skipped) > 0 {
		msgs[0] += fmt.Sprintf("\n⚠️ %d of %d coin(s) skipped\n", len(r.Skipped), r.Scanned)
	}
	return msgs
}

func scanMessage(title, lead string, symbols []string, empty string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(title)))
	if len(symbols) == 0 {
		b.WriteString(empty + "\n")
		return b.String()
	}
	b.WriteString(html.EscapeString(lead) + "\n\n")
	for _, s := range symbols {
		b.WriteString(html.EscapeString(s) + "\n")
	}
	return b.String()
}

func formatTrades(trades []model.Trade) string {
	var b strings.Builder
	start := 0
	if len(trades) > maxTradesPerJob {
		start = len(trades) - maxTradesPerJob
		b.WriteString(fmt.Sprintf("    … %d earlier\n", start))
	}
	for _, t := range trades[start:] {
		b.WriteString(fmt.Sprintf("    %s %s %.4g → %s %.4g = %+.2f\n",
			t.Direction, t.EntryTime.UTC().Format("01-02 15:04"), t.EntryPrice,
			t.ExitTime.UTC().Format("01-02 15:04"), t.ExitPrice, t.Profit))
	}
	return b.String()
}

// FormatStatus formats the last run for /status.
func FormatStatus(info *state.RunInfo) string {
	if info == nil {
		return "📦 no run recorded yet"
	}
	var b strings.Builder
	b.WriteString("📦 <b>Last run</b>\n\n")
	b.WriteString(fmt.Sprintf("run: %s\n", html.EscapeString(info.RunID)))
	b.WriteString(fmt.Sprintf("at: %s\n", info.At.UTC().Format(stampLayout)))
	b.WriteString(fmt.Sprintf("jobs: %d (%d skipped)\n", info.Jobs, info.Skipped))
	b.WriteString(fmt.Sprintf("trades: %d (%d new)\n", info.Trades, info.NewTrades))
	b.WriteString(fmt.Sprintf("win rate: %.1f%%\n", info.WinRate*100))
	b.WriteString(fmt.Sprintf("pnl: %+.2f\n", info.TotalProfit))
	return b.String()
}

// FormatHistory lists recorded runs, newest first.
func FormatHistory(runs []recorder.RunRow) string {
	if len(runs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n🗂 <b>History</b>\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s %s: %d recent of %d trades, win %.0f%%, pnl %+.2f\n",
			r.At().Format(stampLayout), html.EscapeString(r.Rule), r.Trades, r.Simulated, r.WinRate*100, r.TotalProfit))
	}
	return b.String()
}

func trendIcon(t model.Trend) string {
	switch t {
	case model.Uptrend:
		return "🟢UP"
	case model.Downtrend:
		return "🔴DOWN"
	case model.TrendEnd:
		return "⚪END"
	default:
		return "·"
	}
}

func formatWindow(w time.Duration) string {
	if w <= 0 {
		return "all"
	}
	if w%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", w/(24*time.Hour))
	}
	return w.String()
}
