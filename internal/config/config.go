package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"TrendSentinel/internal/backtest"
	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/scanner"
	"TrendSentinel/internal/strategy"
)

// Job is one cron entry; it runs a batch over the listed intervals, or over
// every configured interval when Intervals is empty.
type Job struct {
	Cron      string   `yaml:"cron"`
	Intervals []string `yaml:"intervals"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider  string        `yaml:"provider"`
		BaseURL   string        `yaml:"base_url"`
		APIKey    string        `yaml:"api_key"`
		Symbols   []string      `yaml:"symbols"`
		Intervals []string      `yaml:"intervals"`
		Limit     int           `yaml:"limit"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"data_source"`
	Schedule struct {
		Jobs       []Job `yaml:"jobs"`
		RunOnStart bool  `yaml:"run_on_start"`
	} `yaml:"schedule"`
	// Scan is the indicator alert scan over the same symbols.
	Scan struct {
		Enabled         bool   `yaml:"enabled"`
		Cron            string `yaml:"cron"`
		scanner.Options `yaml:",inline"`
	} `yaml:"scan"`
	Runner struct {
		Concurrency   int           `yaml:"concurrency"`
		RecencyWindow time.Duration `yaml:"recency_window"`
	} `yaml:"runner"`
	Indicators calculator.Params `yaml:"indicators"`
	Strategy   strategy.Options  `yaml:"strategy"`
	Backtest   backtest.Options  `yaml:"backtest"`
	State      struct {
		File string `yaml:"file"`
	} `yaml:"state"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Debug bool `yaml:"debug"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Indicators: calculator.DefaultParams(),
		Strategy:   strategy.DefaultOptions(),
		Backtest:   backtest.DefaultOptions(),
	}
	cfg.Scan.Options = scanner.DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "read config")
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LEVERAGE"); v != "" {
		var leverage float64
		if _, err := fmt.Sscanf(v, "%f", &leverage); err == nil {
			cfg.Backtest.Leverage = leverage
		}
	}
	if v := os.Getenv("RULE"); v != "" {
		cfg.Strategy.Rule = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.DataSource.Symbols = splitList(v)
	}

	// Defaults
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "binance"
	}
	if len(cfg.DataSource.Symbols) == 0 {
		cfg.DataSource.Symbols = DefaultSymbols()
	}
	if len(cfg.DataSource.Intervals) == 0 {
		cfg.DataSource.Intervals = []string{"4h", "6h", "12h"}
	}
	if cfg.DataSource.Limit == 0 {
		cfg.DataSource.Limit = 500
	}
	if cfg.DataSource.Timeout == 0 {
		cfg.DataSource.Timeout = 30 * time.Second
	}
	if len(cfg.Schedule.Jobs) == 0 {
		cfg.Schedule.Jobs = []Job{{Cron: "0 5 0 * * *"}}
	}
	if cfg.Runner.Concurrency == 0 {
		cfg.Runner.Concurrency = 4
	}
	if cfg.Runner.RecencyWindow == 0 {
		cfg.Runner.RecencyWindow = 96 * time.Hour
	}
	if cfg.Scan.Cron == "" {
		cfg.Scan.Cron = "0 2 0,12 * * *"
	}
	if cfg.State.File == "" {
		cfg.State.File = "data/state.json"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/trend_sentinel.db"
	}

	return cfg, nil
}

// DefaultSymbols is the USDT basket watched when none is configured.
func DefaultSymbols() []string {
	return []string{
		"XRPUSDT", "XMRUSDT", "GMXUSDT", "LUNAUSDT", "TRXUSDT", "EIGENUSDT", "APEUSDT",
		"WAVESUSDT", "PLUMEUSDT", "SUSHIUSDT", "DOGEUSDT", "VIRTUALUSDT", "CAKEUSDT", "GRASSUSDT",
		"AAVEUSDT", "SUIUSDT", "ARBUSDT", "XLMUSDT", "MNTUSDT", "LTCUSDT", "NEARUSDT",
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks that the engine can run with this configuration. Telegram
// settings are checked only when a bot token is present.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "binance", "yahoo", "mock":
	default:
		return errors.Errorf("data_source.provider %q is not one of binance, yahoo, mock", c.DataSource.Provider)
	}
	if len(c.DataSource.Symbols) == 0 {
		return errors.New("data_source.symbols is required")
	}
	if len(c.DataSource.Intervals) == 0 {
		return errors.New("data_source.intervals is required")
	}
	if c.DataSource.Limit < c.Backtest.Warmup {
		return errors.Errorf("data_source.limit %d is below the backtest warmup %d", c.DataSource.Limit, c.Backtest.Warmup)
	}
	if c.Runner.Concurrency < 1 {
		return errors.New("runner.concurrency must be at least 1")
	}
	if c.Runner.RecencyWindow < 0 {
		return errors.New("runner.recency_window must not be negative")
	}

	if err := c.Indicators.Validate(); err != nil {
		return errors.Wrap(err, "indicators")
	}
	if err := c.Backtest.Validate(); err != nil {
		return errors.Wrap(err, "backtest")
	}
	cl, err := strategy.New(c.Strategy)
	if err != nil {
		return errors.Wrap(err, "strategy")
	}
	if missing := strategy.Missing(cl, c.Indicators.Columns()); len(missing) > 0 {
		return errors.Errorf("strategy %s reads %v which the indicators section does not compute", cl.Name(), missing)
	}
	if aux := c.Backtest.AuxExit; aux.Enabled {
		if !contains(c.Indicators.Columns(), calculator.MAName(aux.MA)) || c.Indicators.SAR.Acceleration <= 0 {
			return errors.Errorf("backtest.aux_exit needs SAR and MA%d in the indicators section", aux.MA)
		}
	}

	for i, job := range c.Schedule.Jobs {
		if _, err := cronParser.Parse(job.Cron); err != nil {
			return errors.Wrapf(err, "schedule.jobs[%d].cron", i)
		}
		for _, iv := range job.Intervals {
			if !contains(c.DataSource.Intervals, iv) {
				return errors.Errorf("schedule.jobs[%d] interval %q is not in data_source.intervals", i, iv)
			}
		}
	}

	if c.Scan.Enabled {
		if _, err := cronParser.Parse(c.Scan.Cron); err != nil {
			return errors.Wrap(err, "scan.cron")
		}
		if err := c.Scan.Options.Validate(); err != nil {
			return errors.Wrap(err, "scan")
		}
	}

	if c.Telegram.BotToken != "" {
		if _, err := c.ChatID(); err != nil {
			return err
		}
	}
	return nil
}

// TelegramEnabled reports whether a bot token is configured.
func (c *Config) TelegramEnabled() bool { return c.Telegram.BotToken != "" }

// ChatID parses the numeric Telegram chat id.
func (c *Config) ChatID() (int64, error) {
	if c.Telegram.ChatID == "" {
		return 0, errors.New("telegram.chat_id is required")
	}
	id, err := strconv.ParseInt(c.Telegram.ChatID, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "telegram.chat_id %q", c.Telegram.ChatID)
	}
	return id, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
