package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"TrendSentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchBars returns up to limit of the newest bars, oldest first.
	FetchBars(ctx context.Context, symbol, interval string, limit int) ([]model.OHLCV, error)
	Name() string
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// intervalDuration parses the interval notation shared by the fetchers
// (15m, 1h, 4h, 6h, 12h, 1d, 1w).
func intervalDuration(interval string) (time.Duration, bool) {
	switch interval {
	case "1w":
		return 7 * 24 * time.Hour, true
	case "1d":
		return 24 * time.Hour, true
	}
	d, err := time.ParseDuration(interval)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// resample merges consecutive bars into buckets of the given width. Widths
// dividing a day align to UTC midnight. A bucket opens at its first bar's
// open and closes at its last bar's close.
func resample(bars []model.OHLCV, width time.Duration) []model.OHLCV {
	if len(bars) == 0 {
		return nil
	}
	var out []model.OHLCV
	var cur model.OHLCV
	var curKey time.Time
	started := false

	for _, b := range bars {
		key := b.Time.Truncate(width)
		if !started {
			cur, curKey, started = b, key, true
			cur.Time = key
			continue
		}
		if !key.Equal(curKey) {
			out = append(out, cur)
			cur, curKey = b, key
			cur.Time = key
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	return append(out, cur)
}

func tail(bars []model.OHLCV, limit int) []model.OHLCV {
	if limit > 0 && len(bars) > limit {
		return bars[len(bars)-limit:]
	}
	return bars
}
