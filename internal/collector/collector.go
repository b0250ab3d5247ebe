package collector

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"TrendSentinel/internal/model"
	"TrendSentinel/pkg/logger"
)

// ErrNoData is returned when an upstream answers without any bars.
var ErrNoData = errors.New("no data returned")

// Collector fetches a series and normalizes it for the engine.
type Collector struct {
	Fetcher Fetcher
	// Limit is the number of bars requested per series.
	Limit int
	// Timeout bounds a single fetch; zero leaves the caller's context alone.
	Timeout time.Duration
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, limit int, timeout time.Duration) *Collector {
	return &Collector{Fetcher: fetcher, Limit: limit, Timeout: timeout}
}

// Collect fetches the bars of one symbol/interval, sorts them, drops
// duplicate timestamps and validates the result.
func (c *Collector) Collect(ctx context.Context, symbol, interval string) (*model.Series, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	bars, err := c.Fetcher.FetchBars(ctx, symbol, interval, c.Limit)
	if err != nil {
		return nil, errors.Wrapf(err, "%s fetch %s", c.Fetcher.Name(), model.JobKey(symbol, interval))
	}
	if len(bars) == 0 {
		return nil, errors.Wrapf(ErrNoData, "%s fetch %s", c.Fetcher.Name(), model.JobKey(symbol, interval))
	}

	bars = normalize(bars)
	s := &model.Series{Symbol: symbol, Interval: interval, Bars: bars, FetchedAt: time.Now().UTC()}
	if err := s.Validate(); err != nil {
		return nil, errors.Wrapf(err, "validate %s", s.Key())
	}
	logger.Debug("collected %d bars for %s via %s", len(bars), s.Key(), c.Fetcher.Name())
	return s, nil
}

// normalize sorts bars by time and keeps the last bar of each duplicated
// timestamp.
func normalize(bars []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	n := 0
	for i, b := range out {
		if i > 0 && b.Time.Equal(out[n-1].Time) {
			out[n-1] = b
			continue
		}
		out[n] = b
		n++
	}
	return out[:n]
}
