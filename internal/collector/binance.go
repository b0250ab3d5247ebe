package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"TrendSentinel/internal/model"
)

const (
	// DefaultBinanceURL is the public spot market endpoint.
	DefaultBinanceURL = "https://api.binance.com"
	// binancePageLimit is the maximum number of klines per request.
	binancePageLimit = 1000
)

// BinanceFetcher implements Fetcher using the Binance klines REST API.
// Any exchange exposing the same /api/v3/klines shape works.
type BinanceFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	// ClosedOnly drops the still-forming newest candle.
	ClosedOnly bool

	now func() time.Time
}

// NewBinanceFetcher creates a new fetcher with optional proxy support.
func NewBinanceFetcher(baseURL, apiKey, proxyURL string) *BinanceFetcher {
	if baseURL == "" {
		baseURL = DefaultBinanceURL
	}
	return &BinanceFetcher{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Client:     newHTTPClient(proxyURL),
		ClosedOnly: true,
		now:        time.Now,
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// FetchBars pages backwards from the newest kline until limit bars are
// collected or the exchange runs out of history.
func (f *BinanceFetcher) FetchBars(ctx context.Context, symbol, interval string, limit int) ([]model.OHLCV, error) {
	if limit <= 0 {
		return nil, errors.Errorf("binance: invalid limit %d", limit)
	}
	want := limit
	if f.ClosedOnly {
		want++
	}

	var bars []model.OHLCV
	var endTime int64
	for len(bars) < want {
		page := want - len(bars)
		if page > binancePageLimit {
			page = binancePageLimit
		}
		chunk, err := f.fetchPage(ctx, symbol, interval, page, endTime)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		bars = append(chunk, bars...)
		endTime = chunk[0].Time.UnixMilli() - 1
		if len(chunk) < page {
			break
		}
	}

	if f.ClosedOnly && len(bars) > 0 && !f.closed(bars[len(bars)-1], interval) {
		bars = bars[:len(bars)-1]
	}
	return tail(bars, limit), nil
}

// closed reports whether the candle's period has ended. Unknown intervals
// count as still open.
func (f *BinanceFetcher) closed(b model.OHLCV, interval string) bool {
	d, ok := intervalDuration(interval)
	return ok && !b.Time.Add(d).After(f.now())
}

func (f *BinanceFetcher) fetchPage(ctx context.Context, symbol, interval string, limit int, endTime int64) ([]model.OHLCV, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	if endTime > 0 {
		q.Set("endTime", strconv.FormatInt(endTime, 10))
	}
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("X-MBX-APIKEY", f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "binance fetch klines")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("binance fetch klines: status %d, body: %s", resp.StatusCode, string(body))
	}

	var rows [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, errors.Wrap(err, "binance decode klines")
	}
	bars := make([]model.OHLCV, 0, len(rows))
	for i, row := range rows {
		bar, err := parseKline(row)
		if err != nil {
			return nil, errors.Wrapf(err, "binance kline %d", i)
		}
		bars = append(bars, bar)
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// parseKline decodes [openTime, "open", "high", "low", "close", "volume", ...].
func parseKline(row []json.RawMessage) (model.OHLCV, error) {
	if len(row) < 6 {
		return model.OHLCV{}, errors.Errorf("expected at least 6 fields, got %d", len(row))
	}
	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return model.OHLCV{}, errors.Wrap(err, "open time")
	}
	var vals [5]float64
	for k := range vals {
		var s string
		if err := json.Unmarshal(row[k+1], &s); err != nil {
			return model.OHLCV{}, errors.Wrapf(err, "field %d", k+1)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.OHLCV{}, errors.Wrapf(err, "field %d", k+1)
		}
		vals[k] = v
	}
	return model.OHLCV{
		Time:   time.UnixMilli(openTime).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
