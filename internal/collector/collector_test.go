package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/model"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// klineServer serves n hourly klines starting at t0, honoring limit and endTime.
func klineServer(t *testing.T, n int, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if r.URL.Path != "/api/v3/klines" || r.URL.Query().Get("symbol") == "" {
			http.Error(w, `{"code":-1100}`, http.StatusBadRequest)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		end := int64(1<<62 - 1)
		if s := r.URL.Query().Get("endTime"); s != "" {
			end, _ = strconv.ParseInt(s, 10, 64)
		}
		var rows [][]interface{}
		for i := 0; i < n; i++ {
			open := t0.Add(time.Duration(i) * time.Hour).UnixMilli()
			if open > end {
				break
			}
			p := 100 + float64(i%50)
			rows = append(rows, []interface{}{
				open,
				fmt.Sprintf("%.2f", p), fmt.Sprintf("%.2f", p+1), fmt.Sprintf("%.2f", p-1), fmt.Sprintf("%.2f", p+0.5),
				"12.5", open + 3599999, "1000", 10, "6", "600", "0",
			})
		}
		if len(rows) > limit {
			rows = rows[len(rows)-limit:]
		}
		_ = json.NewEncoder(w).Encode(rows)
	}))
}

func TestBinanceFetcher_Pages(t *testing.T) {
	calls := 0
	srv := klineServer(t, 1500, &calls)
	defer srv.Close()

	f := NewBinanceFetcher(srv.URL, "", "")
	f.ClosedOnly = false
	bars, err := f.FetchBars(context.Background(), "BTCUSDT", "1h", 1200)
	require.NoError(t, err)
	require.Len(t, bars, 1200)
	assert.Equal(t, 2, calls)
	assert.Equal(t, t0.Add(300*time.Hour), bars[0].Time)
	assert.Equal(t, t0.Add(1499*time.Hour), bars[len(bars)-1].Time)
	for i := 1; i < len(bars); i++ {
		require.True(t, bars[i].Time.After(bars[i-1].Time), "bar %d out of order", i)
	}
	assert.Equal(t, 149.5, bars[len(bars)-1].Close)
}

func TestBinanceFetcher_DropsFormingCandle(t *testing.T) {
	calls := 0
	srv := klineServer(t, 100, &calls)
	defer srv.Close()

	f := NewBinanceFetcher(srv.URL, "key", "")
	f.now = func() time.Time { return t0.Add(99*time.Hour + 30*time.Minute) }
	bars, err := f.FetchBars(context.Background(), "BTCUSDT", "1h", 10)
	require.NoError(t, err)
	require.Len(t, bars, 10)
	assert.Equal(t, t0.Add(98*time.Hour), bars[9].Time)

	f.now = func() time.Time { return t0.Add(101 * time.Hour) }
	bars, err = f.FetchBars(context.Background(), "BTCUSDT", "1h", 10)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(99*time.Hour), bars[9].Time)
}

func TestBinanceFetcher_Errors(t *testing.T) {
	calls := 0
	srv := klineServer(t, 10, &calls)
	defer srv.Close()

	f := NewBinanceFetcher(srv.URL, "", "")
	_, err := f.FetchBars(context.Background(), "", "1h", 10)
	assert.Error(t, err)
	_, err = f.FetchBars(context.Background(), "BTCUSDT", "1h", 0)
	assert.Error(t, err)
}

func TestParseKline(t *testing.T) {
	var row []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`[1704067200000,"42000.1","42500","41800.5","42100","123.4",1704070799999]`), &row))
	bar, err := parseKline(row)
	require.NoError(t, err)
	assert.Equal(t, t0, bar.Time)
	assert.Equal(t, 41800.5, bar.Low)
	assert.Equal(t, 123.4, bar.Volume)

	require.NoError(t, json.Unmarshal([]byte(`[1704067200000,"x","1","1","1","1"]`), &row))
	_, err = parseKline(row)
	assert.Error(t, err)
}

func TestYahooFetcher_Resamples(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/BTC-USD", r.URL.Path)
		assert.Equal(t, "60m", r.URL.Query().Get("interval"))
		ts := make([]int64, 8)
		for i := range ts {
			ts[i] = t0.Add(time.Duration(i) * time.Hour).Unix()
		}
		fmt.Fprintf(w, `{"chart":{"result":[{"timestamp":%s,"indicators":{"quote":[{
			"open":[10,11,12,13,null,15,16,17],
			"high":[10.5,13,12.5,13.5,null,15.5,16.5,20],
			"low":[9.5,10.5,11,12.5,null,14.5,15.5,16.5],
			"close":[10.2,11.2,12.2,13.2,null,15.2,16.2,17.2],
			"volume":[1,1,1,1,null,2,2,2]}]}}],"error":null}}`, mustJSON(t, ts))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchBars(context.Background(), "BTCUSDT", "4h", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, t0, bars[0].Time)
	assert.Equal(t, 10.0, bars[0].Open)
	assert.Equal(t, 13.5, bars[0].High)
	assert.Equal(t, 9.5, bars[0].Low)
	assert.Equal(t, 13.2, bars[0].Close)
	assert.Equal(t, 4.0, bars[0].Volume)

	// the null hour is skipped, so the second bucket opens at 05:00
	assert.Equal(t, t0.Add(4*time.Hour), bars[1].Time)
	assert.Equal(t, 15.0, bars[1].Open)
	assert.Equal(t, 20.0, bars[1].High)
	assert.Equal(t, 6.0, bars[1].Volume)
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	_, err := f.FetchBars(context.Background(), "NOPE", "1d", 10)
	assert.ErrorContains(t, err, "No data found")

	_, err = f.FetchBars(context.Background(), "NOPE", "3d", 10)
	assert.Error(t, err)
}

func TestYahooRange(t *testing.T) {
	day := 24 * time.Hour
	assert.Equal(t, "1mo", yahooRange(10*day, false))
	assert.Equal(t, "1y", yahooRange(300*day, false))
	assert.Equal(t, "2y", yahooRange(2000*day, true))
	assert.Equal(t, "10y", yahooRange(4000*day, false))
}

func TestCollector_Normalizes(t *testing.T) {
	bars := []model.OHLCV{
		{Time: t0.Add(2 * time.Hour), Close: 3},
		{Time: t0, Close: 1},
		{Time: t0.Add(time.Hour), Close: 2},
		{Time: t0.Add(time.Hour), Close: 2.5},
	}
	m := &MockFetcher{Bars: map[string][]model.OHLCV{"ETHUSDT@1h": bars}}
	s, err := NewCollector(m, 10, time.Second).Collect(context.Background(), "ETHUSDT", "1h")
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{1, 2.5, 3}, s.Closes())
	assert.Equal(t, "ETHUSDT@1h", s.Key())
}

func TestCollector_Errors(t *testing.T) {
	upstream := errors.New("connection reset")
	_, err := NewCollector(&MockFetcher{Err: upstream}, 10, 0).Collect(context.Background(), "BTCUSDT", "1d")
	assert.True(t, errors.Is(err, upstream))

	empty := &MockFetcher{Bars: map[string][]model.OHLCV{"BTCUSDT@1d": {}}}
	_, err = NewCollector(empty, 10, 0).Collect(context.Background(), "BTCUSDT", "1d")
	assert.True(t, errors.Is(err, ErrNoData))

	bad := &MockFetcher{Bars: map[string][]model.OHLCV{"BTCUSDT@1d": {{Time: t0, Close: -1}}}}
	_, err = NewCollector(bad, 10, 0).Collect(context.Background(), "BTCUSDT", "1d")
	assert.ErrorContains(t, err, "close must be positive")
}

func TestMockFetcher_Generates(t *testing.T) {
	m := &MockFetcher{Price: 3000, End: t0}
	bars, err := m.FetchBars(context.Background(), "ETHUSDT", "6h", 300)
	require.NoError(t, err)
	require.Len(t, bars, 300)
	assert.Equal(t, t0, bars[299].Time)
	assert.Equal(t, 6*time.Hour, bars[1].Time.Sub(bars[0].Time))
	s := &model.Series{Bars: bars}
	assert.NoError(t, s.Validate())
}

func TestResample_Empty(t *testing.T) {
	assert.Nil(t, resample(nil, time.Hour))
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
