package collector

import (
	"context"
	"math"
	"time"

	"TrendSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	// Bars, keyed by SYMBOL@interval, overrides the generated series.
	Bars map[string][]model.OHLCV
	// Err, when set, is returned for every fetch.
	Err error
	// End is the open time of the newest generated bar. Zero means now.
	End time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(ctx context.Context, symbol, interval string, limit int) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[model.JobKey(symbol, interval)]; ok {
		return tail(bars, limit), nil
	}
	step, ok := intervalDuration(interval)
	if !ok {
		step = 24 * time.Hour
	}
	end := m.End
	if end.IsZero() {
		end = time.Now().UTC().Truncate(step)
	}
	return generateMockBars(m.Price, limit, end, step), nil
}

// generateMockBars draws a slow sine wave around basePrice.
func generateMockBars(basePrice float64, count int, end time.Time, step time.Duration) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.1*math.Sin(float64(i)/25) + float64(i-count/2)*0.0005)
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
