package model

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series holds the candles of one symbol/interval pair, oldest first.
type Series struct {
	Symbol    string
	Interval  string
	Bars      []OHLCV
	FetchedAt time.Time
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.Bars) }

// Closes extracts the close column.
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the newest bar. The series must not be empty.
func (s *Series) Last() OHLCV { return s.Bars[len(s.Bars)-1] }

// Key identifies the series in logs, state and storage.
func (s *Series) Key() string { return JobKey(s.Symbol, s.Interval) }

// JobKey builds the "SYMBOL@interval" identifier.
func JobKey(symbol, interval string) string { return symbol + "@" + interval }

// Validate checks ordering and value sanity. Gaps are allowed.
func (s *Series) Validate() error {
	for i, b := range s.Bars {
		for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Errorf("bar %d: non-finite value", i)
			}
		}
		if b.Close <= 0 {
			return errors.Errorf("bar %d: close must be positive, got %v", i, b.Close)
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			return errors.Errorf("bar %d: timestamp %s not after %s", i, b.Time, s.Bars[i-1].Time)
		}
	}
	return nil
}
