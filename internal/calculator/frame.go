package calculator

import (
	"fmt"
	"math"
	"sort"

	"TrendSentinel/internal/model"
)

// Column names shared by the pipeline and the classifiers.
const (
	ColClose     = "CLOSE"
	ColK         = "K"
	ColD         = "D"
	ColJ         = "J"
	ColSAR       = "SAR"
	ColBollUpper = "BOLL_UP"
	ColBollLower = "BOLL_LO"
)

// EMAName is the column name of an EMA with the given span.
func EMAName(span int) string {
	return fmt.Sprintf("EMA%d", span)
}

func MAName(window int) string {
	return fmt.Sprintf("MA%d", window)
}

func RSIName(period int) string {
	return fmt.Sprintf("RSI%d", period)
}

func WRName(period int) string {
	return fmt.Sprintf("WR%d", period)
}

// Frame holds every indicator column computed over one series.
type Frame struct {
	Bars []model.OHLCV
	cols map[string][]float64
}

// NewFrame creates an empty frame over bars with the close column set.
func NewFrame(bars []model.OHLCV) *Frame {
	f := &Frame{Bars: bars, cols: make(map[string][]float64)}
	f.Set(ColClose, extractCloses(bars))
	return f
}

// Len returns the number of bars.
func (f *Frame) Len() int { return len(f.Bars) }

// Set stores a column. It panics if the length does not match the bars.
func (f *Frame) Set(name string, values []float64) {
	if len(values) != len(f.Bars) {
		panic(fmt.Sprintf("calculator: column %s has %d values, want %d", name, len(values), len(f.Bars)))
	}
	f.cols[name] = values
}

// Column returns the named column, or nil.
func (f *Frame) Column(name string) []float64 { return f.cols[name] }

// At returns the value of name at bar i. Unknown columns and out-of-range
// indices are NaN.
func (f *Frame) At(name string, i int) float64 {
	col, ok := f.cols[name]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Names lists the column names in sorted order.
func (f *Frame) Names() []string {
	names := make([]string, 0, len(f.cols))
	for n := range f.cols {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Vector snapshots every column at bar i.
func (f *Frame) Vector(i int) model.IndicatorVector {
	v := make(model.IndicatorVector, len(f.cols))
	for n := range f.cols {
		v[n] = f.At(n, i)
	}
	return v
}

// Pick snapshots only the given columns at bar i.
func (f *Frame) Pick(i int, names ...string) model.IndicatorVector {
	v := make(model.IndicatorVector, len(names))
	for _, n := range names {
		v[n] = f.At(n, i)
	}
	return v
}

// Warmup returns the first index at which every column is defined, or Len()
// if some column never becomes defined.
func (f *Frame) Warmup() int {
	warmup := 0
	for _, col := range f.cols {
		first := len(col)
		for i, v := range col {
			if !math.IsNaN(v) {
				first = i
				break
			}
		}
		if first > warmup {
			warmup = first
		}
	}
	return warmup
}
