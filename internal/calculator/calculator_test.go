package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/model"
)

// wavyBars builds a deterministic series with a drift and two overlapping cycles.
func wavyBars(n int) []model.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := 0; i < n; i++ {
		p := 100 + 0.05*float64(i) + 8*math.Sin(float64(i)/7) + 3*math.Cos(float64(i)/3)
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * 4 * time.Hour),
			Open:   p - 0.4,
			High:   p + 1.1 + 0.3*math.Sin(float64(i)),
			Low:    p - 1.2,
			Close:  p,
			Volume: 1000,
		}
	}
	return bars
}

func flatBars(n int, price float64) []model.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{Time: start.Add(time.Duration(i) * time.Hour), Open: price, High: price, Low: price, Close: price}
	}
	return bars
}

func TestEMA_Recurrence(t *testing.T) {
	got := EMA([]float64{1, 2, 3}, 3) // alpha = 0.5
	assert.Equal(t, []float64{1, 1.5, 2.25}, got)
}

func TestEMA_ConstantInput(t *testing.T) {
	for _, v := range []float64{0.1, 42.5, 99999} {
		values := make([]float64, 500)
		for i := range values {
			values[i] = v
		}
		got := EMA(values, 200)
		assert.Equal(t, v, got[0])
		assert.InDelta(t, v, got[len(got)-1], 1e-9)
	}
}

func TestEMA_ConvergesAfterStep(t *testing.T) {
	values := make([]float64, 400)
	for i := range values {
		values[i] = 50
	}
	values[0] = 10
	got := EMA(values, 21)
	assert.Equal(t, 10.0, got[0])
	assert.Less(t, math.Abs(got[50]-50), math.Abs(got[10]-50))
	assert.InDelta(t, 50, got[399], 1e-6)
}

func TestSMA_MatchesTalib(t *testing.T) {
	closes := extractCloses(wavyBars(300))
	for _, w := range []int{5, 50, 200} {
		got := SMA(closes, w)
		want := talib.Sma(closes, w)
		for i := range closes {
			if i < w-1 {
				assert.True(t, math.IsNaN(got[i]), "SMA(%d)[%d] should be undefined", w, i)
				continue
			}
			assert.InDelta(t, want[i], got[i], 1e-9, "SMA(%d)[%d]", w, i)
		}
	}
}

func TestSMA_InvalidWindow(t *testing.T) {
	got := SMA([]float64{1, 2, 3}, 0)
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}
}

func TestRSI_Bounded(t *testing.T) {
	closes := extractCloses(wavyBars(400))
	for _, mode := range []RSIMode{RSISimple, RSIExponential} {
		for _, p := range []int{6, 14, 24} {
			got := RSI(closes, p, mode)
			for i, v := range got {
				if i < p {
					assert.True(t, math.IsNaN(v), "%s RSI(%d)[%d] should be undefined", mode, p, i)
					continue
				}
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 100.0)
			}
		}
	}
}

func TestRSI_DegenerateInputs(t *testing.T) {
	rising := make([]float64, 30)
	flat := make([]float64, 30)
	for i := range rising {
		rising[i] = 100 + float64(i)
		flat[i] = 100
	}
	for _, mode := range []RSIMode{RSISimple, RSIExponential} {
		up := RSI(rising, 14, mode)
		assert.InDelta(t, 100, up[29], 1e-6, "all gains tends to 100 (%s)", mode)
		assert.False(t, math.IsInf(up[29], 0))

		fl := RSI(flat, 14, mode)
		assert.Equal(t, 50.0, fl[29], "no movement is neutral (%s)", mode)
	}
}

func TestRSI_SimpleWindow(t *testing.T) {
	// deltas: +2, -1, +3 -> gain avg 5/3, loss avg 1/3, RS 5
	got := RSI([]float64{10, 12, 11, 14}, 3, RSISimple)
	assert.InDelta(t, 100-100.0/6, got[3], 1e-12)
}

func TestKDJ_Properties(t *testing.T) {
	bars := wavyBars(200)
	k, d, j := KDJ(bars, 9, 3, 3)
	for i := range bars {
		if i < 8 {
			assert.True(t, math.IsNaN(k[i]))
			continue
		}
		assert.InDelta(t, 3*k[i]-2*d[i], j[i], 1e-9)
		assert.GreaterOrEqual(t, k[i], 0.0)
		assert.LessOrEqual(t, k[i], 100.0)
	}

	fk, fd, fj := KDJ(flatBars(50, 10), 9, 3, 3)
	assert.Equal(t, 50.0, fk[49])
	assert.Equal(t, 50.0, fd[49])
	assert.Equal(t, 50.0, fj[49])
}

func TestWilliamsR_MatchesTalib(t *testing.T) {
	bars := wavyBars(250)
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := extractCloses(bars)
	for i, b := range bars {
		highs[i], lows[i] = b.High, b.Low
	}
	for _, p := range []int{6, 14, 21} {
		neg := WilliamsR(bars, p, WRNegative)
		pos := WilliamsR(bars, p, WRPositive)
		want := talib.WillR(highs, lows, closes, p)
		for i := p - 1; i < len(bars); i++ {
			assert.InDelta(t, want[i], neg[i], 1e-9, "WR(%d)[%d]", p, i)
			assert.InDelta(t, neg[i]+100, pos[i], 1e-9)
			assert.LessOrEqual(t, neg[i], 0.0)
			assert.GreaterOrEqual(t, neg[i], -100.0)
		}
		assert.True(t, math.IsNaN(neg[p-2]))
	}
}

func TestWilliamsR_ZeroRange(t *testing.T) {
	got := WilliamsR(flatBars(20, 5), 10, WRNegative)
	assert.Equal(t, -50.0, got[19])
	got = WilliamsR(flatBars(20, 5), 10, WRPositive)
	assert.Equal(t, 50.0, got[19])
}

func TestOverlays_WarmupMasked(t *testing.T) {
	bars := wavyBars(100)
	sar := ParabolicSAR(bars, 0.02, 0.2)
	assert.True(t, math.IsNaN(sar[0]))
	assert.False(t, math.IsNaN(sar[1]))

	up, lo := Bollinger(extractCloses(bars), 20, 2)
	assert.True(t, math.IsNaN(up[18]))
	for i := 19; i < len(bars); i++ {
		assert.GreaterOrEqual(t, up[i], lo[i])
	}

	up, lo = Bollinger([]float64{1, 2}, 20, 2)
	assert.True(t, math.IsNaN(up[1]))
	assert.True(t, math.IsNaN(lo[1]))
}

func TestPipeline_Causal(t *testing.T) {
	bars := wavyBars(320)
	p := NewPipeline(DefaultParams())
	full := p.Compute(bars)

	for _, cut := range []int{30, 201, 260} {
		prefix := p.Compute(bars[:cut])
		require.Equal(t, full.Names(), prefix.Names())
		for _, name := range prefix.Names() {
			for i := 0; i < cut; i++ {
				a, b := prefix.At(name, i), full.At(name, i)
				if math.IsNaN(a) || math.IsNaN(b) {
					assert.True(t, math.IsNaN(a) && math.IsNaN(b), "%s[%d] definedness differs at cut %d", name, i, cut)
					continue
				}
				assert.InDelta(t, b, a, 1e-9, "%s[%d] changed when bars were appended (cut %d)", name, i, cut)
			}
		}
	}
}

func TestFrame_AccessorsAndWarmup(t *testing.T) {
	f := NewPipeline(DefaultParams()).Compute(wavyBars(260))
	assert.Equal(t, 260, f.Len())
	assert.Equal(t, 199, f.Warmup())
	assert.True(t, math.IsNaN(f.At("EMA999", 10)))
	assert.True(t, math.IsNaN(f.At(ColClose, -1)))
	assert.True(t, math.IsNaN(f.At(ColClose, 260)))

	v := f.Vector(250)
	assert.True(t, v.Defined(EMAName(8), MAName(200), RSIName(6), WRName(21), ColK, ColSAR, ColBollUpper))
	assert.False(t, f.Vector(10).Defined(MAName(200)))

	picked := f.Pick(250, ColClose, ColJ)
	assert.Len(t, picked, 2)
	assert.Equal(t, f.Bars[250].Close, picked[ColClose])

	assert.Panics(t, func() { f.Set("BAD", []float64{1}) })
}

func TestParams_ColumnsMatchCompute(t *testing.T) {
	p := DefaultParams()
	f := NewPipeline(p).Compute(wavyBars(60))
	assert.ElementsMatch(t, f.Names(), p.Columns())

	p.SAR = SARParams{}
	p.KDJ = KDJParams{}
	assert.NotContains(t, p.Columns(), ColSAR)
	assert.NotContains(t, p.Columns(), ColK)
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.EMASpans = []int{8, 0}
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.RSIMode = "wilder"
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.KDJ.M2 = 0
	assert.Error(t, p.Validate())
}
