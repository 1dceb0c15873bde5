package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		period int
		want   []float64
	}{
		{
			name:   "basic window",
			values: []float64{1, 2, 3, 4, 5},
			period: 3,
			want:   []float64{math.NaN(), math.NaN(), 2, 3, 4},
		},
		{
			name:   "window longer than series",
			values: []float64{1, 2},
			period: 5,
			want:   []float64{math.NaN(), math.NaN()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SMA(tt.values, tt.period)
			assertSeries(t, tt.want, got)
		})
	}
}

func TestEMA(t *testing.T) {
	// alpha = 2/(3+1) = 0.5, seeded with the first value
	got := EMA([]float64{1, 2, 3}, 3)
	assert.InDelta(t, 1.0, got[0], 1e-9)
	assert.InDelta(t, 1.5, got[1], 1e-9)
	assert.InDelta(t, 2.25, got[2], 1e-9)
}

func TestRSI(t *testing.T) {
	t.Run("warmup is NaN", func(t *testing.T) {
		got := RSI([]float64{1, 2, 3, 4, 5}, 3)
		assert.True(t, math.IsNaN(got[0]))
		assert.True(t, math.IsNaN(got[1]))
		assert.True(t, math.IsNaN(got[2]))
	})

	t.Run("all gains saturates at 100", func(t *testing.T) {
		got := RSI([]float64{1, 2, 3, 4, 5, 6}, 3)
		assert.InDelta(t, 100.0, got[5], 1e-9)
	})

	t.Run("all losses saturates at 0", func(t *testing.T) {
		got := RSI([]float64{6, 5, 4, 3, 2, 1}, 3)
		assert.InDelta(t, 0.0, got[5], 1e-9)
	})
}

func TestMACD(t *testing.T) {
	// A constant series has identical EMAs at every speed.
	values := []float64{5, 5, 5, 5, 5, 5}
	line, sig, hist := MACD(values, 2, 4, 3)
	for i := range values {
		assert.InDelta(t, 0.0, line[i], 1e-9)
		assert.InDelta(t, 0.0, sig[i], 1e-9)
		assert.InDelta(t, 0.0, hist[i], 1e-9)
	}
}

func TestBBands(t *testing.T) {
	values := []float64{1, 2, 3}
	upper, middle, lower := BBands(values, 3, 2.0)

	assert.True(t, math.IsNaN(middle[1]))
	assert.InDelta(t, 2.0, middle[2], 1e-9)
	// sample std of {1,2,3} is 1
	assert.InDelta(t, 4.0, upper[2], 1e-9)
	assert.InDelta(t, 0.0, lower[2], 1e-9)
}

func TestStoch(t *testing.T) {
	high := []float64{10, 10, 10}
	low := []float64{0, 0, 0}
	close := []float64{5, 10, 0}

	k, d := Stoch(high, low, close, 2, 1, 1)
	assert.True(t, math.IsNaN(k[0]))
	assert.InDelta(t, 100.0, k[1], 1e-9)
	assert.InDelta(t, 0.0, k[2], 1e-9)
	assert.InDelta(t, 100.0, d[1], 1e-9)
}

func TestATR(t *testing.T) {
	high := []float64{12, 12, 12}
	low := []float64{10, 10, 10}
	close := []float64{11, 11, 11}

	got := ATR(high, low, close, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, 2.0, got[1], 1e-9)
	assert.InDelta(t, 2.0, got[2], 1e-9)
}

func TestROC(t *testing.T) {
	got := ROC([]float64{100, 110, 121}, 1)
	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, 10.0, got[1], 1e-9)
	assert.InDelta(t, 10.0, got[2], 1e-9)
}

func TestADX(t *testing.T) {
	// Steady uptrend: +DI should dominate once past warmup.
	high := []float64{10, 11, 12, 13, 14, 15, 16, 17}
	low := []float64{9, 10, 11, 12, 13, 14, 15, 16}
	close := []float64{9.5, 10.5, 11.5, 12.5, 13.5, 14.5, 15.5, 16.5}

	adx, plusDI, minusDI := ADX(high, low, close, 2)
	last := len(close) - 1
	assert.Greater(t, plusDI[last], minusDI[last])
	assert.False(t, math.IsNaN(adx[last]))
}

func TestVWAP(t *testing.T) {
	high := []float64{12, 20}
	low := []float64{8, 16}
	close := []float64{10, 18}
	volume := []float64{100, 100}

	got := VWAP(high, low, close, volume)
	assert.InDelta(t, 10.0, got[0], 1e-9)
	assert.InDelta(t, 14.0, got[1], 1e-9)
}

func TestRollingExtremes(t *testing.T) {
	values := []float64{3, 1, 4, 1, 5}

	max := RollingMax(values, 2)
	min := RollingMin(values, 2)

	assert.True(t, math.IsNaN(max[0]))
	assert.InDelta(t, 3.0, max[1], 1e-9)
	assert.InDelta(t, 4.0, max[2], 1e-9)
	assert.InDelta(t, 1.0, min[1], 1e-9)
	assert.InDelta(t, 1.0, min[3], 1e-9)
	assert.InDelta(t, 1.0, min[4], 1e-9)
}

func TestRollingStd(t *testing.T) {
	got := RollingStd([]float64{1, 2, 3, 4}, 3)
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 1.0, got[2], 1e-9)
	assert.InDelta(t, 1.0, got[3], 1e-9)
}

func assertSeries(t *testing.T, want, got []float64) {
	t.Helper()
	assert.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: expected NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}
