// Package indicator provides slice-based technical indicator calculations.
// All functions return a slice aligned with the input; positions that fall
// inside an indicator's warm-up window hold NaN so callers can detect
// not-yet-meaningful values.
package indicator

import "math"

var nan = math.NaN()

// SMA computes a simple moving average over the given window.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < period-1 {
			out[i] = nan
			continue
		}
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// EMA computes an exponential moving average seeded with the first value.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI computes the relative strength index using simple moving averages of
// gains and losses.
func RSI(values []float64, period int) []float64 {
	n := len(values)
	gains := make([]float64, n)
	losses := make([]float64, n)
	if n > 0 {
		gains[0], losses[0] = nan, nan
	}
	for i := 1; i < n; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}
	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)

	out := make([]float64, n)
	for i := range out {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			out[i] = nan
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - (100 / (1 + rs))
	}
	return out
}

// MACD returns the MACD line, signal line and histogram.
func MACD(values []float64, fast, slow, signal int) (line, sig, hist []float64) {
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	line = make([]float64, len(values))
	for i := range line {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig = EMA(line, signal)
	hist = make([]float64, len(values))
	for i := range hist {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// BBands returns the upper, middle and lower Bollinger Bands.
func BBands(values []float64, period int, mult float64) (upper, middle, lower []float64) {
	middle = SMA(values, period)
	std := RollingStd(values, period)
	upper = make([]float64, len(values))
	lower = make([]float64, len(values))
	for i := range values {
		upper[i] = middle[i] + std[i]*mult
		lower[i] = middle[i] - std[i]*mult
	}
	return upper, middle, lower
}

// Stoch returns the smoothed stochastic oscillator %K and %D.
func Stoch(high, low, close []float64, k, d, smoothK int) (kOut, dOut []float64) {
	n := len(close)
	fastK := make([]float64, n)
	ll := RollingMin(low, k)
	hh := RollingMax(high, k)
	for i := 0; i < n; i++ {
		fastK[i] = 100 * (close[i] - ll[i]) / (hh[i] - ll[i])
	}
	kOut = SMA(fastK, smoothK)
	dOut = SMA(kOut, d)
	return kOut, dOut
}

// ATR computes the average true range.
func ATR(high, low, close []float64, period int) []float64 {
	return SMA(trueRange(high, low, close), period)
}

// ROC computes the rate of change in percent over the given lookback.
func ROC(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < period {
			out[i] = nan
			continue
		}
		out[i] = (values[i] - values[i-period]) / values[i-period] * 100
	}
	return out
}

// ADX returns the average directional index with its +DI and -DI components.
func ADX(high, low, close []float64, period int) (adx, plusDI, minusDI []float64) {
	n := len(close)
	tr := trueRange(high, low, close)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	trSmooth := SMA(tr, period)
	plusSmooth := SMA(plusDM, period)
	minusSmooth := SMA(minusDM, period)

	plusDI = make([]float64, n)
	minusDI = make([]float64, n)
	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		plusDI[i] = 100 * plusSmooth[i] / trSmooth[i]
		minusDI[i] = 100 * minusSmooth[i] / trSmooth[i]
		dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / (plusDI[i] + minusDI[i])
	}
	adx = SMA(dx, period)
	return adx, plusDI, minusDI
}

// VWAP computes the cumulative volume weighted average price from the
// start of the series using the typical price (H+L+C)/3.
func VWAP(high, low, close, volume []float64) []float64 {
	out := make([]float64, len(close))
	cumPV := 0.0
	cumVol := 0.0
	for i := range close {
		typical := (high[i] + low[i] + close[i]) / 3
		cumPV += typical * volume[i]
		cumVol += volume[i]
		out[i] = cumPV / cumVol
	}
	return out
}

// RollingStd computes the sample standard deviation over the given window.
func RollingStd(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < period-1 || period < 2 {
			out[i] = nan
			continue
		}
		mean := 0.0
		for j := i - period + 1; j <= i; j++ {
			mean += values[j]
		}
		mean /= float64(period)
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}
		out[i] = math.Sqrt(variance / float64(period-1))
	}
	return out
}

// RollingMax computes the maximum over the given window.
func RollingMax(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < period-1 {
			out[i] = nan
			continue
		}
		max := values[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if values[j] > max {
				max = values[j]
			}
		}
		out[i] = max
	}
	return out
}

// RollingMin computes the minimum over the given window.
func RollingMin(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < period-1 {
			out[i] = nan
			continue
		}
		min := values[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if values[j] < min {
				min = values[j]
			}
		}
		out[i] = min
	}
	return out
}

// trueRange uses only high-low on the first bar since there is no prior
// close to compare against.
func trueRange(high, low, close []float64) []float64 {
	n := len(close)
	tr := make([]float64, n)
	if n == 0 {
		return tr
	}
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}
