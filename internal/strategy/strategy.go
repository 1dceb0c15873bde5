// Package strategy contains the trading decision rules consulted by the
// backtest engine. Every strategy receives the bar history visible up to
// the current bar and must return a hold verdict rather than an error
// whenever its inputs are not yet computable.
package strategy

import (
	"fmt"
	"math"
	"sort"

	"github.com/Enzooo97/ai-trading-bot/internal/backtest"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
)

// Registry maps strategy names to ready-to-run instances.
type Registry struct {
	byName map[string]backtest.Strategy
	names  []string
}

func NewRegistry(strategies ...backtest.Strategy) *Registry {
	r := &Registry{byName: make(map[string]backtest.Strategy, len(strategies))}
	for _, s := range strategies {
		if _, exists := r.byName[s.Name()]; exists {
			continue
		}
		r.byName[s.Name()] = s
		r.names = append(r.names, s.Name())
	}
	sort.Strings(r.names)
	return r
}

func (r *Registry) Get(name string) (backtest.Strategy, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q, available: %v", name, r.names)
	}
	return s, nil
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// series splits a bar slice into the parallel arrays the indicator
// functions operate on.
func series(bars []dto.Bar) (open, high, low, close, volume []float64) {
	open = make([]float64, len(bars))
	high = make([]float64, len(bars))
	low = make([]float64, len(bars))
	close = make([]float64, len(bars))
	volume = make([]float64, len(bars))
	for i, b := range bars {
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		close[i] = b.Close
		volume[i] = b.Volume
	}
	return open, high, low, close, volume
}

func countTrue(conds ...bool) int {
	n := 0
	for _, c := range conds {
		if c {
			n++
		}
	}
	return n
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// unrealizedPct is the open position's return at the given price, signed
// so a profitable short is positive.
func unrealizedPct(pos dto.PositionInfo, price float64) float64 {
	if pos.AvgEntryPrice == 0 {
		return 0
	}
	if pos.Side == dto.SideShort {
		return (pos.AvgEntryPrice - price) / pos.AvgEntryPrice
	}
	return (price - pos.AvgEntryPrice) / pos.AvgEntryPrice
}

// volumeRatio compares the latest bar's volume against its rolling
// average. Returns 1 when the average is not computable.
func volumeRatio(volume, volumeSMA []float64, i int) float64 {
	if i >= len(volumeSMA) {
		return 1
	}
	avg := volumeSMA[i]
	if math.IsNaN(avg) || avg == 0 {
		return 1
	}
	return volume[i] / avg
}

// atrPct expresses the ATR as a percentage of price, the volatility
// gate every strategy filters on.
func atrPct(atr []float64, price float64, i int) float64 {
	if math.IsNaN(atr[i]) || price == 0 {
		return math.NaN()
	}
	return atr[i] / price * 100
}
