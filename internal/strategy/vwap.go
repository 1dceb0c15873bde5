package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/Enzooo97/ai-trading-bot/internal/backtest"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/internal/indicator"
)

// vwapBounce trades touches of the session VWAP in the direction of the
// prevailing side. Price hugging the VWAP from above with the short EMA
// in agreement is a long; the mirror case is a short.
type vwapBounce struct{}

func NewVWAPBounce() backtest.Strategy {
	return &vwapBounce{}
}

func (s *vwapBounce) Name() string      { return "vwap_bounce" }
func (s *vwapBounce) RequiredBars() int { return 50 }

func (s *vwapBounce) Analyze(_ context.Context, _ string, bars []dto.Bar, _ dto.AccountInfo, positions []dto.PositionInfo) (dto.Signal, error) {
	if len(bars) < s.RequiredBars() {
		return dto.HoldSignal("insufficient history"), nil
	}

	_, high, low, closes, volume := series(bars)
	i := len(bars) - 1

	vwap := indicator.VWAP(high, low, closes, volume)
	ema9 := indicator.EMA(closes, 9)
	ema21 := indicator.EMA(closes, 21)
	rollStd := indicator.RollingStd(closes, 20)
	atr := indicator.ATR(high, low, closes, 14)
	volSMA := indicator.SMA(volume, 20)

	if anyNaN(vwap[i], ema9[i], ema21[i], rollStd[i], atr[i]) || vwap[i] == 0 {
		return dto.HoldSignal("indicators warming up"), nil
	}

	dist := (closes[i] - vwap[i]) / vwap[i]
	vwapUpper := vwap[i] + rollStd[i]
	vwapLower := vwap[i] - rollStd[i]

	volRatio := volumeRatio(volume, volSMA, i)
	volatility := atrPct(atr, closes[i], i)

	if len(positions) > 0 {
		return s.checkExit(positions[0], closes[i], vwap[i]), nil
	}

	if volatility > 0.5 {
		return dto.HoldSignal(fmt.Sprintf("volatility too high (atr %.2f%%)", volatility)), nil
	}
	if volRatio < 1.2 {
		return dto.HoldSignal("volume below threshold"), nil
	}

	prevAbove := closes[i-1] > vwap[i-1]
	prevBelow := closes[i-1] < vwap[i-1]

	longVotes := countTrue(
		math.Abs(dist) < 0.002 && prevAbove && closes[i] >= vwap[i]*0.998,
		ema9[i] > vwap[i],
		volRatio > 1.5 || low[i] >= low[i-1]*0.999,
		closes[i] < vwapUpper,
	)
	shortVotes := countTrue(
		math.Abs(dist) < 0.002 && prevBelow && closes[i] <= vwap[i]*1.002,
		ema9[i] < vwap[i],
		volRatio > 1.5 || high[i] <= high[i-1]*1.001,
		closes[i] > vwapLower,
	)

	if longVotes >= 3 {
		strength := s.strength(dist, volRatio, ema9[i] > ema21[i], volatility)
		return dto.NewSignal(dto.ActionBuy, strength,
			fmt.Sprintf("vwap bounce from above (%d/4 conditions)", longVotes)), nil
	}
	if shortVotes >= 3 {
		strength := s.strength(dist, volRatio, ema9[i] < ema21[i], volatility)
		return dto.NewSignal(dto.ActionSell, strength,
			fmt.Sprintf("vwap rejection from below (%d/4 conditions)", shortVotes)), nil
	}

	return dto.HoldSignal("no vwap setup"), nil
}

func (s *vwapBounce) strength(dist, volRatio float64, emaTrendAligned bool, volatility float64) float64 {
	strength := 0.6

	switch {
	case math.Abs(dist) < 0.001:
		strength += 0.2
	case math.Abs(dist) < 0.002:
		strength += 0.1
	}

	switch {
	case volRatio > 2.0:
		strength += 0.15
	case volRatio > 1.5:
		strength += 0.1
	}

	if emaTrendAligned {
		strength += 0.1
	}
	if volatility > 1.0 {
		strength += 0.05
	}
	return strength
}

func (s *vwapBounce) checkExit(pos dto.PositionInfo, price, vwap float64) dto.Signal {
	pnl := unrealizedPct(pos, price)
	long := pos.Side == dto.SideLong

	if pnl >= 0.006 {
		return dto.NewSignal(dto.ActionClose, 1.0, fmt.Sprintf("take profit at %.2f%%", pnl*100))
	}
	if pnl <= -0.0025 {
		return dto.NewSignal(dto.ActionClose, 1.0, fmt.Sprintf("stop loss at %.2f%%", pnl*100))
	}

	if long && price > vwap*1.003 {
		return dto.NewSignal(dto.ActionClose, 0.8, "extended above vwap")
	}
	if !long && price < vwap*0.997 {
		return dto.NewSignal(dto.ActionClose, 0.8, "extended below vwap")
	}

	if long && price < vwap {
		return dto.NewSignal(dto.ActionClose, 0.9, "lost the vwap")
	}
	if !long && price > vwap {
		return dto.NewSignal(dto.ActionClose, 0.9, "reclaimed the vwap")
	}

	return dto.HoldSignal("tracking vwap")
}
