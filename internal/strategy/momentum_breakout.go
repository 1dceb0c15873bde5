package strategy

import (
	"context"
	"fmt"

	"github.com/Enzooo97/ai-trading-bot/internal/backtest"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/internal/indicator"
)

// momentumBreakout trades range breaks confirmed by trend and volume.
// Long setups need a close at the top of the 20-bar range with RSI in
// the momentum band; shorts mirror it at the bottom of the range.
type momentumBreakout struct{}

func NewMomentumBreakout() backtest.Strategy {
	return &momentumBreakout{}
}

func (s *momentumBreakout) Name() string      { return "momentum_breakout" }
func (s *momentumBreakout) RequiredBars() int { return 100 }

func (s *momentumBreakout) Analyze(_ context.Context, _ string, bars []dto.Bar, _ dto.AccountInfo, positions []dto.PositionInfo) (dto.Signal, error) {
	if len(bars) < s.RequiredBars() {
		return dto.HoldSignal("insufficient history"), nil
	}

	_, high, low, closes, volume := series(bars)
	i := len(bars) - 1

	rsi := indicator.RSI(closes, 14)
	macdLine, macdSignal, _ := indicator.MACD(closes, 12, 26, 9)
	adx, _, _ := indicator.ADX(high, low, closes, 14)
	ema9 := indicator.EMA(closes, 9)
	ema21 := indicator.EMA(closes, 21)
	atr := indicator.ATR(high, low, closes, 14)
	volSMA := indicator.SMA(volume, 20)
	resistance := indicator.RollingMax(high, 20)
	support := indicator.RollingMin(low, 20)

	if anyNaN(rsi[i], macdLine[i], macdSignal[i], adx[i], ema9[i], ema21[i], atr[i], resistance[i], support[i]) {
		return dto.HoldSignal("indicators warming up"), nil
	}

	volRatio := volumeRatio(volume, volSMA, i)
	volatility := atrPct(atr, closes[i], i)

	if len(positions) > 0 {
		return s.checkExit(positions[0], closes[i], rsi[i], macdLine[i], macdSignal[i]), nil
	}

	if volatility > 0.6 {
		return dto.HoldSignal(fmt.Sprintf("volatility too high (atr %.2f%%)", volatility)), nil
	}
	if volRatio < 1.0 {
		return dto.HoldSignal("volume below average"), nil
	}

	longVotes := countTrue(
		closes[i] > resistance[i]*0.998,
		rsi[i] > 50 && rsi[i] < 80,
		macdLine[i] > macdSignal[i] || adx[i] > 20,
		volRatio > 1.3,
		ema9[i] > ema21[i],
	)
	shortVotes := countTrue(
		closes[i] < support[i]*1.002,
		rsi[i] > 20 && rsi[i] < 50,
		macdLine[i] < macdSignal[i] || adx[i] > 20,
		volRatio > 1.3,
		ema9[i] < ema21[i],
	)

	if longVotes >= 3 {
		strength := s.strength(volRatio, volatility, adx[i])
		return dto.NewSignal(dto.ActionBuy, strength,
			fmt.Sprintf("breakout above 20-bar resistance (%d/5 conditions)", longVotes)), nil
	}
	if shortVotes >= 3 {
		strength := s.strength(volRatio, volatility, adx[i])
		return dto.NewSignal(dto.ActionSell, strength,
			fmt.Sprintf("breakdown below 20-bar support (%d/5 conditions)", shortVotes)), nil
	}

	return dto.HoldSignal("no breakout setup"), nil
}

func (s *momentumBreakout) strength(volRatio, volatility, adx float64) float64 {
	strength := 0.5
	switch {
	case volRatio > 2.0:
		strength += 0.2
	case volRatio > 1.5:
		strength += 0.1
	}
	switch {
	case volatility > 2.0:
		strength += 0.15
	case volatility > 1.5:
		strength += 0.1
	}
	switch {
	case adx > 40:
		strength += 0.15
	case adx > 30:
		strength += 0.1
	}
	return strength
}

func (s *momentumBreakout) checkExit(pos dto.PositionInfo, price, rsi, macdLine, macdSignal float64) dto.Signal {
	pnl := unrealizedPct(pos, price)

	if pnl >= 0.03 {
		return dto.NewSignal(dto.ActionClose, 1.0, fmt.Sprintf("take profit at %.2f%%", pnl*100))
	}
	if pnl <= -0.015 {
		return dto.NewSignal(dto.ActionClose, 1.0, fmt.Sprintf("stop loss at %.2f%%", pnl*100))
	}

	if pos.Side == dto.SideLong && rsi > 75 {
		return dto.NewSignal(dto.ActionClose, 0.8, "rsi overbought")
	}
	if pos.Side == dto.SideShort && rsi < 25 {
		return dto.NewSignal(dto.ActionClose, 0.8, "rsi oversold")
	}

	if pos.Side == dto.SideLong && macdLine < macdSignal {
		return dto.NewSignal(dto.ActionClose, 0.7, "macd crossed bearish")
	}
	if pos.Side == dto.SideShort && macdLine > macdSignal {
		return dto.NewSignal(dto.ActionClose, 0.7, "macd crossed bullish")
	}

	return dto.HoldSignal("holding breakout position")
}
