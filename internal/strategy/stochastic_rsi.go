package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/Enzooo97/ai-trading-bot/internal/backtest"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/internal/indicator"
)

// stochasticRSI scalps exhaustion extremes where a fast RSI and a fast
// stochastic agree, confirmed by band position and candle direction.
type stochasticRSI struct{}

func NewStochasticRSI() backtest.Strategy {
	return &stochasticRSI{}
}

func (s *stochasticRSI) Name() string      { return "stochastic_rsi" }
func (s *stochasticRSI) RequiredBars() int { return 100 }

func (s *stochasticRSI) Analyze(_ context.Context, _ string, bars []dto.Bar, _ dto.AccountInfo, positions []dto.PositionInfo) (dto.Signal, error) {
	if len(bars) < s.RequiredBars() {
		return dto.HoldSignal("insufficient history"), nil
	}

	open, high, low, closes, volume := series(bars)
	i := len(bars) - 1

	rsiFast := indicator.RSI(closes, 7)
	rsi := indicator.RSI(closes, 14)
	stochK, stochD := indicator.Stoch(high, low, closes, 5, 3, 3)
	bbUpper, _, bbLower := indicator.BBands(closes, 20, 2)
	sma50 := indicator.SMA(closes, 50)
	atr := indicator.ATR(high, low, closes, 14)
	volSMA := indicator.SMA(volume, 20)

	if anyNaN(rsiFast[i], rsi[i], bbUpper[i], bbLower[i], sma50[i], atr[i]) {
		return dto.HoldSignal("indicators warming up"), nil
	}
	if anyNaN(stochK[i], stochK[i-1], stochD[i]) {
		return dto.HoldSignal("stochastic warming up"), nil
	}

	bandWidth := bbUpper[i] - bbLower[i]
	bbPct := 0.5
	if bandWidth > 0 {
		bbPct = (closes[i] - bbLower[i]) / bandWidth
	}

	volRatio := volumeRatio(volume, volSMA, i)
	volatility := atrPct(atr, closes[i], i)

	if len(positions) > 0 {
		return s.checkExit(positions[0], closes[i], rsi[i], stochK[i], bbPct), nil
	}

	if volatility > 0.7 {
		return dto.HoldSignal(fmt.Sprintf("volatility too high (atr %.2f%%)", volatility)), nil
	}

	turningUp := stochK[i] > stochK[i-1]
	turningDown := stochK[i] < stochK[i-1]

	oversoldVotes := countTrue(
		rsiFast[i] < 25 && stochK[i] < 20,
		turningUp || stochK[i] > stochD[i],
		bbPct < 0.25 || volRatio > 1.3,
		closes[i] > sma50[i]*0.95,
		closes[i] > open[i] || volRatio > 1.3,
	)
	overboughtVotes := countTrue(
		rsiFast[i] > 75 && stochK[i] > 80,
		turningDown || stochK[i] < stochD[i],
		bbPct > 0.75 || volRatio > 1.3,
		closes[i] < sma50[i]*1.05,
		closes[i] < open[i] || volRatio > 1.3,
	)

	if oversoldVotes >= 4 {
		strength := s.strength(rsiFast[i], stochK[i], bbPct, volRatio, false)
		return dto.NewSignal(dto.ActionBuy, strength,
			fmt.Sprintf("stochastic oversold turn (%d/5 conditions)", oversoldVotes)), nil
	}
	if overboughtVotes >= 4 {
		strength := s.strength(rsiFast[i], stochK[i], bbPct, volRatio, true)
		return dto.NewSignal(dto.ActionSell, strength,
			fmt.Sprintf("stochastic overbought turn (%d/5 conditions)", overboughtVotes)), nil
	}

	return dto.HoldSignal("no exhaustion extreme"), nil
}

func (s *stochasticRSI) strength(rsiFast, stochK, bbPct, volRatio float64, short bool) float64 {
	strength := 0.6

	rsiStretch := rsiFast
	stochStretch := stochK
	bandEdge := bbPct
	if short {
		rsiStretch = 100 - rsiFast
		stochStretch = 100 - stochK
		bandEdge = 1 - bbPct
	}

	switch {
	case rsiStretch < 20:
		strength += 0.2
	case rsiStretch < 25:
		strength += 0.1
	}
	switch {
	case stochStretch < 15:
		strength += 0.15
	case stochStretch < 20:
		strength += 0.1
	}
	if bandEdge < 0.15 {
		strength += 0.1
	}
	if volRatio > 1.5 {
		strength += 0.05
	}
	return strength
}

func (s *stochasticRSI) checkExit(pos dto.PositionInfo, price, rsi, stochK, bbPct float64) dto.Signal {
	pnl := unrealizedPct(pos, price)
	long := pos.Side == dto.SideLong

	if pnl >= 0.006 {
		return dto.NewSignal(dto.ActionClose, 1.0, fmt.Sprintf("take profit at %.2f%%", pnl*100))
	}
	if pnl <= -0.0025 {
		return dto.NewSignal(dto.ActionClose, 1.0, fmt.Sprintf("stop loss at %.2f%%", pnl*100))
	}

	if (long && rsi > 50) || (!long && rsi < 50) {
		return dto.NewSignal(dto.ActionClose, 0.8, "rsi recovered past midline")
	}
	if (long && stochK > 55) || (!long && stochK < 45) {
		return dto.NewSignal(dto.ActionClose, 0.7, "stochastic normalized")
	}
	if math.Abs(bbPct-0.5) < 0.05 {
		return dto.NewSignal(dto.ActionClose, 0.6, "back at the mid band")
	}

	return dto.HoldSignal("awaiting snap back")
}
