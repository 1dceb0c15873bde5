package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/Enzooo97/ai-trading-bot/internal/backtest"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/internal/indicator"
)

// emaTripleCrossover is a fast scalping rule built on the 5/9/21 EMA
// stack. It enters on alignment of the stack with a tight profit target
// and an even tighter stop.
type emaTripleCrossover struct{}

func NewEMATripleCrossover() backtest.Strategy {
	return &emaTripleCrossover{}
}

func (s *emaTripleCrossover) Name() string      { return "ema_triple_crossover" }
func (s *emaTripleCrossover) RequiredBars() int { return 50 }

func (s *emaTripleCrossover) Analyze(_ context.Context, _ string, bars []dto.Bar, _ dto.AccountInfo, positions []dto.PositionInfo) (dto.Signal, error) {
	if len(bars) < s.RequiredBars() {
		return dto.HoldSignal("insufficient history"), nil
	}

	_, high, low, closes, volume := series(bars)
	i := len(bars) - 1

	ema5 := indicator.EMA(closes, 5)
	ema9 := indicator.EMA(closes, 9)
	ema21 := indicator.EMA(closes, 21)
	rsi := indicator.RSI(closes, 14)
	macdLine, macdSignal, macdHist := indicator.MACD(closes, 5, 13, 3)
	atr := indicator.ATR(high, low, closes, 14)
	volSMA := indicator.SMA(volume, 20)

	if anyNaN(ema5[i], ema9[i], ema21[i], rsi[i], macdLine[i], macdSignal[i], atr[i]) {
		return dto.HoldSignal("indicators warming up"), nil
	}

	volRatio := volumeRatio(volume, volSMA, i)
	volatility := atrPct(atr, closes[i], i)

	if len(positions) > 0 {
		return s.checkExit(positions[0], closes[i], ema5[i], ema9[i], ema21[i], rsi[i]), nil
	}

	if volatility > 0.6 {
		return dto.HoldSignal(fmt.Sprintf("volatility too high (atr %.2f%%)", volatility)), nil
	}
	if volRatio < 1.2 {
		return dto.HoldSignal("volume below threshold"), nil
	}

	crossedUp := ema5[i] > ema9[i] && ema5[i-1] <= ema9[i-1]
	crossedDown := ema5[i] < ema9[i] && ema5[i-1] >= ema9[i-1]

	bullVotes := countTrue(
		crossedUp || ema5[i] > ema9[i],
		ema5[i] > ema21[i] && ema9[i] > ema21[i],
		ema21[i] > ema21[i-1] || rsi[i] > 50,
		volRatio > 1.3 || macdLine[i] > macdSignal[i],
		closes[i] > closes[i-1],
	)
	bearVotes := countTrue(
		crossedDown || ema5[i] < ema9[i],
		ema5[i] < ema21[i] && ema9[i] < ema21[i],
		ema21[i] < ema21[i-1] || rsi[i] < 50,
		volRatio > 1.3 || macdLine[i] < macdSignal[i],
		closes[i] < closes[i-1],
	)

	if bullVotes >= 4 {
		strength := s.strength(ema5[i], ema21[i], volRatio, rsi[i], macdHist, i, false)
		return dto.NewSignal(dto.ActionBuy, strength,
			fmt.Sprintf("ema stack aligned bullish (%d/5 conditions)", bullVotes)), nil
	}
	if bearVotes >= 4 {
		strength := s.strength(ema5[i], ema21[i], volRatio, rsi[i], macdHist, i, true)
		return dto.NewSignal(dto.ActionSell, strength,
			fmt.Sprintf("ema stack aligned bearish (%d/5 conditions)", bearVotes)), nil
	}

	return dto.HoldSignal("ema stack not aligned"), nil
}

func (s *emaTripleCrossover) strength(ema5, ema21, volRatio, rsi float64, macdHist []float64, i int, short bool) float64 {
	strength := 0.6

	separation := math.Abs(ema5-ema21) / ema21 * 100
	switch {
	case separation > 1.0:
		strength += 0.15
	case separation > 0.5:
		strength += 0.1
	}

	switch {
	case volRatio > 1.8:
		strength += 0.15
	case volRatio > 1.3:
		strength += 0.1
	}

	if (!short && rsi > 50 && rsi < 70) || (short && rsi > 30 && rsi < 50) {
		strength += 0.1
	}

	if i > 0 && !anyNaN(macdHist[i], macdHist[i-1]) {
		growing := macdHist[i] > macdHist[i-1]
		if short {
			growing = macdHist[i] < macdHist[i-1]
		}
		if growing {
			strength += 0.05
		}
	}
	return strength
}

func (s *emaTripleCrossover) checkExit(pos dto.PositionInfo, price, ema5, ema9, ema21, rsi float64) dto.Signal {
	pnl := unrealizedPct(pos, price)
	long := pos.Side == dto.SideLong

	if pnl >= 0.008 {
		return dto.NewSignal(dto.ActionClose, 1.0, fmt.Sprintf("take profit at %.2f%%", pnl*100))
	}
	if pnl >= 0.006 && ((long && price < ema5) || (!long && price > ema5)) {
		return dto.NewSignal(dto.ActionClose, 0.9, "momentum fading near target")
	}
	if pnl <= -0.0025 {
		return dto.NewSignal(dto.ActionClose, 1.0, fmt.Sprintf("stop loss at %.2f%%", pnl*100))
	}

	if (long && ema5 < ema9) || (!long && ema5 > ema9) {
		return dto.NewSignal(dto.ActionClose, 1.0, "fast ema crossed against position")
	}
	if (long && price < ema21) || (!long && price > ema21) {
		return dto.NewSignal(dto.ActionClose, 0.9, "price broke the 21 ema")
	}
	if (long && rsi < 45) || (!long && rsi > 55) {
		return dto.NewSignal(dto.ActionClose, 0.7, "rsi turned against position")
	}

	return dto.HoldSignal("riding the ema stack")
}
