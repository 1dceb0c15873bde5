package strategy

import (
	"context"
	"fmt"

	"github.com/Enzooo97/ai-trading-bot/internal/backtest"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/internal/indicator"
)

// meanReversion fades stretched moves back toward the Bollinger middle
// band. Entries require an oversold or overbought cluster across RSI,
// band position, and stochastic or z-score confirmation.
type meanReversion struct{}

func NewMeanReversion() backtest.Strategy {
	return &meanReversion{}
}

func (s *meanReversion) Name() string      { return "mean_reversion" }
func (s *meanReversion) RequiredBars() int { return 100 }

func (s *meanReversion) Analyze(_ context.Context, _ string, bars []dto.Bar, _ dto.AccountInfo, positions []dto.PositionInfo) (dto.Signal, error) {
	if len(bars) < s.RequiredBars() {
		return dto.HoldSignal("insufficient history"), nil
	}

	_, high, low, closes, volume := series(bars)
	i := len(bars) - 1

	rsi := indicator.RSI(closes, 14)
	rsiFast := indicator.RSI(closes, 7)
	bbUpper, _, bbLower := indicator.BBands(closes, 20, 2)
	stochK, _ := indicator.Stoch(high, low, closes, 14, 3, 3)
	sma20 := indicator.SMA(closes, 20)
	sma50 := indicator.SMA(closes, 50)
	rollStd := indicator.RollingStd(closes, 20)
	atr := indicator.ATR(high, low, closes, 14)
	volSMA := indicator.SMA(volume, 20)

	if anyNaN(rsi[i], rsiFast[i], bbUpper[i], bbLower[i], stochK[i], sma20[i], sma50[i], rollStd[i], atr[i]) {
		return dto.HoldSignal("indicators warming up"), nil
	}

	bandWidth := bbUpper[i] - bbLower[i]
	if bandWidth == 0 {
		return dto.HoldSignal("bands collapsed"), nil
	}
	bbPct := (closes[i] - bbLower[i]) / bandWidth

	zscore := 0.0
	if rollStd[i] > 0 {
		zscore = (closes[i] - sma20[i]) / rollStd[i]
	}

	volRatio := volumeRatio(volume, volSMA, i)
	volatility := atrPct(atr, closes[i], i)

	if len(positions) > 0 {
		return s.checkExit(positions[0], closes[i], rsi[i], bbPct), nil
	}

	if volatility > 0.8 {
		return dto.HoldSignal(fmt.Sprintf("volatility too high (atr %.2f%%)", volatility)), nil
	}

	oversoldVotes := countTrue(
		rsi[i] < 30 && rsiFast[i] < 35,
		bbPct < 0.2,
		volRatio > 1.3,
		closes[i] > sma50[i]*0.95,
		stochK[i] < 20 || zscore < -1.5,
	)
	overboughtVotes := countTrue(
		rsi[i] > 70 && rsiFast[i] > 65,
		bbPct > 0.8,
		volRatio > 1.3,
		closes[i] < sma50[i]*1.05,
		stochK[i] > 80 || zscore > 1.5,
	)

	if oversoldVotes >= 4 {
		strength := s.strength(rsi[i], bbPct, volRatio, false)
		return dto.NewSignal(dto.ActionBuy, strength,
			fmt.Sprintf("oversold reversion setup (%d/5 conditions, z %.2f)", oversoldVotes, zscore)), nil
	}
	if overboughtVotes >= 4 {
		strength := s.strength(rsi[i], bbPct, volRatio, true)
		return dto.NewSignal(dto.ActionSell, strength,
			fmt.Sprintf("overbought reversion setup (%d/5 conditions, z %.2f)", overboughtVotes, zscore)), nil
	}

	return dto.HoldSignal("price within normal range"), nil
}

func (s *meanReversion) strength(rsi, bbPct, volRatio float64, short bool) float64 {
	strength := 0.5

	stretch := rsi
	bandEdge := bbPct
	if short {
		stretch = 100 - rsi
		bandEdge = 1 - bbPct
	}
	switch {
	case stretch < 25:
		strength += 0.2
	case stretch < 30:
		strength += 0.1
	}
	if bandEdge < 0.1 {
		strength += 0.15
	}
	if volRatio > 1.5 {
		strength += 0.15
	}
	return strength
}

func (s *meanReversion) checkExit(pos dto.PositionInfo, price, rsi, bbPct float64) dto.Signal {
	pnl := unrealizedPct(pos, price)

	if pnl >= 0.025 {
		return dto.NewSignal(dto.ActionClose, 1.0, fmt.Sprintf("take profit at %.2f%%", pnl*100))
	}
	if pnl <= -0.015 {
		return dto.NewSignal(dto.ActionClose, 1.0, fmt.Sprintf("stop loss at %.2f%%", pnl*100))
	}

	if pos.Side == dto.SideLong && bbPct > 0.5 {
		return dto.NewSignal(dto.ActionClose, 0.8, "reverted to mean")
	}
	if pos.Side == dto.SideShort && bbPct < 0.5 {
		return dto.NewSignal(dto.ActionClose, 0.8, "reverted to mean")
	}

	if pos.Side == dto.SideLong && rsi > 50 {
		return dto.NewSignal(dto.ActionClose, 0.6, "rsi recovered past midline")
	}
	if pos.Side == dto.SideShort && rsi < 50 {
		return dto.NewSignal(dto.ActionClose, 0.6, "rsi faded past midline")
	}

	return dto.HoldSignal("awaiting reversion")
}
