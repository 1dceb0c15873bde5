package strategy

import (
	"context"
	"fmt"

	"github.com/Enzooo97/ai-trading-bot/internal/backtest"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/internal/indicator"
	"github.com/Enzooo97/ai-trading-bot/internal/llm"
)

// momentumBreakoutLLM layers a model review over a breakout rule. The
// model first classifies the regime and vetoes momentum entries when
// conditions do not suit them, then grades each surviving setup against
// a regime-adaptive score threshold.
type momentumBreakoutLLM struct {
	llmSvc llm.Service
}

func NewMomentumBreakoutLLM(llmSvc llm.Service) backtest.Strategy {
	return &momentumBreakoutLLM{llmSvc: llmSvc}
}

func (s *momentumBreakoutLLM) Name() string      { return "momentum_breakout_llm" }
func (s *momentumBreakoutLLM) RequiredBars() int { return 100 }

func (s *momentumBreakoutLLM) Analyze(ctx context.Context, symbol string, bars []dto.Bar, _ dto.AccountInfo, positions []dto.PositionInfo) (dto.Signal, error) {
	if len(bars) < s.RequiredBars() {
		return dto.HoldSignal("insufficient history"), nil
	}

	_, high, low, closes, volume := series(bars)
	i := len(bars) - 1

	rsi := indicator.RSI(closes, 14)
	ema20 := indicator.EMA(closes, 20)
	ema50 := indicator.EMA(closes, 50)
	atr := indicator.ATR(high, low, closes, 14)
	adx, _, _ := indicator.ADX(high, low, closes, 14)
	macdLine, macdSignal, _ := indicator.MACD(closes, 12, 26, 9)
	volSMA := indicator.SMA(volume, 20)
	bbMiddle := indicator.SMA(closes, 20)
	bbStd := indicator.RollingStd(closes, 20)
	rangeHigh := indicator.RollingMax(high, 20)
	rangeLow := indicator.RollingMin(low, 20)

	if anyNaN(rsi[i], ema20[i], ema50[i], atr[i], adx[i], macdLine[i], macdSignal[i], bbMiddle[i], bbStd[i], rangeHigh[i-1], rangeLow[i-1]) {
		return dto.HoldSignal("indicators warming up"), nil
	}

	bbUpper := bbMiddle[i] + 2*bbStd[i]
	bbLower := bbMiddle[i] - 2*bbStd[i]
	volRatio := volumeRatio(volume, volSMA, i)
	volatility := atrPct(atr, closes[i], i)

	if len(positions) > 0 {
		return s.checkExit(positions[0], closes[i], ema20[i]), nil
	}

	regime := s.llmSvc.DetectRegime(ctx, symbol, bars)
	if !regime.OptimalForMomentum {
		return dto.HoldSignal(fmt.Sprintf("unfavorable regime: %s", regime.Regime)), nil
	}
	threshold := llm.AdaptiveThreshold(regime)

	base := s.baseSignal(closes[i], bbUpper, bbLower, rangeHigh[i-1], rangeLow[i-1],
		rsi[i], macdLine[i], macdSignal[i], adx[i], ema20[i], ema50[i], volRatio, volatility)
	if base.Action == dto.ActionHold {
		return base, nil
	}

	score := s.llmSvc.ScoreTrade(ctx, dto.TradeScoreRequest{
		Symbol:      symbol,
		Action:      base.Action,
		Reason:      base.Reason,
		Strength:    base.Strength,
		Close:       closes[i],
		VolumeRatio: volRatio,
		ATRPct:      volatility,
		RSI:         rsi[i],
		ADX:         adx[i],
		MACD:        macdLine[i],
	})
	if score.Score < threshold {
		return dto.HoldSignal(fmt.Sprintf("model score %d below %s threshold %d",
			score.Score, regime.Regime, threshold)), nil
	}

	approved := dto.NewSignal(base.Action, base.Strength*score.PositionSizeMultiplier,
		fmt.Sprintf("%s | LLM: %s", base.Reason, score.Reasoning))
	return approved.WithMetadata(map[string]interface{}{
		"llm_score":      score.Score,
		"llm_action":     score.RecommendedAction,
		"llm_multiplier": score.PositionSizeMultiplier,
		"regime":         string(regime.Regime),
		"threshold":      threshold,
	}), nil
}

func (s *momentumBreakoutLLM) baseSignal(close, bbUpper, bbLower, prevRangeHigh, prevRangeLow, rsi, macdLine, macdSignal, adx, ema20, ema50, volRatio, volatility float64) dto.Signal {
	if volatility > 0.6 {
		return dto.HoldSignal(fmt.Sprintf("volatility too high (atr %.2f%%)", volatility))
	}
	if volRatio < 1.0 {
		return dto.HoldSignal("volume below average")
	}

	bullVotes := countTrue(
		close > bbUpper || close > prevRangeHigh,
		rsi > 50 && rsi < 80,
		macdLine > macdSignal || adx > 20,
		volRatio > 1.3,
		ema20 > ema50 && close > ema20,
	)
	bearVotes := countTrue(
		close < bbLower || close < prevRangeLow,
		rsi > 20 && rsi < 50,
		macdLine < macdSignal || adx > 20,
		volRatio > 1.3,
		ema20 < ema50 && close < ema20,
	)

	if bullVotes >= 3 {
		return dto.NewSignal(dto.ActionBuy, s.strength(adx, volRatio, rsi, false),
			fmt.Sprintf("breakout above range (%d/5 conditions)", bullVotes))
	}
	if bearVotes >= 3 {
		return dto.NewSignal(dto.ActionSell, s.strength(adx, volRatio, rsi, true),
			fmt.Sprintf("breakdown below range (%d/5 conditions)", bearVotes))
	}
	return dto.HoldSignal("no breakout setup")
}

func (s *momentumBreakoutLLM) strength(adx, volRatio, rsi float64, short bool) float64 {
	strength := 0.6
	switch {
	case adx > 30:
		strength += 0.2
	case adx > 20:
		strength += 0.1
	}
	switch {
	case volRatio > 2.0:
		strength += 0.15
	case volRatio > 1.5:
		strength += 0.1
	}
	if (!short && rsi > 55 && rsi < 75) || (short && rsi > 25 && rsi < 45) {
		strength += 0.1
	}
	return strength
}

func (s *momentumBreakoutLLM) checkExit(pos dto.PositionInfo, price, ema20 float64) dto.Signal {
	pnl := unrealizedPct(pos, price)

	if pnl >= 0.05 {
		return dto.NewSignal(dto.ActionClose, 1.0, fmt.Sprintf("take profit at %.2f%%", pnl*100))
	}
	if pnl <= -0.02 {
		return dto.NewSignal(dto.ActionClose, 1.0, fmt.Sprintf("stop loss at %.2f%%", pnl*100))
	}

	if pos.Side == dto.SideLong && price < ema20 {
		return dto.NewSignal(dto.ActionClose, 0.9, "price broke the 20 ema")
	}
	if pos.Side == dto.SideShort && price > ema20 {
		return dto.NewSignal(dto.ActionClose, 0.9, "price reclaimed the 20 ema")
	}

	return dto.HoldSignal("letting the move run")
}
