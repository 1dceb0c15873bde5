package repository

import (
	"fmt"
	"math"
	"strings"

	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/internal/indicator"
)

func splitBars(bars []dto.Bar) (open, high, low, close, volume []float64) {
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

func isNaN(v float64) bool { return math.IsNaN(v) }

func (r *geminiAIRepository) promptDetectRegime(symbol string, bars []dto.Bar) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(
		"You are a professional market analyst. Classify the current market regime for %s from the statistics below.\n\n",
		symbol,
	))

	sb.WriteString("### Market snapshot\n")
	sb.WriteString(regimeSnapshot(bars))

	sb.WriteString(`
### Task
Pick exactly one regime:
  strong_uptrend, weak_uptrend, strong_downtrend, weak_downtrend,
  ranging_tight, ranging_wide, high_volatility, low_volatility

Also judge whether the regime is favorable for momentum breakout entries
(trending with expanding participation) and give a confidence between 0 and 1.

### Output
Respond with JSON only, no markdown fences, matching exactly:
{
  "regime": "...",
  "confidence": 0.0,
  "reasoning": "...",
  "key_characteristics": ["..."],
  "optimal_for_momentum": false
}
`)

	return sb.String()
}

// regimeSnapshot condenses the recent bar history into the handful of
// numbers the model needs. Sending raw OHLCV would burn the token budget.
func regimeSnapshot(bars []dto.Bar) string {
	var sb strings.Builder
	if len(bars) < 2 {
		sb.WriteString("- insufficient history\n")
		return sb.String()
	}

	_, high, low, closes, volume := splitBars(bars)
	i := len(bars) - 1

	writePct := func(label string, lookback int) {
		if i >= lookback && closes[i-lookback] != 0 {
			change := (closes[i] - closes[i-lookback]) / closes[i-lookback] * 100
			sb.WriteString(fmt.Sprintf("- %s: %+.2f%%\n", label, change))
		}
	}
	writePct("price change last 20 bars", 20)
	writePct("price change last 50 bars", 50)

	atr := indicator.ATR(high, low, closes, 14)
	if !isNaN(atr[i]) && closes[i] != 0 {
		sb.WriteString(fmt.Sprintf("- atr as %% of price: %.2f%%\n", atr[i]/closes[i]*100))
	}

	adx, plusDI, minusDI := indicator.ADX(high, low, closes, 14)
	if !isNaN(adx[i]) {
		sb.WriteString(fmt.Sprintf("- adx: %.1f (+di %.1f, -di %.1f)\n", adx[i], plusDI[i], minusDI[i]))
	}

	rsi := indicator.RSI(closes, 14)
	if !isNaN(rsi[i]) {
		sb.WriteString(fmt.Sprintf("- rsi(14): %.1f\n", rsi[i]))
	}

	volSMA := indicator.SMA(volume, 20)
	if !isNaN(volSMA[i]) && volSMA[i] != 0 {
		sb.WriteString(fmt.Sprintf("- volume vs 20-bar average: %.2fx\n", volume[i]/volSMA[i]))
	}

	sb.WriteString(fmt.Sprintf("- latest close: %.4f\n", closes[i]))
	return sb.String()
}

func (r *geminiAIRepository) promptScoreTrade(req dto.TradeScoreRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(
		"You are a risk manager reviewing a proposed %s trade on %s. Grade the setup from 0 to 100.\n\n",
		req.Action, req.Symbol,
	))

	sb.WriteString("### Proposed trade\n")
	sb.WriteString(fmt.Sprintf("- action: %s\n", req.Action))
	sb.WriteString(fmt.Sprintf("- signal reason: %s\n", req.Reason))
	sb.WriteString(fmt.Sprintf("- signal strength: %.2f\n", req.Strength))
	sb.WriteString(fmt.Sprintf("- close price: %.4f\n", req.Close))
	sb.WriteString(fmt.Sprintf("- volume ratio: %.2f\n", req.VolumeRatio))
	sb.WriteString(fmt.Sprintf("- atr %% of price: %.2f\n", req.ATRPct))
	sb.WriteString(fmt.Sprintf("- rsi(14): %.1f\n", req.RSI))
	sb.WriteString(fmt.Sprintf("- adx: %.1f\n", req.ADX))
	sb.WriteString(fmt.Sprintf("- macd: %.4f\n", req.MACD))

	if len(req.RecentTrades) > 0 {
		sb.WriteString("\n### Recent closed trades on this symbol\n")
		for _, t := range req.RecentTrades {
			sb.WriteString(fmt.Sprintf("- %s %s pnl %+.2f (%+.2f%%), exit: %s\n",
				t.Side, t.Symbol, t.PnL, t.PnLPct*100, t.ExitReason))
		}
	}

	sb.WriteString(`
### Scoring guidance
- 70-100: high conviction setup, execute at full size
- 50-69: acceptable but marginal, execute at reduced size
- 0-49: skip, risk outweighs the edge

### Output
Respond with JSON only, no markdown fences, matching exactly:
{
  "score": 0,
  "confidence": 0.0,
  "reasoning": "...",
  "risk_factors": ["..."],
  "opportunity_factors": ["..."],
  "recommended_action": "execute|reduce_size|skip",
  "position_size_multiplier": 0.0
}
`)

	return sb.String()
}
