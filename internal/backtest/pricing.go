package backtest

import "github.com/Enzooo97/ai-trading-bot/internal/dto"

// FillPrice converts a quoted price into an executable fill by applying
// slippage against the trader. Buy-side fills (opening long, closing
// short) pay above the quote; sell-side fills (opening short, closing
// long) receive below it.
func FillPrice(quoted float64, side dto.Side, isEntry bool, slippageBps float64) float64 {
	slippage := quoted * (slippageBps / 10000.0)

	buySide := (side == dto.SideLong) == isEntry
	if buySide {
		return quoted + slippage
	}
	return quoted - slippage
}
