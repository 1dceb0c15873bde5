package backtest

import (
	"math"
	"time"

	"github.com/Enzooo97/ai-trading-bot/internal/dto"
)

// CalculateMetrics reduces a finished trade list and equity curve to the
// full statistics report. A run with no trades yields the zero report;
// every division-by-zero case resolves to a defined sentinel.
func CalculateMetrics(trades []dto.Trade, equity []dto.EquityPoint, start, end time.Time, initialCapital float64) dto.BacktestMetrics {
	if len(trades) == 0 {
		return dto.BacktestMetrics{}
	}

	var m dto.BacktestMetrics
	m.TotalTrades = len(trades)

	var totalPnL, winSum, lossSum, holdMinutes float64
	for _, t := range trades {
		totalPnL += t.PnL
		holdMinutes += t.HoldDuration.Minutes()
		if t.PnL > 0 {
			m.WinningTrades++
			winSum += t.PnL
		} else {
			m.LosingTrades++
			lossSum += t.PnL
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	m.TotalReturnPct = totalPnL / initialCapital
	m.AvgTradePnL = totalPnL / float64(m.TotalTrades)
	m.AvgHoldDurationMinutes = holdMinutes / float64(m.TotalTrades)

	days := int(end.Sub(start).Hours() / 24)
	years := float64(days) / 365.25
	if years > 0 {
		m.AnnualizedReturnPct = math.Pow(1+m.TotalReturnPct, 1/years) - 1
	}

	if m.WinningTrades > 0 {
		m.AvgWin = winSum / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = lossSum / float64(m.LosingTrades)
	}

	if lossSum != 0 {
		m.ProfitFactor = math.Abs(winSum / lossSum)
	} else if winSum > 0 {
		m.ProfitFactor = math.Inf(1)
	}

	m.MaxConsecutiveWins = maxConsecutive(trades, func(t dto.Trade) bool { return t.PnL > 0 })
	m.MaxConsecutiveLosses = maxConsecutive(trades, func(t dto.Trade) bool { return t.PnL <= 0 })

	m.AvgTradesPerDay = float64(m.TotalTrades) / math.Max(1, float64(days))

	m.MaxDrawdownPct = maxDrawdown(equity)
	m.SharpeRatio = sharpeRatio(trades)
	m.SortinoRatio = sortinoRatio(trades)

	m.BestDayPct, m.WorstDayPct = dayExtremes(trades, initialCapital)

	return m
}

func maxConsecutive(trades []dto.Trade, match func(dto.Trade) bool) int {
	maxRun, run := 0, 0
	for _, t := range trades {
		if match(t) {
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 0
		}
	}
	return maxRun
}

// maxDrawdown reports the deepest peak-to-trough decline of the equity
// curve as a positive fraction.
func maxDrawdown(equity []dto.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}

	peak := equity[0].Equity
	worst := 0.0
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := (p.Equity - peak) / peak
		if dd < worst {
			worst = dd
		}
	}
	return math.Abs(worst)
}

// sharpeRatio annualizes the per-trade return profile assuming 252
// trading days.
func sharpeRatio(trades []dto.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}

	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.PnLPct
	}
	mean := meanOf(returns)
	std := populationStd(returns, mean)
	if std == 0 {
		return 0
	}
	return (mean / std) * math.Sqrt(252)
}

// sortinoRatio penalizes only downside volatility. With no losing
// returns at all the ratio is +Inf.
func sortinoRatio(trades []dto.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}

	returns := make([]float64, len(trades))
	var downside []float64
	for i, t := range trades {
		returns[i] = t.PnLPct
		if t.PnLPct < 0 {
			downside = append(downside, t.PnLPct)
		}
	}

	if len(downside) == 0 {
		return math.Inf(1)
	}

	mean := meanOf(returns)
	downsideStd := populationStd(downside, meanOf(downside))
	if downsideStd == 0 {
		return 0
	}
	return (mean / downsideStd) * math.Sqrt(252)
}

// dayExtremes groups realized pnl by UTC exit date and reports the best
// and worst day as fractions of initial capital.
func dayExtremes(trades []dto.Trade, initialCapital float64) (best, worst float64) {
	daily := make(map[string]float64)
	for _, t := range trades {
		day := t.ExitTime.UTC().Format("2006-01-02")
		daily[day] += t.PnL
	}
	if len(daily) == 0 {
		return 0, 0
	}

	best = math.Inf(-1)
	worst = math.Inf(1)
	for _, pnl := range daily {
		if pnl > best {
			best = pnl
		}
		if pnl < worst {
			worst = pnl
		}
	}
	return best / initialCapital, worst / initialCapital
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStd(values []float64, mean float64) float64 {
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}
