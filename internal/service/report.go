package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/Enzooo97/ai-trading-bot/internal/dto"
)

// FormatResult renders one run as a readable text report for the CLI.
func FormatResult(result *dto.BacktestResult) string {
	m := result.Metrics

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", strings.Repeat("=", 62))
	fmt.Fprintf(&b, "  BACKTEST REPORT  %s\n", result.Strategy)
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 62))
	fmt.Fprintf(&b, "  Symbols:            %s\n", strings.Join(result.Symbols, ", "))
	fmt.Fprintf(&b, "  Window:             %s -> %s (%s)\n",
		result.StartDate.Format("2006-01-02"),
		result.EndDate.Format("2006-01-02"),
		result.Timeframe,
	)
	fmt.Fprintf(&b, "  Initial capital:    %.2f\n", result.InitialCapital)
	fmt.Fprintf(&b, "  Final capital:      %.2f\n", result.FinalCapital)
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 62))
	fmt.Fprintf(&b, "  Total return:       %.2f%%\n", m.TotalReturnPct*100)
	fmt.Fprintf(&b, "  Annualized return:  %.2f%%\n", m.AnnualizedReturnPct*100)
	fmt.Fprintf(&b, "  Total trades:       %d (%d won / %d lost)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	fmt.Fprintf(&b, "  Win rate:           %.2f%%\n", m.WinRate*100)
	fmt.Fprintf(&b, "  Avg win / loss:     %.2f / %.2f\n", m.AvgWin, m.AvgLoss)
	fmt.Fprintf(&b, "  Profit factor:      %s\n", formatRatio(m.ProfitFactor))
	fmt.Fprintf(&b, "  Max drawdown:       %.2f%%\n", m.MaxDrawdownPct*100)
	fmt.Fprintf(&b, "  Sharpe ratio:       %.2f\n", m.SharpeRatio)
	fmt.Fprintf(&b, "  Sortino ratio:      %s\n", formatRatio(m.SortinoRatio))
	fmt.Fprintf(&b, "  Avg hold (min):     %.1f\n", m.AvgHoldDurationMinutes)
	fmt.Fprintf(&b, "  Trades per day:     %.2f\n", m.AvgTradesPerDay)
	fmt.Fprintf(&b, "  Best / worst day:   %.2f%% / %.2f%%\n", m.BestDayPct*100, m.WorstDayPct*100)
	fmt.Fprintf(&b, "  Execution time:     %.2fs\n", result.ExecutionTimeSeconds)
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 62))
	return b.String()
}

// FormatComparison renders the ranked comparison as a summary table.
func FormatComparison(comparison *dto.CompareResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", strings.Repeat("=", 78))
	fmt.Fprintf(&b, "  STRATEGY COMPARISON\n")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 78))
	fmt.Fprintf(&b, "  %-26s %10s %8s %8s %8s %9s\n", "strategy", "return", "trades", "win%", "sharpe", "max dd")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 78))
	for _, r := range comparison.Results {
		m := r.Metrics
		fmt.Fprintf(&b, "  %-26s %9.2f%% %8d %7.1f%% %8.2f %8.2f%%\n",
			r.Strategy,
			m.TotalReturnPct*100,
			m.TotalTrades,
			m.WinRate*100,
			m.SharpeRatio,
			m.MaxDrawdownPct*100,
		)
	}
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 78))
	return b.String()
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
