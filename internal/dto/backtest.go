package dto

import (
	"encoding/json"
	"math"
	"time"
)

// Trade is one closed round trip produced by the simulation.
type Trade struct {
	Symbol       string        `json:"symbol"`
	Side         Side          `json:"side"`
	EntryTime    time.Time     `json:"entry_time"`
	ExitTime     time.Time     `json:"exit_time"`
	EntryPrice   float64       `json:"entry_price"`
	ExitPrice    float64       `json:"exit_price"`
	Quantity     float64       `json:"quantity"`
	PnL          float64       `json:"pnl"`
	PnLPct       float64       `json:"pnl_pct"`
	StrategyName string        `json:"strategy_name"`
	EntryReason  string        `json:"entry_reason"`
	ExitReason   string        `json:"exit_reason"`
	HoldDuration time.Duration `json:"hold_duration"`
}

// EquityPoint is a checkpoint of running capital taken each time a
// position closes.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
	TradePnL  float64   `json:"trade_pnl"`
}

// BacktestMetrics is the aggregate performance report for one run.
// A run with zero trades yields the zero value.
type BacktestMetrics struct {
	TotalReturnPct      float64 `json:"total_return_pct"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`

	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	ProfitFactor float64 `json:"profit_factor"`
	AvgTradePnL  float64 `json:"avg_trade_pnl"`

	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	SortinoRatio   float64 `json:"sortino_ratio"`

	AvgHoldDurationMinutes float64 `json:"avg_hold_duration_minutes"`
	MaxConsecutiveWins     int     `json:"max_consecutive_wins"`
	MaxConsecutiveLosses   int     `json:"max_consecutive_losses"`

	AvgTradesPerDay float64 `json:"avg_trades_per_day"`
	BestDayPct      float64 `json:"best_day_pct"`
	WorstDayPct     float64 `json:"worst_day_pct"`
}

// MarshalJSON emits null for the ratios that can legitimately be
// infinite, since encoding/json rejects non-finite numbers.
func (m BacktestMetrics) MarshalJSON() ([]byte, error) {
	type alias BacktestMetrics
	return json.Marshal(struct {
		alias
		ProfitFactor boundedFloat `json:"profit_factor"`
		SortinoRatio boundedFloat `json:"sortino_ratio"`
	}{
		alias:        alias(m),
		ProfitFactor: boundedFloat(m.ProfitFactor),
		SortinoRatio: boundedFloat(m.SortinoRatio),
	})
}

type boundedFloat float64

func (f boundedFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// BacktestRequest defines the parameters to launch one backtest run.
type BacktestRequest struct {
	RunName        string    `json:"run_name"`
	Strategy       string    `json:"strategy" validate:"required"`
	Symbols        []string  `json:"symbols" validate:"required,min=1"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required"`
	Timeframe      string    `json:"timeframe"`
	InitialCapital float64   `json:"initial_capital" validate:"omitempty,gt=0"`
	SlippageBps    float64   `json:"slippage_bps" validate:"omitempty,gte=0"`
}

// BacktestResult bundles everything one run produced.
type BacktestResult struct {
	RunName              string          `json:"run_name"`
	Strategy             string          `json:"strategy"`
	Symbols              []string        `json:"symbols"`
	StartDate            time.Time       `json:"start_date"`
	EndDate              time.Time       `json:"end_date"`
	Timeframe            string          `json:"timeframe"`
	InitialCapital       float64         `json:"initial_capital"`
	FinalCapital         float64         `json:"final_capital"`
	Metrics              BacktestMetrics `json:"metrics"`
	Trades               []Trade         `json:"trades"`
	EquityCurve          []EquityPoint   `json:"equity_curve"`
	ExecutionTimeSeconds float64         `json:"execution_time_seconds"`
}

// CompareRequest runs the same window across multiple strategies.
type CompareRequest struct {
	Strategies     []string  `json:"strategies" validate:"required,min=1"`
	Symbols        []string  `json:"symbols" validate:"required,min=1"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required"`
	Timeframe      string    `json:"timeframe"`
	InitialCapital float64   `json:"initial_capital" validate:"omitempty,gt=0"`
}

// CompareResult ranks runs by total return, best first.
type CompareResult struct {
	Results []BacktestResult `json:"results"`
}
