package model

import (
	"time"

	"gorm.io/datatypes"
)

// BacktestRun is the persisted record of one completed simulation.
// Trades and the equity curve are kept as JSONB so a run can be
// re-rendered without re-simulating.
type BacktestRun struct {
	ID                   uint           `gorm:"primarykey"`
	RunName              string         `gorm:"not null"`
	StrategyName         string         `gorm:"not null;index"`
	Timeframe            string         `gorm:"not null"`
	StartDate            time.Time      `gorm:"not null"`
	EndDate              time.Time      `gorm:"not null"`
	InitialCapital       float64        `gorm:"not null"`
	FinalEquity          float64        `gorm:"not null"`
	Symbols              datatypes.JSON `gorm:"type:jsonb"`
	Parameters           datatypes.JSON `gorm:"type:jsonb"`
	Metrics              datatypes.JSON `gorm:"type:jsonb"`
	Trades               datatypes.JSON `gorm:"type:jsonb"`
	EquityCurve          datatypes.JSON `gorm:"type:jsonb"`
	TotalReturnPct       float64        `gorm:"not null"`
	TotalTrades          int            `gorm:"not null"`
	WinningTrades        int            `gorm:"not null"`
	LosingTrades         int            `gorm:"not null"`
	WinRate              float64        `gorm:"not null"`
	ProfitFactor         float64        `gorm:"not null"`
	SharpeRatio          float64        `gorm:"not null"`
	MaxDrawdownPct       float64        `gorm:"not null"`
	ExecutionTimeSeconds float64        `gorm:"not null"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BacktestRun) TableName() string {
	return "backtest_runs"
}

// GetBacktestRunParam filters historical run lookups.
type GetBacktestRunParam struct {
	StrategyName string
	Symbol       string
	Limit        int
}
