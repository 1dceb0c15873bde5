package dto

import "time"

// Bar is a single OHLCV candle. Timestamps are UTC bar-open times.
type Bar struct {
	Timestamp  time.Time `json:"timestamp"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	VWAP       float64   `json:"vwap,omitempty"`
	TradeCount int64     `json:"trade_count,omitempty"`
}

const (
	Timeframe1Min  string = "1m"
	Timeframe5Min  string = "5m"
	Timeframe15Min string = "15m"
	Timeframe30Min string = "30m"
	Timeframe1Hour string = "1h"
	Timeframe1Day  string = "1d"
)
