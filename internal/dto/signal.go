package dto

import (
	"math"
	"time"
)

// Action is the verdict a strategy emits for one bar.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionClose Action = "close"
	ActionHold  Action = "hold"
)

// Side of an open position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Signal carries a strategy verdict with a confidence strength in [0,1]
// and a human-readable reason for audit.
type Signal struct {
	Action   Action                 `json:"action"`
	Strength float64                `json:"strength"`
	Reason   string                 `json:"reason"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewSignal clamps strength into [0,1]. Non-finite strength collapses
// to 0 so a broken confidence value can never clear an entry threshold.
func NewSignal(action Action, strength float64, reason string) Signal {
	if math.IsNaN(strength) || math.IsInf(strength, 0) {
		strength = 0
	}
	strength = math.Max(0, math.Min(1, strength))
	return Signal{Action: action, Strength: strength, Reason: reason}
}

// WithMetadata attaches structured context to the signal.
func (s Signal) WithMetadata(meta map[string]interface{}) Signal {
	s.Metadata = meta
	return s
}

// HoldSignal is the neutral verdict.
func HoldSignal(reason string) Signal {
	return Signal{Action: ActionHold, Strength: 0, Reason: reason}
}

// AccountInfo is the read-only account snapshot a strategy sees.
type AccountInfo struct {
	Equity float64 `json:"equity"`
}

// PositionInfo is the read-only view of an open position a strategy sees.
type PositionInfo struct {
	Symbol        string    `json:"symbol"`
	Side          Side      `json:"side"`
	Qty           float64   `json:"qty"`
	AvgEntryPrice float64   `json:"avg_entry_price"`
	EntryTime     time.Time `json:"entry_time"`
}
