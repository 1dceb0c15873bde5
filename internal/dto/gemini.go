package dto

// MarketRegime classifies the prevailing market condition for a symbol.
type MarketRegime string

const (
	RegimeStrongUptrend   MarketRegime = "strong_uptrend"
	RegimeWeakUptrend     MarketRegime = "weak_uptrend"
	RegimeStrongDowntrend MarketRegime = "strong_downtrend"
	RegimeWeakDowntrend   MarketRegime = "weak_downtrend"
	RegimeRangingTight    MarketRegime = "ranging_tight"
	RegimeRangingWide     MarketRegime = "ranging_wide"
	RegimeHighVolatility  MarketRegime = "high_volatility"
	RegimeLowVolatility   MarketRegime = "low_volatility"
)

// RegimeDetection is the parsed model verdict on market regime.
type RegimeDetection struct {
	Regime             MarketRegime `json:"regime"`
	Confidence         float64      `json:"confidence"`
	Reasoning          string       `json:"reasoning"`
	KeyCharacteristics []string     `json:"key_characteristics"`
	OptimalForMomentum bool         `json:"optimal_for_momentum"`
}

// TradeScoreRequest carries the setup the model is asked to grade.
type TradeScoreRequest struct {
	Symbol       string
	Action       Action
	Reason       string
	Strength     float64
	Close        float64
	VolumeRatio  float64
	ATRPct       float64
	RSI          float64
	ADX          float64
	MACD         float64
	RecentTrades []Trade
}

// TradeScore is the parsed model grade for a proposed trade, 0 to 100.
type TradeScore struct {
	Score                  int      `json:"score"`
	Confidence             float64  `json:"confidence"`
	Reasoning              string   `json:"reasoning"`
	RiskFactors            []string `json:"risk_factors"`
	OpportunityFactors     []string `json:"opportunity_factors"`
	RecommendedAction      string   `json:"recommended_action"`
	PositionSizeMultiplier float64  `json:"position_size_multiplier"`
	ProcessingTimeMs       int64    `json:"processing_time_ms"`
}
