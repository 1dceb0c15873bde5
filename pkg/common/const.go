package common

// Cache key formats shared by the data and model layers.
const (
	KEY_BARS_CACHE   = "bars:%s:%s:%d:%d"
	KEY_REGIME_CACHE = "regime:%s"
)
