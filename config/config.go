package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Log      Logger          `mapstructure:"logger"`
	DB       Database        `mapstructure:"database"`
	API      API             `mapstructure:"api"`
	Alpaca   Alpaca          `mapstructure:"alpaca"`
	Yahoo    YahooFinance    `mapstructure:"yahoo_finance"`
	Gemini   Gemini          `mapstructure:"gemini"`
	Cache    Cache           `mapstructure:"cache"`
	Backtest BacktestingArgs `mapstructure:"backtest"`
}

type Logger struct {
	Level           string `mapstructure:"level"`
	Encoding        string `mapstructure:"encoding"`
	AlertWebhookURL string `mapstructure:"alert_webhook_url"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
	Enabled         bool   `mapstructure:"enabled"`
}

type API struct {
	Port int `mapstructure:"port"`
}

type Alpaca struct {
	APIKey           string        `mapstructure:"api_key"`
	APISecret        string        `mapstructure:"api_secret"`
	BaseURL          string        `mapstructure:"base_url"`
	DataBaseURL      string        `mapstructure:"data_base_url"`
	Feed             string        `mapstructure:"feed"`
	BaseTimeout      time.Duration `mapstructure:"base_timeout"`
	MaxRequestPerMin int           `mapstructure:"max_request_per_min"`
}

type YahooFinance struct {
	BaseURL          string        `mapstructure:"base_url"`
	BaseTimeout      time.Duration `mapstructure:"base_timeout"`
	RetryCount       int           `mapstructure:"retry_count"`
	MaxRequestPerMin int           `mapstructure:"max_request_per_min"`
}

type Gemini struct {
	APIKey                string        `mapstructure:"api_key"`
	Model                 string        `mapstructure:"model"`
	MaxTokenPerMin        int           `mapstructure:"max_token_per_min"`
	MaxRequestPerMin      int           `mapstructure:"max_request_per_min"`
	RegimeCacheExpiration time.Duration `mapstructure:"regime_cache_expiration"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// BacktestingArgs holds the simulation defaults. Per-run request values
// override these when provided.
type BacktestingArgs struct {
	InitialCapital          float64 `mapstructure:"initial_capital"`
	CommissionPerTrade      float64 `mapstructure:"commission_per_trade"`
	SlippageBps             float64 `mapstructure:"slippage_bps"`
	MaxPositionHoldHours    int     `mapstructure:"max_position_hold_hours"`
	EntryAcceptanceStrength float64 `mapstructure:"entry_acceptance_strength"`
	MaxPositionSizeFraction float64 `mapstructure:"max_position_size_fraction"`
	HistoryRetentionDays    int     `mapstructure:"history_retention_days"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	// A config file is optional, env vars alone are enough.
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")

	viper.SetDefault("api.port", 8080)

	viper.SetDefault("alpaca.base_url", "https://paper-api.alpaca.markets")
	viper.SetDefault("alpaca.data_base_url", "https://data.alpaca.markets")
	viper.SetDefault("alpaca.feed", "iex")
	viper.SetDefault("alpaca.base_timeout", 30*time.Second)
	viper.SetDefault("alpaca.max_request_per_min", 200)

	viper.SetDefault("yahoo_finance.base_url", "https://query1.finance.yahoo.com")
	viper.SetDefault("yahoo_finance.base_timeout", 15*time.Second)
	viper.SetDefault("yahoo_finance.retry_count", 2)
	viper.SetDefault("yahoo_finance.max_request_per_min", 30)

	viper.SetDefault("gemini.model", "gemini-2.0-flash")
	viper.SetDefault("gemini.max_token_per_min", 250000)
	viper.SetDefault("gemini.max_request_per_min", 10)
	viper.SetDefault("gemini.regime_cache_expiration", 15*time.Minute)

	viper.SetDefault("cache.default_expiration", 15*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 30*time.Minute)

	viper.SetDefault("backtest.initial_capital", 100000.0)
	viper.SetDefault("backtest.commission_per_trade", 0.0)
	viper.SetDefault("backtest.slippage_bps", 2.0)
	viper.SetDefault("backtest.max_position_hold_hours", 48)
	viper.SetDefault("backtest.entry_acceptance_strength", 0.7)
	viper.SetDefault("backtest.max_position_size_fraction", 0.15)
	// 0 keeps runs forever.
	viper.SetDefault("backtest.history_retention_days", 0)
}
