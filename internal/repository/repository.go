package repository

import (
	"gorm.io/gorm"

	"github.com/Enzooo97/ai-trading-bot/config"
	"github.com/Enzooo97/ai-trading-bot/pkg/cache"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
)

type Repository struct {
	AlpacaRepo       AlpacaRepository
	YahooFinanceRepo YahooFinanceRepository
	CandleRepo       CandleRepository
	GeminiAIRepo     AIRepository
	BacktestRunRepo  BacktestRunRepository
}

// NewRepository wires the data sources. db may be nil when persistence
// is disabled; the backtest run repo is then left nil and callers must
// skip history operations. Without a Gemini API key the AI repo is also
// left nil and the model layer falls back to its conservative defaults.
func NewRepository(cfg *config.Config, db *gorm.DB, log *logger.Logger, inmemoryCache cache.Cache) (*Repository, error) {
	var geminiAIRepo AIRepository
	if cfg.Gemini.APIKey != "" {
		var err error
		geminiAIRepo, err = NewGeminiAIRepository(cfg, log)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn("Gemini API key not configured, LLM strategies fall back to conservative defaults")
	}

	alpacaRepo := NewAlpacaRepository(cfg, log)
	yahooRepo := NewYahooFinanceRepository(cfg, log)

	repo := &Repository{
		AlpacaRepo:       alpacaRepo,
		YahooFinanceRepo: yahooRepo,
		CandleRepo:       NewCandleRepository(cfg, log, alpacaRepo, yahooRepo, inmemoryCache),
		GeminiAIRepo:     geminiAIRepo,
	}
	if db != nil {
		repo.BacktestRunRepo = NewBacktestRunRepository(db)
	}
	return repo, nil
}
