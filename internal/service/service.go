package service

import (
	"github.com/Enzooo97/ai-trading-bot/config"
	"github.com/Enzooo97/ai-trading-bot/internal/llm"
	"github.com/Enzooo97/ai-trading-bot/internal/repository"
	"github.com/Enzooo97/ai-trading-bot/internal/strategy"
	"github.com/Enzooo97/ai-trading-bot/pkg/cache"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
)

type Service struct {
	BacktestService BacktestService
	LLMService      llm.Service
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
) *Service {
	llmService := llm.NewService(cfg, log, repo.GeminiAIRepo, inmemoryCache)

	registry := strategy.NewRegistry(
		strategy.NewMomentumBreakout(),
		strategy.NewMeanReversion(),
		strategy.NewEMATripleCrossover(),
		strategy.NewVWAPBounce(),
		strategy.NewStochasticRSI(),
		strategy.NewMomentumBreakoutLLM(llmService),
	)

	backtestService := NewBacktestService(cfg, log, repo, registry)

	return &Service{
		BacktestService: backtestService,
		LLMService:      llmService,
	}
}
