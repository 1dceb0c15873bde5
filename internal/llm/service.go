// Package llm layers caching and conservative fallbacks over the raw
// Gemini repository. Strategies talk to this service, never to the
// model directly, so a model outage degrades to skipped trades instead
// of failed runs.
package llm

import (
	"context"
	"fmt"

	"github.com/Enzooo97/ai-trading-bot/config"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/internal/repository"
	"github.com/Enzooo97/ai-trading-bot/pkg/cache"
	"github.com/Enzooo97/ai-trading-bot/pkg/common"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
)

type Service interface {
	// DetectRegime classifies the market for a symbol. On any model
	// failure it returns the ranging_tight regime with zero confidence,
	// which drives the threshold to its most conservative setting.
	DetectRegime(ctx context.Context, symbol string, bars []dto.Bar) dto.RegimeDetection

	// ScoreTrade grades a proposed entry from 0 to 100. On any model
	// failure it returns a below-threshold score so the trade is skipped.
	ScoreTrade(ctx context.Context, req dto.TradeScoreRequest) dto.TradeScore
}

type service struct {
	cfg           *config.Config
	log           *logger.Logger
	aiRepo        repository.AIRepository
	inmemoryCache cache.Cache
}

func NewService(cfg *config.Config, log *logger.Logger, aiRepo repository.AIRepository, inmemoryCache cache.Cache) Service {
	return &service{
		cfg:           cfg,
		log:           log,
		aiRepo:        aiRepo,
		inmemoryCache: inmemoryCache,
	}
}

func (s *service) DetectRegime(ctx context.Context, symbol string, bars []dto.Bar) dto.RegimeDetection {
	key := fmt.Sprintf(common.KEY_REGIME_CACHE, symbol)
	if cached, ok := cache.GetTyped[dto.RegimeDetection](s.inmemoryCache, key); ok {
		return cached
	}

	var (
		detection *dto.RegimeDetection
		err       error
	)
	if s.aiRepo != nil {
		detection, err = s.aiRepo.DetectRegime(ctx, symbol, bars)
	}
	if err != nil || detection == nil || !validRegime(detection.Regime) {
		s.log.WarnContext(ctx, "regime detection failed, using conservative fallback",
			logger.StringField("symbol", symbol),
			logger.ErrorField(err),
		)
		return dto.RegimeDetection{
			Regime:     dto.RegimeRangingTight,
			Confidence: 0,
			Reasoning:  "detection unavailable",
		}
	}

	s.inmemoryCache.Set(key, *detection, s.cfg.Gemini.RegimeCacheExpiration)
	return *detection
}

func (s *service) ScoreTrade(ctx context.Context, req dto.TradeScoreRequest) dto.TradeScore {
	var (
		score *dto.TradeScore
		err   error
	)
	if s.aiRepo != nil {
		score, err = s.aiRepo.ScoreTrade(ctx, req)
	}
	if err != nil || score == nil {
		s.log.WarnContext(ctx, "trade scoring failed, skipping trade",
			logger.StringField("symbol", req.Symbol),
			logger.ErrorField(err),
		)
		return dto.TradeScore{
			Score:             30,
			Confidence:        0,
			Reasoning:         "scoring unavailable",
			RecommendedAction: "skip",
		}
	}

	action, multiplier := ScoreMultiplier(score.Score)
	score.RecommendedAction = action
	score.PositionSizeMultiplier = multiplier
	return *score
}

// ScoreMultiplier maps a model grade to an execution decision and a
// position size multiplier.
func ScoreMultiplier(score int) (string, float64) {
	switch {
	case score >= 70:
		return "execute", 1.0
	case score >= 50:
		return "reduce_size", 0.5
	default:
		return "skip", 0.0
	}
}

// AdaptiveThreshold picks the minimum acceptable trade score for the
// detected regime. Trending markets loosen the bar, ranging and
// volatile markets raise it.
func AdaptiveThreshold(detection dto.RegimeDetection) int {
	switch detection.Regime {
	case dto.RegimeStrongUptrend, dto.RegimeStrongDowntrend:
		if detection.Confidence >= 0.8 {
			return 55
		}
		return 60
	case dto.RegimeWeakUptrend, dto.RegimeWeakDowntrend:
		return 65
	case dto.RegimeRangingTight:
		return 75
	case dto.RegimeRangingWide:
		return 70
	case dto.RegimeHighVolatility:
		return 70
	case dto.RegimeLowVolatility:
		return 75
	default:
		return 70
	}
}

func validRegime(regime dto.MarketRegime) bool {
	switch regime {
	case dto.RegimeStrongUptrend, dto.RegimeWeakUptrend,
		dto.RegimeStrongDowntrend, dto.RegimeWeakDowntrend,
		dto.RegimeRangingTight, dto.RegimeRangingWide,
		dto.RegimeHighVolatility, dto.RegimeLowVolatility:
		return true
	}
	return false
}
