package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Enzooo97/ai-trading-bot/config"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/pkg/cache"
	"github.com/Enzooo97/ai-trading-bot/pkg/common"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
)

// CandleRepository hands out historical bars for the simulator. Alpaca
// is the primary source; Yahoo Finance covers symbols and ranges Alpaca
// cannot serve. Fetched series are cached so repeated runs over the
// same window do not hit the APIs again.
type CandleRepository interface {
	GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]dto.Bar, error)
}

type candleRepository struct {
	cfg           *config.Config
	logger        *logger.Logger
	alpacaRepo    AlpacaRepository
	yahooRepo     YahooFinanceRepository
	inmemoryCache cache.Cache
}

func NewCandleRepository(cfg *config.Config, log *logger.Logger, alpacaRepo AlpacaRepository, yahooRepo YahooFinanceRepository, inmemoryCache cache.Cache) CandleRepository {
	return &candleRepository{
		cfg:           cfg,
		logger:        log,
		alpacaRepo:    alpacaRepo,
		yahooRepo:     yahooRepo,
		inmemoryCache: inmemoryCache,
	}
}

func (r *candleRepository) GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]dto.Bar, error) {
	key := barsCacheKey(symbol, timeframe, start, end)
	if bars, ok := cache.GetTyped[[]dto.Bar](r.inmemoryCache, key); ok {
		return bars, nil
	}

	bars, err := r.alpacaRepo.GetBars(ctx, symbol, timeframe, start, end)
	if err != nil || len(bars) == 0 {
		if err != nil {
			r.logger.WarnContext(ctx, "alpaca fetch failed, falling back to yahoo finance",
				logger.StringField("symbol", symbol),
				logger.ErrorField(err),
			)
		}
		bars, err = r.yahooRepo.GetBars(ctx, symbol, timeframe, start, end)
		if err != nil {
			return nil, err
		}
	}

	r.inmemoryCache.Set(key, bars, r.cfg.Cache.DefaultExpiration)
	return bars, nil
}

func barsCacheKey(symbol, timeframe string, start, end time.Time) string {
	return fmt.Sprintf(common.KEY_BARS_CACHE, symbol, timeframe, start.Unix(), end.Unix())
}
