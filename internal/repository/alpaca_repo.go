package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/time/rate"

	"github.com/Enzooo97/ai-trading-bot/config"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
)

type AlpacaRepository interface {
	GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]dto.Bar, error)
}

type alpacaRepository struct {
	client         *marketdata.Client
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewAlpacaRepository(cfg *config.Config, log *logger.Logger) AlpacaRepository {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.Alpaca.APIKey,
		APISecret: cfg.Alpaca.APISecret,
	}
	if cfg.Alpaca.DataBaseURL != "" {
		opts.BaseURL = cfg.Alpaca.DataBaseURL
	}

	secondsPerRequest := time.Minute / time.Duration(cfg.Alpaca.MaxRequestPerMin)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &alpacaRepository{
		client:         marketdata.NewClient(opts),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

func (r *alpacaRepository) GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]dto.Bar, error) {
	if !r.requestLimiter.Allow() {
		r.logger.WarnContext(ctx, "alpaca request limit reached, waiting",
			logger.IntField("max_request_per_min", r.cfg.Alpaca.MaxRequestPerMin),
		)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	tf, err := mapTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	alpacaBars, err := r.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
		Feed:      marketdata.Feed(r.cfg.Alpaca.Feed),
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca GetBars %s: %w", symbol, err)
	}

	bars := make([]dto.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, dto.Bar{
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     float64(ab.Volume),
			VWAP:       ab.VWAP,
			TradeCount: int64(ab.TradeCount),
		})
	}

	r.logger.DebugContext(ctx, "fetched bars from alpaca",
		logger.StringField("symbol", symbol),
		logger.IntField("count", len(bars)),
	)
	return bars, nil
}

func mapTimeframe(timeframe string) (marketdata.TimeFrame, error) {
	switch timeframe {
	case dto.Timeframe1Min:
		return marketdata.OneMin, nil
	case dto.Timeframe5Min:
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case dto.Timeframe15Min:
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case dto.Timeframe30Min:
		return marketdata.NewTimeFrame(30, marketdata.Min), nil
	case dto.Timeframe1Hour:
		return marketdata.OneHour, nil
	case dto.Timeframe1Day:
		return marketdata.OneDay, nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
}
