package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Enzooo97/ai-trading-bot/config"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/pkg/httpclient"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
)

type YahooFinanceRepository interface {
	GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]dto.Bar, error)
}

type yahooFinanceRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger) YahooFinanceRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.Yahoo.MaxRequestPerMin)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &yahooFinanceRepository{
		httpClient:     httpclient.New(cfg.Yahoo.BaseURL, cfg.Yahoo.BaseTimeout, cfg.Yahoo.RetryCount),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

func (r *yahooFinanceRepository) GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]dto.Bar, error) {
	if !r.requestLimiter.Allow() {
		r.logger.WarnContext(ctx, "yahoo finance request limit reached, waiting",
			logger.IntField("max_request_per_min", r.cfg.Yahoo.MaxRequestPerMin),
		)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := "/v8/finance/chart/" + symbol
	queryParams := map[string]string{
		"period1":        fmt.Sprintf("%d", start.Unix()),
		"period2":        fmt.Sprintf("%d", end.Unix()),
		"interval":       timeframe,
		"includePrePost": "false",
		"events":         "div,split",
	}
	headers := map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://finance.yahoo.com/",
	}

	var chartResp dto.YahooChartResponse
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, headers, &chartResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from yahoo finance: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "yahoo finance returned non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("symbol", symbol),
		)
		return nil, fmt.Errorf("yahoo finance api returned status: %d", resp.StatusCode)
	}
	if chartResp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo finance api error: %v", chartResp.Chart.Error)
	}
	if len(chartResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data returned for symbol: %s", symbol)
	}

	result := chartResp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data available for symbol: %s", symbol)
	}
	quote := result.Indicators.Quote[0]

	bars := make([]dto.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) || i >= len(quote.Volume) {
			continue
		}
		// Yahoo pads halted periods with zero rows, drop them.
		if quote.Open[i] == 0 || quote.High[i] == 0 || quote.Low[i] == 0 || quote.Close[i] == 0 {
			continue
		}

		bars = append(bars, dto.Bar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      quote.Open[i],
			High:      quote.High[i],
			Low:       quote.Low[i],
			Close:     quote.Close[i],
			Volume:    float64(quote.Volume[i]),
		})
	}

	r.logger.DebugContext(ctx, "fetched bars from yahoo finance",
		logger.StringField("symbol", symbol),
		logger.IntField("count", len(bars)),
	)
	return bars, nil
}
