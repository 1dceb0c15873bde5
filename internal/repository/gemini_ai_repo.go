package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/Enzooo97/ai-trading-bot/config"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
	"github.com/Enzooo97/ai-trading-bot/pkg/ratelimit"
)

type AIRepository interface {
	DetectRegime(ctx context.Context, symbol string, bars []dto.Bar) (*dto.RegimeDetection, error)
	ScoreTrade(ctx context.Context, req dto.TradeScoreRequest) (*dto.TradeScore, error)
}

type geminiAIRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

func NewGeminiAIRepository(cfg *config.Config, log *logger.Logger) (AIRepository, error) {
	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMin)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)
	tokenLimiter := ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMin)

	genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		tokenLimiter:   tokenLimiter,
		requestLimiter: requestLimiter,
		genAiClient:    genAiClient,
	}, nil
}

func (r *geminiAIRepository) DetectRegime(ctx context.Context, symbol string, bars []dto.Bar) (*dto.RegimeDetection, error) {
	prompt := r.promptDetectRegime(symbol, bars)

	raw, err := r.sendRequest(ctx, prompt)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to send regime request to gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to send regime request to gemini: %w", err)
	}

	var result dto.RegimeDetection
	if err := r.parseResponse(raw, &result); err != nil {
		r.logger.ErrorContext(ctx, "failed to parse regime response from gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to parse regime response from gemini: %w", err)
	}
	return &result, nil
}

func (r *geminiAIRepository) ScoreTrade(ctx context.Context, req dto.TradeScoreRequest) (*dto.TradeScore, error) {
	started := time.Now()
	prompt := r.promptScoreTrade(req)

	raw, err := r.sendRequest(ctx, prompt)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to send score request to gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to send score request to gemini: %w", err)
	}

	var result dto.TradeScore
	if err := r.parseResponse(raw, &result); err != nil {
		r.logger.ErrorContext(ctx, "failed to parse score response from gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to parse score response from gemini: %w", err)
	}
	result.ProcessingTimeMs = time.Since(started).Milliseconds()
	return &result, nil
}

func (r *geminiAIRepository) sendRequest(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}

	tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.Debug("gemini token count",
		logger.IntField("total_tokens", int(tokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)
	if err := r.tokenLimiter.Wait(ctx, int(tokenResp.TotalTokens)); err != nil {
		return "", fmt.Errorf("failed to wait for gemini token limit: %w", err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for gemini request limit: %w", err)
	}

	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("invalid response from gemini api: no content found")
	}
	return text, nil
}

func (r *geminiAIRepository) parseResponse(raw string, dest interface{}) error {
	jsonString := strings.Trim(raw, "`json\n`")
	return json.Unmarshal([]byte(jsonString), dest)
}
