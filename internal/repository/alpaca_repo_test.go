package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Enzooo97/ai-trading-bot/config"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
)

func testAlpacaRepo(t *testing.T, maxRequestPerMin int) *alpacaRepository {
	t.Helper()

	log, err := logger.New("error", "console")
	require.NoError(t, err)

	cfg := &config.Config{
		Alpaca: config.Alpaca{
			Feed:             "iex",
			MaxRequestPerMin: maxRequestPerMin,
		},
	}
	return NewAlpacaRepository(cfg, log).(*alpacaRepository)
}

func TestNewAlpacaRepositoryConfiguresLimiter(t *testing.T) {
	repo := testAlpacaRepo(t, 60)

	// 60 requests per minute is one per second.
	assert.Equal(t, rate.Every(time.Second), repo.requestLimiter.Limit())
	assert.Equal(t, 1, repo.requestLimiter.Burst())
}

func TestAlpacaGetBarsHonoursCancelledContext(t *testing.T) {
	repo := testAlpacaRepo(t, 60)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The limiter wait fails before any network call is attempted.
	_, err := repo.GetBars(ctx, "AAPL", dto.Timeframe1Hour,
		time.Now().Add(-24*time.Hour), time.Now())
	assert.Error(t, err)
}

func TestMapTimeframe(t *testing.T) {
	for _, timeframe := range []string{
		dto.Timeframe1Min, dto.Timeframe5Min, dto.Timeframe15Min,
		dto.Timeframe30Min, dto.Timeframe1Hour, dto.Timeframe1Day,
	} {
		_, err := mapTimeframe(timeframe)
		assert.NoError(t, err, timeframe)
	}

	_, err := mapTimeframe("7h")
	assert.Error(t, err)
}
