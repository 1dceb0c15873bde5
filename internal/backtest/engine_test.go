package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
)

type stubProvider struct {
	bars map[string][]dto.Bar
	err  error
}

func (p *stubProvider) GetBars(_ context.Context, symbol, _ string, _, _ time.Time) ([]dto.Bar, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.bars[symbol], nil
}

type stubStrategy struct {
	name         string
	requiredBars int
	analyze      func(symbol string, bars []dto.Bar, positions []dto.PositionInfo) (dto.Signal, error)
}

func (s *stubStrategy) Name() string      { return s.name }
func (s *stubStrategy) RequiredBars() int { return s.requiredBars }
func (s *stubStrategy) Analyze(_ context.Context, symbol string, bars []dto.Bar, _ dto.AccountInfo, positions []dto.PositionInfo) (dto.Signal, error) {
	return s.analyze(symbol, bars, positions)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	return log
}

// flatBars builds n hourly bars at a constant price.
func flatBars(n int, price float64) []dto.Bar {
	return rampBars(n, price, 0)
}

// rampBars builds n hourly bars whose close increases by step per bar.
func rampBars(n int, startPrice, step float64) []dto.Bar {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]dto.Bar, n)
	for i := range bars {
		price := startPrice + float64(i)*step
		bars[i] = dto.Bar{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			Volume:    1000,
		}
	}
	return bars
}

func defaultConfig() Config {
	return Config{
		InitialCapital:          100000,
		CommissionPerTrade:      0,
		SlippageBps:             0,
		MaxPositionHold:         1000 * time.Hour,
		EntryAcceptanceStrength: 0.7,
		MaxPositionSizeFraction: 0.15,
	}
}

// buyAtCloseAt buys once when the visible history reaches entryLen bars
// and closes once it reaches exitLen bars.
func buyAtCloseAt(entryLen, exitLen int) *stubStrategy {
	return &stubStrategy{
		name: "scripted",
		analyze: func(_ string, bars []dto.Bar, positions []dto.PositionInfo) (dto.Signal, error) {
			if len(positions) > 0 {
				if len(bars) >= exitLen {
					return dto.NewSignal(dto.ActionClose, 1.0, "scripted exit"), nil
				}
				return dto.HoldSignal("holding"), nil
			}
			if len(bars) == entryLen {
				return dto.NewSignal(dto.ActionBuy, 1.0, "scripted entry"), nil
			}
			return dto.HoldSignal("waiting"), nil
		},
	}
}

func TestRunSingleRoundTrip(t *testing.T) {
	bars := rampBars(200, 100, 0.5)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}
	eng := NewEngine(defaultConfig(), provider, testLogger(t))

	// Entry at bar index 100, exit at bar index 150.
	strat := buyAtCloseAt(101, 151)

	metrics, trades, equity, err := eng.Run(context.Background(), strat, []string{"AAPL"},
		bars[0].Timestamp, bars[199].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Len(t, equity, 1)

	trade := trades[0]
	entryClose := bars[100].Close
	exitClose := bars[150].Close
	wantQty := (100000 * 0.15) / entryClose
	wantPnL := (exitClose - entryClose) * wantQty

	assert.Equal(t, dto.SideLong, trade.Side)
	assert.Equal(t, bars[100].Timestamp, trade.EntryTime)
	assert.Equal(t, bars[150].Timestamp, trade.ExitTime)
	assert.InDelta(t, wantQty, trade.Quantity, 1e-9)
	assert.InDelta(t, wantPnL, trade.PnL, 1e-9)
	assert.Equal(t, "scripted exit", trade.ExitReason)
	assert.Equal(t, "scripted entry", trade.EntryReason)
	assert.True(t, trade.ExitTime.After(trade.EntryTime))

	assert.Equal(t, 1, metrics.TotalTrades)
	assert.InDelta(t, wantPnL/100000, metrics.TotalReturnPct, 1e-9)
	assert.InDelta(t, 100000+wantPnL, equity[0].Equity, 1e-9)
}

func TestRunForcedCloseAtSeriesEnd(t *testing.T) {
	bars := rampBars(200, 100, 0.5)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}
	eng := NewEngine(defaultConfig(), provider, testLogger(t))

	// Buys once and never emits close.
	strat := buyAtCloseAt(101, 10000)

	_, trades, equity, err := eng.Run(context.Background(), strat, []string{"AAPL"},
		bars[0].Timestamp, bars[199].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Len(t, equity, 1)

	assert.Equal(t, "backtest_end", trades[0].ExitReason)
	assert.Equal(t, bars[199].Timestamp, trades[0].ExitTime)
}

func TestRunSlippageRoundTripOnFlatPrice(t *testing.T) {
	bars := flatBars(60, 100)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}

	cfg := defaultConfig()
	cfg.SlippageBps = 100 // 1%
	eng := NewEngine(cfg, provider, testLogger(t))

	strat := buyAtCloseAt(10, 20)

	_, trades, _, err := eng.Run(context.Background(), strat, []string{"AAPL"},
		bars[0].Timestamp, bars[59].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	// Pay 1% entering and lose 1% exiting on an unmoved price.
	assert.InDelta(t, -0.02, trades[0].PnLPct, 0.001)
	assert.InDelta(t, 101, trades[0].EntryPrice, 1e-9)
	assert.InDelta(t, 99, trades[0].ExitPrice, 1e-9)
}

func TestRunMaxHoldCeiling(t *testing.T) {
	bars := flatBars(100, 100)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}

	cfg := defaultConfig()
	cfg.MaxPositionHold = 48 * time.Hour
	eng := NewEngine(cfg, provider, testLogger(t))

	// Never emits close on its own.
	strat := buyAtCloseAt(10, 10000)

	_, trades, _, err := eng.Run(context.Background(), strat, []string{"AAPL"},
		bars[0].Timestamp, bars[99].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	assert.Equal(t, "max_hold_time", trades[0].ExitReason)
	// Held strictly longer than 48h: entry at bar 9, exit at bar 58.
	assert.Equal(t, 49*time.Hour, trades[0].HoldDuration)
}

func TestRunEntryStrengthThreshold(t *testing.T) {
	bars := flatBars(50, 100)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}
	eng := NewEngine(defaultConfig(), provider, testLogger(t))

	strat := &stubStrategy{
		name: "weak",
		analyze: func(_ string, _ []dto.Bar, _ []dto.PositionInfo) (dto.Signal, error) {
			return dto.NewSignal(dto.ActionBuy, 0.69, "not confident"), nil
		},
	}

	metrics, trades, _, err := eng.Run(context.Background(), strat, []string{"AAPL"},
		bars[0].Timestamp, bars[49].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, dto.BacktestMetrics{}, *metrics)
}

func TestRunNonFiniteStrengthCoercedToHold(t *testing.T) {
	bars := flatBars(50, 100)

	for name, strength := range map[string]float64{
		"positive infinity": math.Inf(1),
		"negative infinity": math.Inf(-1),
		"nan":               math.NaN(),
	} {
		t.Run(name, func(t *testing.T) {
			provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}
			eng := NewEngine(defaultConfig(), provider, testLogger(t))

			// A raw literal bypasses the constructor clamp.
			strat := &stubStrategy{
				name: "broken",
				analyze: func(_ string, _ []dto.Bar, _ []dto.PositionInfo) (dto.Signal, error) {
					return dto.Signal{Action: dto.ActionBuy, Strength: strength, Reason: "overflowed"}, nil
				},
			}

			metrics, trades, _, err := eng.Run(context.Background(), strat, []string{"AAPL"},
				bars[0].Timestamp, bars[49].Timestamp, dto.Timeframe1Hour)
			require.NoError(t, err)
			assert.Empty(t, trades)
			assert.Equal(t, dto.BacktestMetrics{}, *metrics)
		})
	}
}

func TestRunNoReentrySameBar(t *testing.T) {
	bars := flatBars(50, 100)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}
	eng := NewEngine(defaultConfig(), provider, testLogger(t))

	// Always wants in, and wants out the bar after entry. Without the
	// close-blocks-entry rule this would close and reopen every bar.
	strat := &stubStrategy{
		name: "eager",
		analyze: func(_ string, _ []dto.Bar, positions []dto.PositionInfo) (dto.Signal, error) {
			if len(positions) > 0 {
				return dto.NewSignal(dto.ActionClose, 1.0, "out"), nil
			}
			return dto.NewSignal(dto.ActionBuy, 1.0, "in"), nil
		},
	}

	_, trades, _, err := eng.Run(context.Background(), strat, []string{"AAPL"},
		bars[0].Timestamp, bars[49].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	require.NotEmpty(t, trades)

	for i, trade := range trades {
		assert.True(t, trade.ExitTime.After(trade.EntryTime), "trade %d closed on its entry bar", i)
		if i > 0 {
			assert.False(t, trade.EntryTime.Before(trades[i-1].ExitTime.Add(time.Hour)),
				"trade %d reopened on the bar that closed trade %d", i, i-1)
		}
	}
}

func TestRunShortSide(t *testing.T) {
	// Price falls, a short should profit.
	bars := rampBars(60, 200, -1)
	provider := &stubProvider{bars: map[string][]dto.Bar{"TSLA": bars}}
	eng := NewEngine(defaultConfig(), provider, testLogger(t))

	strat := &stubStrategy{
		name: "short-once",
		analyze: func(_ string, bars []dto.Bar, positions []dto.PositionInfo) (dto.Signal, error) {
			if len(positions) > 0 {
				if len(bars) >= 40 {
					return dto.NewSignal(dto.ActionClose, 1.0, "cover"), nil
				}
				return dto.HoldSignal("riding"), nil
			}
			if len(bars) == 20 {
				return dto.NewSignal(dto.ActionSell, 1.0, "breakdown"), nil
			}
			return dto.HoldSignal("waiting"), nil
		},
	}

	_, trades, _, err := eng.Run(context.Background(), strat, []string{"TSLA"},
		bars[0].Timestamp, bars[59].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	assert.Equal(t, dto.SideShort, trades[0].Side)
	assert.Greater(t, trades[0].PnL, 0.0)
}

func TestRunCapitalConservation(t *testing.T) {
	bars := rampBars(300, 100, 0.3)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}
	eng := NewEngine(defaultConfig(), provider, testLogger(t))

	// Trades repeatedly: close after 5 bars in position.
	var entryBar int
	strat := &stubStrategy{
		name: "churner",
		analyze: func(_ string, bars []dto.Bar, positions []dto.PositionInfo) (dto.Signal, error) {
			if len(positions) > 0 {
				if len(bars)-entryBar >= 5 {
					return dto.NewSignal(dto.ActionClose, 1.0, "cycle done"), nil
				}
				return dto.HoldSignal("cycling"), nil
			}
			entryBar = len(bars)
			return dto.NewSignal(dto.ActionBuy, 1.0, "cycle start"), nil
		},
	}

	_, trades, equity, err := eng.Run(context.Background(), strat, []string{"AAPL"},
		bars[0].Timestamp, bars[299].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	require.NotEmpty(t, trades)

	assert.Len(t, equity, len(trades))

	var pnlSum float64
	for _, p := range equity {
		pnlSum += p.TradePnL
	}
	finalCapital := equity[len(equity)-1].Equity
	assert.InDelta(t, finalCapital-100000, pnlSum, 1e-6)

	// Checkpoints are non-decreasing in time.
	for i := 1; i < len(equity); i++ {
		assert.False(t, equity[i].Timestamp.Before(equity[i-1].Timestamp))
	}
}

func TestRunDeterminism(t *testing.T) {
	bars := rampBars(200, 100, 0.4)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}

	run := func() ([]dto.Trade, dto.BacktestMetrics) {
		eng := NewEngine(defaultConfig(), provider, testLogger(t))
		strat := buyAtCloseAt(50, 90)
		metrics, trades, _, err := eng.Run(context.Background(), strat, []string{"AAPL"},
			bars[0].Timestamp, bars[199].Timestamp, dto.Timeframe1Hour)
		require.NoError(t, err)
		return trades, *metrics
	}

	trades1, metrics1 := run()
	trades2, metrics2 := run()
	assert.Equal(t, trades1, trades2)
	assert.Equal(t, metrics1, metrics2)
}

func TestRunSkipsSymbolWithoutData(t *testing.T) {
	bars := rampBars(100, 100, 0.5)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}
	eng := NewEngine(defaultConfig(), provider, testLogger(t))

	strat := buyAtCloseAt(20, 40)

	_, trades, _, err := eng.Run(context.Background(), strat, []string{"MISSING", "AAPL"},
		bars[0].Timestamp, bars[99].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "AAPL", trades[0].Symbol)
}

func TestRunNoDataAtAll(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection refused")}
	eng := NewEngine(defaultConfig(), provider, testLogger(t))

	strat := buyAtCloseAt(20, 40)

	_, _, _, err := eng.Run(context.Background(), strat, []string{"AAPL", "TSLA"},
		time.Now().Add(-24*time.Hour), time.Now(), dto.Timeframe1Hour)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRunStrategyErrorCoercedToHold(t *testing.T) {
	bars := flatBars(50, 100)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}
	eng := NewEngine(defaultConfig(), provider, testLogger(t))

	strat := &stubStrategy{
		name: "broken",
		analyze: func(_ string, _ []dto.Bar, _ []dto.PositionInfo) (dto.Signal, error) {
			return dto.Signal{}, errors.New("indicator blew up")
		},
	}

	metrics, trades, _, err := eng.Run(context.Background(), strat, []string{"AAPL"},
		bars[0].Timestamp, bars[49].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, 0, metrics.TotalTrades)
}

func TestRunRequiredBarsSkipsWarmup(t *testing.T) {
	bars := flatBars(30, 100)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}
	eng := NewEngine(defaultConfig(), provider, testLogger(t))

	var minSeen int
	strat := &stubStrategy{
		name:         "warmup-check",
		requiredBars: 20,
		analyze: func(_ string, bars []dto.Bar, _ []dto.PositionInfo) (dto.Signal, error) {
			if minSeen == 0 || len(bars) < minSeen {
				minSeen = len(bars)
			}
			return dto.HoldSignal("counting"), nil
		},
	}

	_, _, _, err := eng.Run(context.Background(), strat, []string{"AAPL"},
		bars[0].Timestamp, bars[29].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	assert.Equal(t, 21, minSeen)
}

func TestRunNoEntryOnFinalBar(t *testing.T) {
	bars := flatBars(50, 100)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}
	eng := NewEngine(defaultConfig(), provider, testLogger(t))

	// Only ever signals entry when shown the full series.
	strat := &stubStrategy{
		name: "last-bar-buyer",
		analyze: func(_ string, bars []dto.Bar, _ []dto.PositionInfo) (dto.Signal, error) {
			if len(bars) == 50 {
				return dto.NewSignal(dto.ActionBuy, 1.0, "too late"), nil
			}
			return dto.HoldSignal("waiting"), nil
		},
	}

	_, trades, _, err := eng.Run(context.Background(), strat, []string{"AAPL"},
		bars[0].Timestamp, bars[49].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestRunCommissionDeducted(t *testing.T) {
	bars := flatBars(60, 100)
	provider := &stubProvider{bars: map[string][]dto.Bar{"AAPL": bars}}

	cfg := defaultConfig()
	cfg.CommissionPerTrade = 5
	eng := NewEngine(cfg, provider, testLogger(t))

	strat := buyAtCloseAt(10, 20)

	_, trades, _, err := eng.Run(context.Background(), strat, []string{"AAPL"},
		bars[0].Timestamp, bars[59].Timestamp, dto.Timeframe1Hour)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	// Flat price, zero slippage: the only pnl is the commission.
	assert.InDelta(t, -5, trades[0].PnL, 1e-9)
}
