package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Enzooo97/ai-trading-bot/config"
	"github.com/Enzooo97/ai-trading-bot/internal/backtest"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/internal/model"
	"github.com/Enzooo97/ai-trading-bot/internal/repository"
	"github.com/Enzooo97/ai-trading-bot/internal/strategy"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
)

type stubCandleRepo struct {
	bars []dto.Bar
}

func (s *stubCandleRepo) GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]dto.Bar, error) {
	return s.bars, nil
}

type stubRunRepo struct {
	created       []*model.BacktestRun
	deletedBefore []time.Time
	byID          map[uint]*model.BacktestRun
}

func (s *stubRunRepo) Create(ctx context.Context, run *model.BacktestRun) error {
	s.created = append(s.created, run)
	return nil
}

func (s *stubRunRepo) GetByID(ctx context.Context, id uint) (*model.BacktestRun, error) {
	if run, ok := s.byID[id]; ok {
		return run, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRunRepo) GetLatest(ctx context.Context, param model.GetBacktestRunParam) ([]model.BacktestRun, error) {
	return nil, nil
}

func (s *stubRunRepo) DeleteOlderThan(ctx context.Context, date time.Time) (int64, error) {
	s.deletedBefore = append(s.deletedBefore, date)
	return 1, nil
}

type scriptedStrategy struct {
	name     string
	entryLen int
	exitLen  int
}

func (s *scriptedStrategy) Name() string      { return s.name }
func (s *scriptedStrategy) RequiredBars() int { return 2 }

func (s *scriptedStrategy) Analyze(ctx context.Context, symbol string, bars []dto.Bar, account dto.AccountInfo, positions []dto.PositionInfo) (dto.Signal, error) {
	if len(positions) > 0 {
		if len(bars) >= s.exitLen {
			return dto.NewSignal(dto.ActionClose, 1, "scripted exit"), nil
		}
		return dto.HoldSignal("holding"), nil
	}
	if len(bars) == s.entryLen {
		return dto.NewSignal(dto.ActionBuy, 0.9, "scripted entry"), nil
	}
	return dto.HoldSignal("waiting"), nil
}

func risingBars(n int) []dto.Bar {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	bars := make([]dto.Bar, n)
	for i := range bars {
		price := 100.0 + float64(i)
		bars[i] = dto.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + 0.5,
			Low:       price - 0.5,
			Close:     price,
			Volume:    1000,
		}
	}
	return bars
}

func testBacktestService(t *testing.T, strategies ...backtest.Strategy) BacktestService {
	t.Helper()
	return testBacktestServiceWithRepo(t, nil, 0, strategies...)
}

func testBacktestServiceWithRepo(t *testing.T, runRepo repository.BacktestRunRepository, retentionDays int, strategies ...backtest.Strategy) BacktestService {
	t.Helper()

	log, err := logger.New("error", "console")
	require.NoError(t, err)

	cfg := &config.Config{
		Backtest: config.BacktestingArgs{
			InitialCapital:          100000,
			CommissionPerTrade:      0,
			SlippageBps:             0,
			MaxPositionHoldHours:    1000,
			EntryAcceptanceStrength: 0.7,
			MaxPositionSizeFraction: 0.15,
			HistoryRetentionDays:    retentionDays,
		},
	}

	repo := &repository.Repository{
		CandleRepo:      &stubCandleRepo{bars: risingBars(30)},
		BacktestRunRepo: runRepo,
	}

	return NewBacktestService(cfg, log, repo, strategy.NewRegistry(strategies...))
}

func TestRunBacktestAppliesDefaults(t *testing.T) {
	svc := testBacktestService(t, &scriptedStrategy{name: "scripted", entryLen: 5, exitLen: 10})

	result, err := svc.RunBacktest(context.Background(), dto.BacktestRequest{
		Strategy:  "scripted",
		Symbols:   []string{"AAPL"},
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "scripted", result.Strategy)
	assert.Equal(t, dto.Timeframe1Hour, result.Timeframe)
	assert.Equal(t, 100000.0, result.InitialCapital)
	require.Len(t, result.Trades, 1)
	assert.InDelta(t, result.InitialCapital+result.Trades[0].PnL, result.FinalCapital, 1e-9)
	assert.GreaterOrEqual(t, result.ExecutionTimeSeconds, 0.0)
}

func TestRunBacktestOverridesCapital(t *testing.T) {
	svc := testBacktestService(t, &scriptedStrategy{name: "scripted", entryLen: 5, exitLen: 10})

	result, err := svc.RunBacktest(context.Background(), dto.BacktestRequest{
		Strategy:       "scripted",
		Symbols:        []string{"AAPL"},
		StartDate:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		InitialCapital: 50000,
	})
	require.NoError(t, err)

	assert.Equal(t, 50000.0, result.InitialCapital)
}

func TestRunBacktestUnknownStrategy(t *testing.T) {
	svc := testBacktestService(t, &scriptedStrategy{name: "scripted", entryLen: 5, exitLen: 10})

	_, err := svc.RunBacktest(context.Background(), dto.BacktestRequest{
		Strategy:  "does_not_exist",
		Symbols:   []string{"AAPL"},
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}

func TestCompareRanksByReturn(t *testing.T) {
	early := &scriptedStrategy{name: "early_entry", entryLen: 5, exitLen: 10}
	late := &scriptedStrategy{name: "late_entry", entryLen: 20, exitLen: 22}
	svc := testBacktestService(t, early, late)

	result, err := svc.Compare(context.Background(), dto.CompareRequest{
		Strategies: []string{"late_entry", "early_entry", "late_entry"},
		Symbols:    []string{"AAPL"},
		StartDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// The duplicate runs once, and the bigger move ranks first.
	require.Len(t, result.Results, 2)
	assert.Equal(t, "early_entry", result.Results[0].Strategy)
	assert.Greater(t, result.Results[0].Metrics.TotalReturnPct, result.Results[1].Metrics.TotalReturnPct)
}

func TestCompareAllStrategiesFail(t *testing.T) {
	svc := testBacktestService(t, &scriptedStrategy{name: "scripted", entryLen: 5, exitLen: 10})

	_, err := svc.Compare(context.Background(), dto.CompareRequest{
		Strategies: []string{"missing_one", "missing_two"},
		Symbols:    []string{"AAPL"},
		StartDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}

func TestHistoryWithoutDatabase(t *testing.T) {
	svc := testBacktestService(t, &scriptedStrategy{name: "scripted", entryLen: 5, exitLen: 10})

	_, err := svc.History(context.Background(), model.GetBacktestRunParam{})
	assert.ErrorIs(t, err, ErrHistoryDisabled)

	_, err = svc.HistoryByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestHistoryByID(t *testing.T) {
	runRepo := &stubRunRepo{byID: map[uint]*model.BacktestRun{
		7: {ID: 7, RunName: "march run", StrategyName: "scripted"},
	}}
	svc := testBacktestServiceWithRepo(t, runRepo, 0,
		&scriptedStrategy{name: "scripted", entryLen: 5, exitLen: 10})

	run, err := svc.HistoryByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "march run", run.RunName)

	_, err = svc.HistoryByID(context.Background(), 8)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRunBacktestPersistsAndPrunes(t *testing.T) {
	runRepo := &stubRunRepo{}
	svc := testBacktestServiceWithRepo(t, runRepo, 90,
		&scriptedStrategy{name: "scripted", entryLen: 5, exitLen: 10})

	_, err := svc.RunBacktest(context.Background(), dto.BacktestRequest{
		Strategy:  "scripted",
		Symbols:   []string{"AAPL"},
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, runRepo.created, 1)
	assert.Equal(t, "scripted", runRepo.created[0].StrategyName)
	assert.Equal(t, 1, runRepo.created[0].TotalTrades)

	require.Len(t, runRepo.deletedBefore, 1)
	wantCutoff := time.Now().AddDate(0, 0, -90)
	assert.WithinDuration(t, wantCutoff, runRepo.deletedBefore[0], time.Minute)
}

func TestRunBacktestRetentionDisabled(t *testing.T) {
	runRepo := &stubRunRepo{}
	svc := testBacktestServiceWithRepo(t, runRepo, 0,
		&scriptedStrategy{name: "scripted", entryLen: 5, exitLen: 10})

	_, err := svc.RunBacktest(context.Background(), dto.BacktestRequest{
		Strategy:  "scripted",
		Symbols:   []string{"AAPL"},
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, runRepo.created, 1)
	assert.Empty(t, runRepo.deletedBefore)
}

func TestStrategyNames(t *testing.T) {
	svc := testBacktestService(t,
		&scriptedStrategy{name: "beta", entryLen: 5, exitLen: 10},
		&scriptedStrategy{name: "alpha", entryLen: 5, exitLen: 10},
	)

	assert.Equal(t, []string{"alpha", "beta"}, svc.StrategyNames())
}
