package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"time"

	"gorm.io/datatypes"

	"github.com/Enzooo97/ai-trading-bot/config"
	"github.com/Enzooo97/ai-trading-bot/internal/backtest"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/internal/model"
	"github.com/Enzooo97/ai-trading-bot/internal/repository"
	"github.com/Enzooo97/ai-trading-bot/internal/strategy"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
	"github.com/Enzooo97/ai-trading-bot/pkg/utils"
)

// ErrHistoryDisabled is returned when run history is requested but the
// process was started without a database.
var ErrHistoryDisabled = errors.New("run history requires database persistence")

// BacktestService runs simulations and serves their stored results.
type BacktestService interface {
	RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error)
	Compare(ctx context.Context, req dto.CompareRequest) (*dto.CompareResult, error)
	StrategyNames() []string
	History(ctx context.Context, param model.GetBacktestRunParam) ([]model.BacktestRun, error)
	HistoryByID(ctx context.Context, id uint) (*model.BacktestRun, error)
}

type backtestService struct {
	cfg      *config.Config
	log      *logger.Logger
	repo     *repository.Repository
	registry *strategy.Registry
}

func NewBacktestService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	registry *strategy.Registry,
) BacktestService {
	return &backtestService{
		cfg:      cfg,
		log:      log,
		repo:     repo,
		registry: registry,
	}
}

// RunBacktest replays the requested window through one strategy and
// returns the full result. The run is also persisted when a database is
// configured; a persistence failure is logged but does not fail the run.
func (s *backtestService) RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error) {
	strat, err := s.registry.Get(req.Strategy)
	if err != nil {
		return nil, err
	}

	timeframe := req.Timeframe
	if timeframe == "" {
		timeframe = dto.Timeframe1Hour
	}

	engineCfg := s.engineConfig(req)
	engine := backtest.NewEngine(engineCfg, s.repo.CandleRepo, s.log)

	started := time.Now()
	metrics, trades, equity, err := engine.Run(ctx, strat, req.Symbols, req.StartDate, req.EndDate, timeframe)
	if err != nil {
		s.log.ErrorContext(ctx, "backtest run failed",
			logger.StringField("strategy", req.Strategy),
			logger.ErrorField(err),
		)
		return nil, err
	}

	finalCapital := engineCfg.InitialCapital
	for _, t := range trades {
		finalCapital += t.PnL
	}

	result := &dto.BacktestResult{
		RunName:              req.RunName,
		Strategy:             strat.Name(),
		Symbols:              req.Symbols,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		Timeframe:            timeframe,
		InitialCapital:       engineCfg.InitialCapital,
		FinalCapital:         finalCapital,
		Metrics:              *metrics,
		Trades:               trades,
		EquityCurve:          equity,
		ExecutionTimeSeconds: time.Since(started).Seconds(),
	}

	if s.repo.BacktestRunRepo != nil {
		if err := s.persistRun(ctx, result, engineCfg); err != nil {
			s.log.WarnContext(ctx, "failed to persist backtest run",
				logger.StringField("strategy", result.Strategy),
				logger.ErrorField(err),
			)
		}
	}

	return result, nil
}

// Compare runs the same window through several strategies and ranks the
// results by total return, best first. Strategies that fail are skipped;
// the comparison only errors when every strategy failed.
func (s *backtestService) Compare(ctx context.Context, req dto.CompareRequest) (*dto.CompareResult, error) {
	results := make([]dto.BacktestResult, 0, len(req.Strategies))
	var (
		lastErr error
		ran     []string
	)

	for _, name := range req.Strategies {
		if !utils.ShouldContinue(ctx, s.log) {
			break
		}
		if utils.ContainsString(ran, name) {
			continue
		}
		ran = append(ran, name)

		runReq := dto.BacktestRequest{
			Strategy:       name,
			Symbols:        req.Symbols,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
			Timeframe:      req.Timeframe,
			InitialCapital: req.InitialCapital,
		}

		result, err := s.RunBacktest(ctx, runReq)
		if err != nil {
			s.log.WarnContext(ctx, "strategy skipped in comparison",
				logger.StringField("strategy", name),
				logger.ErrorField(err),
			)
			lastErr = err
			continue
		}
		results = append(results, *result)
	}

	if len(results) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, errors.New("no strategies produced a result")
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Metrics.TotalReturnPct > results[j].Metrics.TotalReturnPct
	})

	return &dto.CompareResult{Results: results}, nil
}

func (s *backtestService) StrategyNames() []string {
	return s.registry.Names()
}

func (s *backtestService) History(ctx context.Context, param model.GetBacktestRunParam) ([]model.BacktestRun, error) {
	if s.repo.BacktestRunRepo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.repo.BacktestRunRepo.GetLatest(ctx, param)
}

func (s *backtestService) HistoryByID(ctx context.Context, id uint) (*model.BacktestRun, error) {
	if s.repo.BacktestRunRepo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.repo.BacktestRunRepo.GetByID(ctx, id)
}

// engineConfig merges per-request overrides onto the configured defaults.
// A zero request value means the default applies.
func (s *backtestService) engineConfig(req dto.BacktestRequest) backtest.Config {
	defaults := s.cfg.Backtest

	engineCfg := backtest.Config{
		InitialCapital:          defaults.InitialCapital,
		CommissionPerTrade:      defaults.CommissionPerTrade,
		SlippageBps:             defaults.SlippageBps,
		MaxPositionHold:         time.Duration(defaults.MaxPositionHoldHours) * time.Hour,
		EntryAcceptanceStrength: defaults.EntryAcceptanceStrength,
		MaxPositionSizeFraction: defaults.MaxPositionSizeFraction,
	}
	if req.InitialCapital > 0 {
		engineCfg.InitialCapital = req.InitialCapital
	}
	if req.SlippageBps > 0 {
		engineCfg.SlippageBps = req.SlippageBps
	}
	return engineCfg
}

func (s *backtestService) persistRun(ctx context.Context, result *dto.BacktestResult, engineCfg backtest.Config) error {
	symbols, err := json.Marshal(result.Symbols)
	if err != nil {
		return err
	}
	parameters, err := json.Marshal(engineCfg)
	if err != nil {
		return err
	}
	metrics, err := json.Marshal(result.Metrics)
	if err != nil {
		return err
	}
	trades, err := json.Marshal(result.Trades)
	if err != nil {
		return err
	}
	equityCurve, err := json.Marshal(result.EquityCurve)
	if err != nil {
		return err
	}

	run := &model.BacktestRun{
		RunName:              result.RunName,
		StrategyName:         result.Strategy,
		Timeframe:            result.Timeframe,
		StartDate:            result.StartDate,
		EndDate:              result.EndDate,
		InitialCapital:       result.InitialCapital,
		FinalEquity:          result.FinalCapital,
		Symbols:              datatypes.JSON(symbols),
		Parameters:           datatypes.JSON(parameters),
		Metrics:              datatypes.JSON(metrics),
		Trades:               datatypes.JSON(trades),
		EquityCurve:          datatypes.JSON(equityCurve),
		TotalReturnPct:       result.Metrics.TotalReturnPct,
		TotalTrades:          result.Metrics.TotalTrades,
		WinningTrades:        result.Metrics.WinningTrades,
		LosingTrades:         result.Metrics.LosingTrades,
		WinRate:              result.Metrics.WinRate,
		ProfitFactor:         finiteOrZero(result.Metrics.ProfitFactor),
		SharpeRatio:          result.Metrics.SharpeRatio,
		MaxDrawdownPct:       result.Metrics.MaxDrawdownPct,
		ExecutionTimeSeconds: result.ExecutionTimeSeconds,
	}

	if err := s.repo.BacktestRunRepo.Create(ctx, run); err != nil {
		return err
	}

	if days := s.cfg.Backtest.HistoryRetentionDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		deleted, err := s.repo.BacktestRunRepo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			s.log.WarnContext(ctx, "failed to prune backtest history", logger.ErrorField(err))
		} else if deleted > 0 {
			s.log.InfoContext(ctx, "pruned old backtest runs",
				logger.IntField("deleted", int(deleted)),
				logger.TimeField("cutoff", cutoff),
			)
		}
	}
	return nil
}

// finiteOrZero guards the indexed numeric columns against the infinite
// ratios an all-winning run can produce.
func finiteOrZero(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

