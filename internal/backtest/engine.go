package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
)

// ErrNoData is returned when the bar provider yields nothing for every
// requested symbol. A run with no data at all would otherwise produce a
// misleading all-zero report.
var ErrNoData = errors.New("no bar data available for any requested symbol")

// BarProvider supplies historical candles for one symbol. An empty slice
// means no data exists for the range.
type BarProvider interface {
	GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]dto.Bar, error)
}

// Strategy is the decision rule consulted on every bar.
type Strategy interface {
	Name() string
	RequiredBars() int
	Analyze(ctx context.Context, symbol string, bars []dto.Bar, account dto.AccountInfo, positions []dto.PositionInfo) (dto.Signal, error)
}

// Config holds the simulation parameters for one run.
type Config struct {
	InitialCapital          float64
	CommissionPerTrade      float64
	SlippageBps             float64
	MaxPositionHold         time.Duration
	EntryAcceptanceStrength float64
	MaxPositionSizeFraction float64
}

// Engine replays bar series through a strategy and records the resulting
// trades and equity curve. Each run owns its own capital and position
// state; engines are cheap and must not be shared across concurrent runs.
type Engine struct {
	cfg      Config
	provider BarProvider
	log      *logger.Logger
}

func NewEngine(cfg Config, provider BarProvider, log *logger.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		provider: provider,
		log:      log,
	}
}

// openPosition is the in-flight position state during a walk.
type openPosition struct {
	side        dto.Side
	entryTime   time.Time
	entryPrice  float64
	quantity    float64
	entryReason string
}

// Run walks every symbol's bar series in order and reduces the outcome
// to a metrics report. Symbols without data are skipped; the run only
// fails when no symbol produced any bars at all.
func (e *Engine) Run(ctx context.Context, strat Strategy, symbols []string, start, end time.Time, timeframe string) (*dto.BacktestMetrics, []dto.Trade, []dto.EquityPoint, error) {
	e.log.InfoContext(ctx, "starting backtest",
		logger.StringField("strategy", strat.Name()),
		logger.IntField("symbols", len(symbols)),
		logger.TimeField("start", start),
		logger.TimeField("end", end),
	)

	barsBySymbol, err := e.fetchAll(ctx, symbols, timeframe, start, end)
	if err != nil {
		return nil, nil, nil, err
	}

	trades := make([]dto.Trade, 0)
	equity := make([]dto.EquityPoint, 0)
	capital := e.cfg.InitialCapital

	for _, symbol := range symbols {
		bars := barsBySymbol[symbol]
		if len(bars) == 0 {
			e.log.WarnContext(ctx, "no data for symbol, skipping", logger.StringField("symbol", symbol))
			continue
		}

		symTrades, symEquity, newCapital := e.walkSymbol(ctx, strat, symbol, bars, capital)
		trades = append(trades, symTrades...)
		equity = append(equity, symEquity...)
		capital = newCapital
	}

	metrics := CalculateMetrics(trades, equity, start, end, e.cfg.InitialCapital)

	e.log.InfoContext(ctx, "backtest complete",
		logger.StringField("strategy", strat.Name()),
		logger.IntField("trades", len(trades)),
		logger.Float64Field("win_rate", metrics.WinRate),
		logger.Float64Field("total_return_pct", metrics.TotalReturnPct),
	)

	return &metrics, trades, equity, nil
}

// fetchAll materializes every symbol's bars up front so the walk itself
// never blocks on I/O. Fetches run concurrently; per-symbol fetch errors
// degrade to a skip.
func (e *Engine) fetchAll(ctx context.Context, symbols []string, timeframe string, start, end time.Time) (map[string][]dto.Bar, error) {
	barsBySymbol := make(map[string][]dto.Bar, len(symbols))
	results := make([][]dto.Bar, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, symbol := range symbols {
		g.Go(func() error {
			bars, err := e.provider.GetBars(gctx, symbol, timeframe, start, end)
			if err != nil {
				e.log.WarnContext(gctx, "failed to fetch bars",
					logger.StringField("symbol", symbol),
					logger.ErrorField(err),
				)
				return nil
			}
			results[i] = bars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	anyData := false
	for i, symbol := range symbols {
		barsBySymbol[symbol] = results[i]
		if len(results[i]) > 0 {
			anyData = true
		}
	}
	if !anyData {
		return nil, ErrNoData
	}
	return barsBySymbol, nil
}

// walkSymbol replays one symbol's series. Exit conditions are evaluated
// before entry conditions on every bar, and a bar that closes a position
// never reopens one. Any position still open at the last bar is flushed.
func (e *Engine) walkSymbol(ctx context.Context, strat Strategy, symbol string, bars []dto.Bar, capital float64) ([]dto.Trade, []dto.EquityPoint, float64) {
	var (
		trades []dto.Trade
		equity []dto.EquityPoint
		pos    *openPosition
	)
	lastIdx := len(bars) - 1

	for i := strat.RequiredBars(); i < len(bars); i++ {
		bar := bars[i]
		hist := bars[:i+1]

		if pos != nil {
			sig := e.consult(ctx, strat, symbol, hist, capital, pos)

			held := bar.Timestamp.Sub(pos.entryTime)
			shouldClose := sig.Action == dto.ActionClose || held > e.cfg.MaxPositionHold
			if shouldClose {
				exitReason := "max_hold_time"
				if sig.Action == dto.ActionClose {
					exitReason = sig.Reason
				}

				trade, point := e.closePosition(pos, symbol, strat.Name(), bar.Timestamp, bar.Close, exitReason, capital)
				trades = append(trades, trade)
				equity = append(equity, point)
				capital = point.Equity
				pos = nil

				e.log.DebugContext(ctx, "closed position",
					logger.StringField("symbol", symbol),
					logger.Float64Field("pnl", trade.PnL),
					logger.StringField("exit_reason", trade.ExitReason),
				)
				// Closing frees the slot for the next bar only.
				continue
			}
		}

		// The final bar cannot host an entry: a position opened there
		// would flush in the same instant it was created.
		if pos == nil && i < lastIdx {
			sig := e.consult(ctx, strat, symbol, hist, capital, nil)

			if (sig.Action == dto.ActionBuy || sig.Action == dto.ActionSell) && sig.Strength >= e.cfg.EntryAcceptanceStrength {
				side := dto.SideLong
				if sig.Action == dto.ActionSell {
					side = dto.SideShort
				}

				entryPrice := FillPrice(bar.Close, side, true, e.cfg.SlippageBps)
				if entryPrice <= 0 {
					continue
				}
				quantity := (capital * e.cfg.MaxPositionSizeFraction) / entryPrice
				if quantity <= 0 {
					continue
				}

				pos = &openPosition{
					side:        side,
					entryTime:   bar.Timestamp,
					entryPrice:  entryPrice,
					quantity:    quantity,
					entryReason: sig.Reason,
				}

				e.log.DebugContext(ctx, "opened position",
					logger.StringField("symbol", symbol),
					logger.StringField("side", string(side)),
					logger.Float64Field("entry_price", entryPrice),
					logger.Float64Field("quantity", quantity),
				)
			}
		}
	}

	if pos != nil {
		lastBar := bars[lastIdx]
		trade, point := e.closePosition(pos, symbol, strat.Name(), lastBar.Timestamp, lastBar.Close, "backtest_end", capital)
		trades = append(trades, trade)
		equity = append(equity, point)
		capital = point.Equity
	}

	return trades, equity, capital
}

// consult asks the strategy for a verdict, coercing errors and malformed
// signals to hold so a misbehaving rule can never force a trade.
func (e *Engine) consult(ctx context.Context, strat Strategy, symbol string, hist []dto.Bar, capital float64, pos *openPosition) dto.Signal {
	var positions []dto.PositionInfo
	if pos != nil {
		positions = []dto.PositionInfo{{
			Symbol:        symbol,
			Side:          pos.side,
			Qty:           pos.quantity,
			AvgEntryPrice: pos.entryPrice,
			EntryTime:     pos.entryTime,
		}}
	}

	sig, err := strat.Analyze(ctx, symbol, hist, dto.AccountInfo{Equity: capital}, positions)
	if err != nil {
		e.log.WarnContext(ctx, "strategy error, treating as hold",
			logger.StringField("symbol", symbol),
			logger.StringField("strategy", strat.Name()),
			logger.ErrorField(err),
		)
		return dto.HoldSignal(fmt.Sprintf("analysis error: %v", err))
	}
	return dto.NewSignal(sig.Action, sig.Strength, sig.Reason).WithMetadata(sig.Metadata)
}

func (e *Engine) closePosition(pos *openPosition, symbol, strategyName string, exitTime time.Time, quotedExit float64, exitReason string, capital float64) (dto.Trade, dto.EquityPoint) {
	exitPrice := FillPrice(quotedExit, pos.side, false, e.cfg.SlippageBps)

	var pnl float64
	if pos.side == dto.SideLong {
		pnl = (exitPrice - pos.entryPrice) * pos.quantity
	} else {
		pnl = (pos.entryPrice - exitPrice) * pos.quantity
	}
	pnl -= e.cfg.CommissionPerTrade
	pnlPct := pnl / (pos.entryPrice * pos.quantity)

	trade := dto.Trade{
		Symbol:       symbol,
		Side:         pos.side,
		EntryTime:    pos.entryTime,
		ExitTime:     exitTime,
		EntryPrice:   pos.entryPrice,
		ExitPrice:    exitPrice,
		Quantity:     pos.quantity,
		PnL:          pnl,
		PnLPct:       pnlPct,
		StrategyName: strategyName,
		EntryReason:  pos.entryReason,
		ExitReason:   exitReason,
		HoldDuration: exitTime.Sub(pos.entryTime),
	}

	point := dto.EquityPoint{
		Timestamp: exitTime,
		Equity:    capital + pnl,
		TradePnL:  pnl,
	}

	return trade, point
}
