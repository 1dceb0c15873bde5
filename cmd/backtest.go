package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/internal/repository"
	"github.com/Enzooo97/ai-trading-bot/internal/service"
)

var (
	backtestStrategy  string
	backtestSymbols   []string
	backtestDays      int
	backtestTimeframe string
	backtestCapital   float64
	compareStrategies []string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run one backtest and print the report",
	Run:   RunBacktestCLI,
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run several strategies over the same window and rank them",
	Run:   RunCompareCLI,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestStrategy, "strategy", "", "strategy name (see the strategies listing)")
	backtestCmd.Flags().StringSliceVar(&backtestSymbols, "symbols", nil, "symbols to replay, comma separated")
	backtestCmd.Flags().IntVar(&backtestDays, "days", 30, "lookback window in days, ending now")
	backtestCmd.Flags().StringVar(&backtestTimeframe, "timeframe", dto.Timeframe1Hour, "bar timeframe (1m, 5m, 15m, 30m, 1h, 1d)")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "initial capital, 0 uses the configured default")
	_ = backtestCmd.MarkFlagRequired("strategy")
	_ = backtestCmd.MarkFlagRequired("symbols")

	compareCmd.Flags().StringSliceVar(&compareStrategies, "strategies", []string{"momentum_breakout", "momentum_breakout_llm"}, "strategies to compare")
	compareCmd.Flags().StringSliceVar(&backtestSymbols, "symbols", nil, "symbols to replay, comma separated")
	compareCmd.Flags().IntVar(&backtestDays, "days", 30, "lookback window in days, ending now")
	compareCmd.Flags().StringVar(&backtestTimeframe, "timeframe", dto.Timeframe1Hour, "bar timeframe (1m, 5m, 15m, 30m, 1h, 1d)")
	compareCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "initial capital, 0 uses the configured default")
	_ = compareCmd.MarkFlagRequired("symbols")
}

func RunBacktestCLI(cmd *cobra.Command, args []string) {
	ctx, services, cleanup := setupCLI()
	defer cleanup()

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -backtestDays)

	result, err := services.BacktestService.RunBacktest(ctx, dto.BacktestRequest{
		Strategy:       backtestStrategy,
		Symbols:        backtestSymbols,
		StartDate:      start,
		EndDate:        end,
		Timeframe:      backtestTimeframe,
		InitialCapital: backtestCapital,
	})
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	fmt.Print(service.FormatResult(result))
}

func RunCompareCLI(cmd *cobra.Command, args []string) {
	ctx, services, cleanup := setupCLI()
	defer cleanup()

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -backtestDays)

	comparison, err := services.BacktestService.Compare(ctx, dto.CompareRequest{
		Strategies:     compareStrategies,
		Symbols:        backtestSymbols,
		StartDate:      start,
		EndDate:        end,
		Timeframe:      backtestTimeframe,
		InitialCapital: backtestCapital,
	})
	if err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}

	fmt.Print(service.FormatComparison(comparison))
	for _, result := range comparison.Results {
		fmt.Print(service.FormatResult(&result))
	}
}

func setupCLI() (context.Context, *service.Service, func()) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}

	repo, err := repository.NewRepository(appDep.cfg, appDep.gormDB(), appDep.log, appDep.cache)
	if err != nil {
		log.Fatalf("Failed to create repository: %v", err)
	}

	services := service.NewService(appDep.cfg, appDep.log, repo, appDep.cache)

	cleanup := func() {
		if err := appDep.Close(); err != nil {
			log.Printf("Failed to close app dependency: %v", err)
		}
		stop()
	}
	return ctx, services, cleanup
}
