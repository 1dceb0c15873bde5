package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ai-trading-bot",
	Short: "Backtest engine and strategy lab for AI-assisted trading",
}

func Execute() error {
	// A .env file is optional; real env vars win either way.
	_ = godotenv.Load()

	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(migrateCmd)
}
