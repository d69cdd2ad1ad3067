package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "moneytrainer",
	Short: "MoneyTrainer - 계좌별 ETF 구성종목 집계",
	Long: `MoneyTrainer Unified CLI

계좌에 담긴 ETF/펀드의 구성종목을 수집하고,
상위 N개로 줄인 뒤 계좌 금액을 비중대로 배분합니다.

Usage:
  go run ./cmd/moneytrainer [command]

Examples:
  go run ./cmd/moneytrainer api
  go run ./cmd/moneytrainer aggregate --format markdown
  go run ./cmd/moneytrainer aggregate --only tiger,cash
  go run ./cmd/moneytrainer sources
  go run ./cmd/moneytrainer scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging (overrides LOG_LEVEL)")
}
