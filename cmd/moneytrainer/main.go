package main

import (
	"os"

	"github.com/gtoboy77/MoneyTrainer/cmd/moneytrainer/commands"
)

// main is the entry point for the MoneyTrainer CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/moneytrainer [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
