package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
)

// aggregateCmd runs one aggregation and prints it
var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "전체 소스 1회 집계",
	Long: `등록된 모든 소스를 한 번 집계해서 표준출력으로 보여줍니다.
일부 소스가 실패해도 나머지는 출력되며, 모두 실패하면 종료코드 1.

Formats:
  table     - 터미널 표 (기본값)
  markdown  - glamour 렌더링 마크다운
  json      - API와 같은 JSON

Example:
  go run ./cmd/moneytrainer aggregate
  go run ./cmd/moneytrainer aggregate --format json > out.json
  go run ./cmd/moneytrainer aggregate --only tiger,cash --format markdown`,
	RunE: runAggregate,
}

var (
	aggregateFormat string
	aggregateOnly   string
)

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringVarP(&aggregateFormat, "format", "f", FormatTable, "출력 형식 (table|markdown|json)")
	aggregateCmd.Flags().StringVar(&aggregateOnly, "only", "", "집계할 소스 id (쉼표 구분)")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	if !validFormat(aggregateFormat) {
		return fmt.Errorf("unknown format %q (table|markdown|json)", aggregateFormat)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{only: aggregateOnly})
	if err != nil {
		return err
	}
	defer a.Close()

	result, runErr := a.driver.Run(ctx)
	if runErr != nil && !errors.Is(runErr, holdings.ErrAllSourcesFailed) {
		return fmt.Errorf("aggregate: %w", runErr)
	}

	if err := WriteResult(os.Stdout, result, aggregateFormat); err != nil {
		return err
	}

	if errors.Is(runErr, holdings.ErrAllSourcesFailed) {
		return runErr
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return nil
}
