package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gtoboy77/MoneyTrainer/internal/api"
	"github.com/gtoboy77/MoneyTrainer/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

DATABASE_URL이 설정되어 있으면 스냅샷 조회 엔드포인트도 함께 열립니다.

Endpoints:
  GET  /health                 - Health check
  GET  /api/constituents       - 전체 소스 집계 (매 요청마다 새로 실행)
  GET  /api/sources            - 등록된 소스 목록
  GET  /api/snapshots          - 스냅샷 목록 (DB 필요)
  GET  /api/snapshots/{id}     - 스냅샷 조회 (DB 필요)
  GET  /ws/constituents        - 집계 진행상황 websocket

Example:
  go run ./cmd/moneytrainer api
  go run ./cmd/moneytrainer api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본값: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== MoneyTrainer API Server ===")

	a, err := newApp(cmd.Context(), appOptions{optionalDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	routes := api.Routes{
		Holdings: handlers.NewHoldingsHandler(a.driver, a.registry, a.log),
	}
	if a.archive != nil {
		routes.Snapshots = handlers.NewSnapshotHandler(a.archive, a.log)
		routes.DB = a.db
	}

	server := api.New(a.cfg, a.log, api.NewRouter(routes, a.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s (%d sources)\n", a.cfg.Port, a.registry.Len())
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
