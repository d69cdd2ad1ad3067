package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

// checkCmd verifies the collaborators without running a full aggregation
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "연결 점검 (레지스트리, 구글시트, DB)",
	Long: `집계 없이 외부 연결만 점검합니다.

이 명령어는:
- sources.yaml 로드 및 검증
- 첫 번째 소스의 계좌금액 셀 조회 (구글시트)
- DATABASE_URL이 있으면 Health Check 및 풀 통계 표시

Example:
  go run ./cmd/moneytrainer check`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== MoneyTrainer Connection Check ===")

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	a, err := newApp(ctx, appOptions{optionalDB: true})
	if err != nil {
		PrintError(err.Error())
		return err
	}
	defer a.Close()

	PrintSuccess(fmt.Sprintf("Config loaded (ENV: %s)", a.cfg.Env))
	PrintSuccess(fmt.Sprintf("Registry: %d sources (hash %s)", a.registry.Len(), shortHash(a.registry.Hash())))

	// Ledger
	for _, src := range a.registry.Sources() {
		if len(src.TotalRefs) == 0 {
			continue
		}
		ref := src.TotalRefs[0]
		amount := a.ledger.Lookup(ctx, ref)
		if amount == 0 {
			PrintError(fmt.Sprintf("Sheet cell %s (%s) returned no amount", ref, src.ID))
		} else {
			PrintSuccess(fmt.Sprintf("Sheet cell %s (%s) = %d", ref, src.ID, amount))
		}
		break
	}

	// Database
	if a.db == nil {
		fmt.Println("ℹ️  DATABASE_URL not set, snapshot archive disabled")
		return nil
	}

	fmt.Printf("   Database URL: %s\n", maskDatabaseURL(a.cfg.Database.URL))
	status := a.db.HealthCheck(ctx)
	if !status.Healthy {
		PrintError("Database health check failed: " + status.Error)
		return fmt.Errorf("database unhealthy")
	}

	PrintSuccess(fmt.Sprintf("Database healthy (%v)", status.ResponseTime))
	fmt.Println("📊 Connection Pool Statistics:")
	fmt.Printf("   Max Connections: %d\n", status.MaxConns)
	fmt.Printf("   Total Connections: %d\n", status.TotalConns)
	fmt.Printf("   Acquired Connections: %d\n", status.AcquiredConns)
	fmt.Printf("   Idle Connections: %d\n", status.IdleConns)

	return nil
}

// maskDatabaseURL hides the password of a postgres URL for display
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(invalid url)"
	}
	return u.Redacted()
}
