package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gtoboy77/MoneyTrainer/internal/scheduler"
	"github.com/gtoboy77/MoneyTrainer/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스냅샷 스케줄러",
	Long: `집계 결과를 SNAPSHOT_SCHEDULE마다 DB에 저장합니다.
DATABASE_URL이 필요합니다.

Subcommands:
  start   - 스케줄러 시작
  run     - 스냅샷 작업 즉시 1회 실행

Example:
  go run ./cmd/moneytrainer scheduler start
  go run ./cmd/moneytrainer scheduler run`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		RunE:  runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run",
		Short: "스냅샷 작업 즉시 실행",
		RunE:  runSnapshotNow,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// initScheduler wires the snapshot job into a new scheduler
func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)
	job := jobs.NewSnapshotJob(a.driver, a.archive, a.cfg.Snapshot.Schedule, a.registry.Hash(), a.log)
	if err := sched.AddJob(job); err != nil {
		return nil, err
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== MoneyTrainer Scheduler ===")

	a, err := newApp(cmd.Context(), appOptions{needDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Snapshot.Enabled {
		a.log.Warn("SNAPSHOT_ENABLED is false; starting scheduler anyway")
	}

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Start()

	fmt.Println("\n✅ Scheduler started")
	for _, name := range sched.GetAllJobs() {
		if next, ok := sched.NextRun(name); ok {
			fmt.Printf("  - %s (next: %s)\n", name, next.Format("2006-01-02 15:04:05"))
		}
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	return nil
}

func runSnapshotNow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{needDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	for _, name := range sched.GetAllJobs() {
		result, err := sched.RunJob(name)
		if err != nil {
			return err
		}
		if !result.Success {
			PrintError(fmt.Sprintf("%s failed in %s: %s", name, result.Duration, result.Error))
			return fmt.Errorf("job %s failed", name)
		}
		PrintSuccess(fmt.Sprintf("%s completed in %s", name, result.Duration))
	}
	return nil
}
