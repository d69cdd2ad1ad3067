package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/gtoboy77/MoneyTrainer/internal/archive"
	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

// Aggregator runs one aggregation
type Aggregator interface {
	Run(ctx context.Context) (*holdings.Result, error)
}

// SnapshotStore archives aggregation results
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, result *holdings.Result, registryHash string) (archive.Summary, error)
}

// SnapshotJob aggregates all sources and archives the result
// ⭐ SSOT: 스냅샷 스케줄은 이 Job에서만
type SnapshotJob struct {
	aggregator   Aggregator
	store        SnapshotStore
	schedule     string
	registryHash string
	logger       *logger.Logger
}

// NewSnapshotJob creates a new snapshot job
func NewSnapshotJob(agg Aggregator, store SnapshotStore, schedule, registryHash string, log *logger.Logger) *SnapshotJob {
	return &SnapshotJob{
		aggregator:   agg,
		store:        store,
		schedule:     schedule,
		registryHash: registryHash,
		logger:       log,
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "holdings_snapshot"
}

// Schedule returns the cron schedule (SNAPSHOT_SCHEDULE)
func (j *SnapshotJob) Schedule() string {
	return j.schedule
}

// Run aggregates once and archives the result.
// A run where every source failed is archived too, then reported as a failure.
func (j *SnapshotJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled holdings snapshot")

	result, runErr := j.aggregator.Run(ctx)
	if runErr != nil && !errors.Is(runErr, holdings.ErrAllSourcesFailed) {
		return fmt.Errorf("aggregate: %w", runErr)
	}

	summary, err := j.store.SaveSnapshot(ctx, result, j.registryHash)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":      summary.RunID,
		"sources":     summary.SourceCount,
		"failed":      summary.FailedCount,
		"grand_total": summary.GrandTotal,
	}).Info("Holdings snapshot archived")

	return runErr
}
