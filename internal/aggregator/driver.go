// Package aggregator runs every registered source and assembles one ordered report.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
	"github.com/gtoboy77/MoneyTrainer/internal/registry"
	"github.com/gtoboy77/MoneyTrainer/internal/session"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

// TotalLookup resolves a ledger cell to an amount; failures degrade to 0
type TotalLookup interface {
	Lookup(ctx context.Context, ref registry.CellRef) int64
}

// SessionFactory creates the per-run session shared by all adapters
type SessionFactory func() (*session.Session, error)

// Config holds driver configuration
type Config struct {
	Workers int // concurrent sources
}

// Driver fans out over the registry and fans the reports back in
// ⭐ SSOT: 종목 구성 집계 오케스트레이션은 이 패키지에서만
type Driver struct {
	registry   *registry.Registry
	totals     TotalLookup
	newSession SessionFactory
	workers    int
	logger     *logger.Logger
}

// NewDriver creates a new Driver
func NewDriver(reg *registry.Registry, totals TotalLookup, newSession SessionFactory, cfg Config, log *logger.Logger) *Driver {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	return &Driver{
		registry:   reg,
		totals:     totals,
		newSession: newSession,
		workers:    workers,
		logger:     log.WithModule("aggregator"),
	}
}

// Registry returns the registry the driver runs over
func (d *Driver) Registry() *registry.Registry {
	return d.registry
}

// Run aggregates all sources. Reports follow registration order.
// When every source failed the reports are still returned, with ErrAllSourcesFailed.
func (d *Driver) Run(ctx context.Context) (*holdings.Result, error) {
	return d.RunWithObserver(ctx, nil)
}

// RunWithObserver is Run with per-source progress events.
// obs is called from worker goroutines and must be safe for concurrent use.
func (d *Driver) RunWithObserver(ctx context.Context, obs Observer) (*holdings.Result, error) {
	sess, err := d.newSession()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	runID := uuid.NewString()
	sources := d.registry.Sources()
	progress := newTracker(runID, obs)

	result := &holdings.Result{
		RunID:     runID,
		StartedAt: time.Now(),
		Reports:   make([]holdings.SourceReport, len(sources)),
	}

	log := d.logger.WithRun(runID)
	log.WithFields(map[string]interface{}{
		"sources": len(sources),
		"workers": d.workers,
	}).Info("Starting aggregation")

	for _, src := range sources {
		progress.emit(src.ID, StatePending, nil)
	}

	var g errgroup.Group
	g.SetLimit(d.workers)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			// 각 고루틴은 자기 슬롯에만 기록
			result.Reports[i] = d.runSource(ctx, sess, src, progress, log)
			return nil
		})
	}
	_ = g.Wait()

	result.FinishedAt = time.Now()

	log.WithFields(map[string]interface{}{
		"success":  len(sources) - result.FailedCount(),
		"failed":   result.FailedCount(),
		"duration": result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("Aggregation completed")

	if result.AllFailed() {
		return result, holdings.ErrAllSourcesFailed
	}
	return result, nil
}

// runSource never fails: errors and panics become an error report
func (d *Driver) runSource(ctx context.Context, sess *session.Session, src registry.Source, progress *tracker, log *logger.Logger) holdings.SourceReport {
	start := time.Now()
	log = log.WithSource(src.ID)

	report, err := d.buildReport(ctx, sess, src, progress)
	if err != nil {
		log.WithError(err).WithField("duration", time.Since(start).String()).Error("Source failed")
		progress.emit(src.ID, StateFailed, err)
		return holdings.SourceReport{
			ID:         src.ID,
			Title:      holdings.ErrorTitle(src.Name),
			Components: []holdings.AllocatedHolding{},
			Error:      err.Error(),
		}
	}

	log.WithFields(map[string]interface{}{
		"rows":     len(report.Components),
		"total":    report.TotalAmount,
		"duration": time.Since(start).String(),
	}).Debug("Source done")
	progress.emit(src.ID, StateDone, nil)

	return report
}

func (d *Driver) buildReport(ctx context.Context, sess *session.Session, src registry.Source, progress *tracker) (report holdings.SourceReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = holdings.NewSourceFetchError(src.ID, "panic", fmt.Errorf("%v", r))
		}
	}()

	progress.emit(src.ID, StateFetching, nil)

	total := d.lookupTotal(ctx, src.TotalRefs)

	fetched, err := src.Adapter.Fetch(ctx, sess)
	if err != nil {
		return holdings.SourceReport{}, err
	}

	progress.emit(src.ID, StateReducing, nil)
	reduced := holdings.Reduce(fetched.Rows, src.MaxItems)

	progress.emit(src.ID, StateAllocating, nil)
	allocated := holdings.Allocate(reduced, total)

	title := holdings.ResolveTitle(src.ID, fetched.PageTitle, d.registry.Titles())

	return holdings.SourceReport{
		ID:          src.ID,
		Title:       holdings.TitleWithAmount(title, total),
		Components:  allocated,
		TotalAmount: total,
	}, nil
}

// lookupTotal sums the source's ledger cells
func (d *Driver) lookupTotal(ctx context.Context, refs []registry.CellRef) int64 {
	var total int64
	for _, ref := range refs {
		total += d.totals.Lookup(ctx, ref)
	}
	return total
}
