// Package archive stores aggregation results for history.
// Archived runs are never read back to answer an aggregation request.
package archive

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
)

//go:embed schema.sql
var schemaSQL string

// ErrSnapshotNotFound is returned by GetSnapshot for unknown run ids
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Summary describes one archived run
type Summary struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	SourceCount  int       `json:"source_count"`
	FailedCount  int       `json:"failed_count"`
	GrandTotal   int64     `json:"grand_total"`
	RegistryHash string    `json:"registry_hash,omitempty"`
}

// Snapshot is an archived run with its report payload as stored
type Snapshot struct {
	Summary
	Payload json.RawMessage `json:"payload"`
}

// Summarize computes the summary columns of a result
func Summarize(result *holdings.Result, registryHash string) Summary {
	var total int64
	for _, rep := range result.Reports {
		total += rep.TotalAmount
	}

	return Summary{
		RunID:        result.RunID,
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
		SourceCount:  len(result.Reports),
		FailedCount:  result.FailedCount(),
		GrandTotal:   total,
		RegistryHash: registryHash,
	}
}

// Repository handles snapshot persistence
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the snapshot table when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

// SaveSnapshot archives one run, keyed by its run id
func (r *Repository) SaveSnapshot(ctx context.Context, result *holdings.Result, registryHash string) (Summary, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return Summary{}, fmt.Errorf("marshal result: %w", err)
	}

	sum := Summarize(result, registryHash)

	query := `
		INSERT INTO holdings.snapshots (
			run_id,
			started_at,
			finished_at,
			source_count,
			failed_count,
			grand_total,
			registry_hash,
			payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO NOTHING
	`

	_, err = r.db.Exec(ctx, query,
		sum.RunID,
		sum.StartedAt,
		sum.FinishedAt,
		sum.SourceCount,
		sum.FailedCount,
		sum.GrandTotal,
		sum.RegistryHash,
		payload,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("insert snapshot: %w", err)
	}

	return sum, nil
}

// ListSnapshots returns the most recent runs first
func (r *Repository) ListSnapshots(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT run_id::text, started_at, finished_at, source_count, failed_count, grand_total, registry_hash
		FROM holdings.snapshots
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.RunID, &s.StartedAt, &s.FinishedAt, &s.SourceCount, &s.FailedCount, &s.GrandTotal, &s.RegistryHash); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	return summaries, nil
}

// GetSnapshot returns one archived run
func (r *Repository) GetSnapshot(ctx context.Context, runID string) (*Snapshot, error) {
	query := `
		SELECT run_id::text, started_at, finished_at, source_count, failed_count, grand_total, registry_hash, payload
		FROM holdings.snapshots
		WHERE run_id::text = $1
	`

	var s Snapshot
	err := r.db.QueryRow(ctx, query, runID).Scan(
		&s.RunID, &s.StartedAt, &s.FinishedAt, &s.SourceCount, &s.FailedCount, &s.GrandTotal, &s.RegistryHash, &s.Payload,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	return &s, nil
}
