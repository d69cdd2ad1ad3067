package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gtoboy77/MoneyTrainer/internal/archive"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

// SnapshotReader reads the snapshot archive
type SnapshotReader interface {
	ListSnapshots(ctx context.Context, limit int) ([]archive.Summary, error)
	GetSnapshot(ctx context.Context, runID string) (*archive.Snapshot, error)
}

// SnapshotHandler serves archived runs
type SnapshotHandler struct {
	store  SnapshotReader
	logger *logger.Logger
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(store SnapshotReader, log *logger.Logger) *SnapshotHandler {
	return &SnapshotHandler{store: store, logger: log}
}

// List returns recent snapshots
// GET /api/snapshots?limit=N
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := h.store.ListSnapshots(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list snapshots")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve snapshots")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    list,
	})
}

// Get returns one snapshot with its stored report
// GET /api/snapshots/{id}
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	snap, err := h.store.GetSnapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, archive.ErrSnapshotNotFound) {
			respondError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		h.logger.WithError(err).WithRun(id).Error("Failed to get snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve snapshot")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    snap,
	})
}
