package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gtoboy77/MoneyTrainer/internal/aggregator"
	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
	"github.com/gtoboy77/MoneyTrainer/internal/registry"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

// Aggregator runs one fresh aggregation per call
type Aggregator interface {
	Run(ctx context.Context) (*holdings.Result, error)
	RunWithObserver(ctx context.Context, obs aggregator.Observer) (*holdings.Result, error)
}

// HoldingsHandler serves the constituents report and the source listing
// ⭐ SSOT: 종목 구성 API 핸들러는 이 구조체에서만
type HoldingsHandler struct {
	aggregator Aggregator
	registry   *registry.Registry
	logger     *logger.Logger
}

// NewHoldingsHandler creates a new holdings handler
func NewHoldingsHandler(agg Aggregator, reg *registry.Registry, log *logger.Logger) *HoldingsHandler {
	return &HoldingsHandler{
		aggregator: agg,
		registry:   reg,
		logger:     log,
	}
}

// constituentsResponse is the success envelope of /api/constituents
type constituentsResponse struct {
	Success bool                    `json:"success"`
	RunID   string                  `json:"run_id"`
	Data    []holdings.SourceReport `json:"data"`
}

// GetConstituents aggregates every source and returns the ordered reports.
// Partial failures are reported per source with 200; 500 only when all failed.
// GET /api/constituents
func (h *HoldingsHandler) GetConstituents(w http.ResponseWriter, r *http.Request) {
	result, err := h.aggregator.Run(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Aggregation failed")
		if errors.Is(err, holdings.ErrAllSourcesFailed) {
			respondError(w, http.StatusInternalServerError, "All sources failed.")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, constituentsResponse{
		Success: true,
		RunID:   result.RunID,
		Data:    result.Reports,
	})
}

// SourceInfo describes one registered source
type SourceInfo struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Kind     registry.Kind      `json:"kind"`
	Title    string             `json:"title,omitempty"`
	Cells    []registry.CellRef `json:"cells"`
	MaxItems int                `json:"max_items"`
}

// DescribeSources lists the registry in registration order
func DescribeSources(reg *registry.Registry) []SourceInfo {
	titles := reg.Titles()
	out := make([]SourceInfo, 0, reg.Len())
	for _, src := range reg.Sources() {
		cells := src.TotalRefs
		if cells == nil {
			cells = []registry.CellRef{}
		}
		out = append(out, SourceInfo{
			ID:       src.ID,
			Name:     src.Name,
			Kind:     src.Kind,
			Title:    titles[src.ID],
			Cells:    cells,
			MaxItems: src.MaxItems,
		})
	}
	return out
}

// ListSources returns the registered sources
// GET /api/sources
func (h *HoldingsHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    DescribeSources(h.registry),
	})
}
