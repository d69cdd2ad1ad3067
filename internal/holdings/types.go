package holdings

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// OtherCode is the code of the synthetic remainder bucket
	OtherCode = "기타"
	// OtherName is the display name of the remainder bucket
	OtherName = "Others (기타)"
	// UnknownAmount is rendered when no total amount is known
	UnknownAmount = "-"
)

var (
	hundred = decimal.NewFromInt(100)
	// otherEpsilon: remainders at or below this weight are treated as rounding noise
	otherEpsilon = decimal.RequireFromString("0.01")
)

// RawRow is one holding as extracted by a source adapter
type RawRow struct {
	Code          string
	Name          string
	WeightPercent decimal.Decimal // 0 ~ 100
	Quantity      *string
	RawAmount     *string
}

// Holding is a ranked row after top-N reduction
type Holding struct {
	Rank          int
	Code          string
	Name          string
	WeightPercent decimal.Decimal
	Quantity      *string
}

// IsOther reports whether h is the synthetic remainder bucket
func (h Holding) IsOther() bool {
	return h.Code == OtherCode
}

// AllocatedHolding is a Holding with its share of the account total.
// Known is false when the total was unavailable.
type AllocatedHolding struct {
	Holding
	Amount int64
	Known  bool
}

// DisplayAmount renders the amount as "1,234원" or "-" when unknown
func (a AllocatedHolding) DisplayAmount() string {
	if !a.Known {
		return UnknownAmount
	}
	return FormatAmount(a.Amount)
}

// componentJSON is the wire shape of one report row
type componentJSON struct {
	No     string `json:"no"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Qty    string `json:"qty"`
	Amount string `json:"amount"`
	Weight string `json:"weight"`
}

// MarshalJSON renders the row as {no, code, name, qty, amount, weight}
func (a AllocatedHolding) MarshalJSON() ([]byte, error) {
	qty := UnknownAmount
	if a.Quantity != nil && *a.Quantity != "" {
		qty = *a.Quantity
	}

	return json.Marshal(componentJSON{
		No:     itoa(a.Rank),
		Code:   a.Code,
		Name:   a.Name,
		Qty:    qty,
		Amount: a.DisplayAmount(),
		Weight: a.WeightPercent.StringFixed(2),
	})
}

// SourceReport is the outcome for one registered source
type SourceReport struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Components  []AllocatedHolding `json:"components"`
	TotalAmount int64              `json:"total_amount,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Failed reports whether the source produced an error report
func (r SourceReport) Failed() bool {
	return r.Error != ""
}

// Result is one aggregation run, reports in registration order
type Result struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Reports    []SourceReport `json:"data"`
}

// FailedCount returns the number of failed sources
func (r *Result) FailedCount() int {
	n := 0
	for _, rep := range r.Reports {
		if rep.Failed() {
			n++
		}
	}
	return n
}

// AllFailed reports whether every source failed (false for an empty run)
func (r *Result) AllFailed() bool {
	return len(r.Reports) > 0 && r.FailedCount() == len(r.Reports)
}
