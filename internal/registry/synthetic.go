package registry

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
	"github.com/gtoboy77/MoneyTrainer/internal/session"
)

// Synthetic is a manually defined position: one row at 100% whose amount
// is the source total.
type Synthetic struct {
	Code string
	Name string
}

// Fetch returns the single constant row
func (s Synthetic) Fetch(ctx context.Context, _ *session.Session) (FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return FetchResult{}, err
	}

	name := s.Name
	if name == "" {
		name = s.Code
	}

	return FetchResult{
		Rows: []holdings.RawRow{{
			Code:          s.Code,
			Name:          name,
			WeightPercent: decimal.NewFromInt(100),
		}},
	}, nil
}
