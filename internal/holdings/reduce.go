package holdings

import "github.com/shopspring/decimal"

// Reduce caps rows to maxItems entries and appends an Other bucket holding
// max(0, 100 - Σtop) when that remainder exceeds 0.01.
// Rows are taken in the order given; adapters own the ordering.
// maxItems <= 0 disables truncation and the Other bucket.
func Reduce(rows []RawRow, maxItems int) []Holding {
	if len(rows) == 0 {
		return []Holding{}
	}

	if maxItems <= 0 {
		out := make([]Holding, 0, len(rows))
		for i, r := range rows {
			out = append(out, toHolding(i+1, r))
		}
		return out
	}

	top := rows
	if len(top) > maxItems {
		top = top[:maxItems]
	}

	out := make([]Holding, 0, len(top)+1)
	for i, r := range top {
		out = append(out, toHolding(i+1, r))
	}

	other := decimal.Max(decimal.Zero, hundred.Sub(SumWeights(top)))
	if other.GreaterThan(otherEpsilon) {
		out = append(out, Holding{
			Rank:          len(out) + 1,
			Code:          OtherCode,
			Name:          OtherName,
			WeightPercent: other,
		})
	}

	return out
}

func toHolding(rank int, r RawRow) Holding {
	return Holding{
		Rank:          rank,
		Code:          r.Code,
		Name:          r.Name,
		WeightPercent: r.WeightPercent,
		Quantity:      r.Quantity,
	}
}
