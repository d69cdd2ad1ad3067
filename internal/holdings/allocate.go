package holdings

import "github.com/shopspring/decimal"

// Allocate converts percent weights into whole-won amounts of total.
//
// Pass 1 floors total×weight/100 for every row; pass 2 adds the whole
// remainder to the last row, so the amounts always sum to total exactly.
// With total <= 0 every amount is unknown (rendered "-"), never 0.
func Allocate(holdings []Holding, total int64) []AllocatedHolding {
	out := make([]AllocatedHolding, len(holdings))
	for i, h := range holdings {
		out[i] = AllocatedHolding{Holding: h}
	}

	if total <= 0 || len(out) == 0 {
		return out
	}

	// pass 1: provisional floors
	t := decimal.NewFromInt(total)
	var sum int64
	for i := range out {
		w := out[i].WeightPercent
		if w.IsNegative() {
			w = decimal.Zero
		}
		amount := t.Mul(w).Shift(-2).Floor().IntPart()
		out[i].Amount = amount
		out[i].Known = true
		sum += amount
	}

	// pass 2: remainder to the last row
	last := len(out) - 1
	out[last].Amount += total - sum

	// Weights above 100 overdraw the last row; push the deficit upwards.
	for i := last; i > 0 && out[i].Amount < 0; i-- {
		out[i-1].Amount += out[i].Amount
		out[i].Amount = 0
	}

	return out
}

// SumAmounts returns Σ Amount over known rows
func SumAmounts(rows []AllocatedHolding) int64 {
	var sum int64
	for _, r := range rows {
		if r.Known {
			sum += r.Amount
		}
	}
	return sum
}
