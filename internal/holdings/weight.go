package holdings

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseWeight parses a percent weight as shown by providers:
// "12.34", "12.34%", " 1,234.5 % ", "-" (zero).
// Negative weights are clamped to zero.
func ParseWeight(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}

	w, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid weight %q: %w", s, err)
	}
	if w.IsNegative() {
		return decimal.Zero, nil
	}
	return w, nil
}

// leadingNumber is the numeric prefix of a display cell ("9.80% ▲0.05" → "9.80")
var leadingNumber = regexp.MustCompile(`^[+-]?\d+(\.\d+)?`)

// ParseLeadingWeight reads the weight at the start of a display cell and
// ignores whatever follows it (change figures, arrows, units).
// "-" and empty cells are zero; negative weights clamp to zero.
func ParseLeadingWeight(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}

	m := leadingNumber.FindString(s)
	if m == "" {
		return decimal.Zero, fmt.Errorf("invalid weight %q", s)
	}

	w, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid weight %q: %w", s, err)
	}
	if w.IsNegative() {
		return decimal.Zero, nil
	}
	return w, nil
}

// SumWeights returns the total weight of rows
func SumWeights(rows []RawRow) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.WeightPercent)
	}
	return sum
}
