package holdings

import (
	"strconv"

	"github.com/Rhymond/go-money"
)

// wonFormatter renders whole won with the unit after the number: 1,234원
var wonFormatter = money.NewFormatter(0, ".", ",", "원", "1$")

// FormatAmount formats an integral KRW amount, e.g. 1234567 → "1,234,567원"
func FormatAmount(amount int64) string {
	return wonFormatter.Format(amount)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
