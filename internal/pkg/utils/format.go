package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

const lamportsPerSOL = 1_000_000_000

// FormatLamports converts a raw lamport amount to a human-readable SOL
// string.
// Example: 1234500000 => "1.2345"
func FormatLamports(lamports uint64) string {
	value := decimal.NewFromUint64(lamports).Div(decimal.NewFromInt(lamportsPerSOL))
	formatted := value.StringFixed(9)

	if strings.Contains(formatted, ".") {
		formatted = strings.TrimRight(formatted, "0")
		formatted = strings.TrimRight(formatted, ".")
	}
	return formatted
}

// FormatUSD renders a USD amount with two decimal places for display.
func FormatUSD(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
