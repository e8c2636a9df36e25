package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceOracle supplies the USD-per-SOL exchange rate. Implementations
// must always return a usable rate: when the upstream feed is down they
// degrade to a static fallback rather than failing, so the core keeps
// functioning with reduced accuracy.
type PriceOracle interface {
	CurrentRate(ctx context.Context) decimal.Decimal
}
