package domain

import (
	"github.com/shopspring/decimal"
	"github.com/x-xyz/settlement/base/ctx"
)

// PriceOracle quotes a payment token in the reference unit. Quotes are
// consumed for display prices only and never gate settlement.
type PriceOracle interface {
	PriceOf(c ctx.Ctx, token Address) (decimal.Decimal, error)
}
