package oracle

import (
	"github.com/shopspring/decimal"
	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/domain"
)

type static struct {
	quotes map[domain.Address]decimal.Decimal
}

// NewStatic builds a PriceOracle backed by a fixed quote table, keyed
// by lowercased token address. Tokens without a quote are unsupported.
func NewStatic(quotes map[domain.Address]decimal.Decimal) domain.PriceOracle {
	lowered := make(map[domain.Address]decimal.Decimal, len(quotes))
	for token, quote := range quotes {
		lowered[token.ToLower()] = quote
	}
	return &static{quotes: lowered}
}

func (s *static) PriceOf(c bCtx.Ctx, token domain.Address) (decimal.Decimal, error) {
	quote, ok := s.quotes[token.ToLower()]
	if !ok {
		return decimal.Zero, domain.ErrUnsupportedToken
	}
	return quote, nil
}
