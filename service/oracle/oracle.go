// Package oracle converts raw payment-token amounts into reference
// unit display prices. Display prices decorate reads only; settlement
// never depends on them.
package oracle

import (
	"math/big"

	"github.com/shopspring/decimal"
	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/log"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/keys"
	"github.com/x-xyz/settlement/service/cache"
)

type PriceFormatter interface {
	// DisplayPrice scales `value` by the token's decimals and
	// multiplies by the oracle quote.
	DisplayPrice(c bCtx.Ctx, token domain.Address, value *big.Int) (decimal.Decimal, error)
}

type PriceFormatterCfg struct {
	Paytoken domain.PayTokenRepo
	Oracle   domain.PriceOracle
	Cache    cache.Service
}

type impl struct {
	paytoken domain.PayTokenRepo
	oracle   domain.PriceOracle
	cache    cache.Service
}

func NewPriceFormatter(cfg *PriceFormatterCfg) PriceFormatter {
	return &impl{
		paytoken: cfg.Paytoken,
		oracle:   cfg.Oracle,
		cache:    cfg.Cache,
	}
}

func (f *impl) DisplayPrice(c bCtx.Ctx, token domain.Address, value *big.Int) (decimal.Decimal, error) {
	payToken, err := f.paytoken.FindOne(c, token)
	if err == domain.ErrNotFound {
		return decimal.Zero, domain.ErrUnsupportedToken
	} else if err != nil {
		c.WithFields(log.Fields{
			"token": token,
			"err":   err,
		}).Error("paytoken.FindOne failed")
		return decimal.Zero, err
	}

	quote, err := f.quoteOf(c, token)
	if err != nil {
		c.WithFields(log.Fields{
			"token": token,
			"err":   err,
		}).Error("quoteOf failed")
		return decimal.Zero, err
	}

	amount := decimal.NewFromBigInt(value, -payToken.Decimals)
	return amount.Mul(quote), nil
}

func (f *impl) quoteOf(c bCtx.Ctx, token domain.Address) (decimal.Decimal, error) {
	var quote string
	err := f.cache.GetByFunc(c, keys.CacheKey(keys.PfxOraclePrice, token.ToLowerStr()), &quote, func() (interface{}, error) {
		price, err := f.oracle.PriceOf(c, token)
		if err != nil {
			return nil, err
		}
		s := price.String()
		return &s, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(quote)
}
