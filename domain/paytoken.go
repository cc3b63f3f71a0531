package domain

import (
	"github.com/x-xyz/settlement/base/ctx"
)

// PayToken is an allow-listed payment token. Listings and auctions may
// only settle in registered tokens.
type PayToken struct {
	Name          string  `bson:"name"`
	Symbol        string  `bson:"symbol"`
	Decimals      int32   `bson:"decimals"`
	Address       Address `bson:"address"`
	OracleAddress Address `bson:"oracleAddress"`
}

func (t *PayToken) ToId() *PayTokenId {
	return &PayTokenId{
		Address: t.Address,
	}
}

type PayTokenId struct {
	Address Address `bson:"address"`
}

type PayTokenRepo interface {
	FindOne(ctx.Ctx, Address) (*PayToken, error)
	Create(ctx.Ctx, *PayToken) error
	Upsert(ctx.Ctx, *PayToken) error
	Remove(ctx.Ctx, Address) error
}

// PayTokenUseCase wraps the allow-list checks used by the engines.
type PayTokenUseCase interface {
	IsSupported(ctx.Ctx, Address) (bool, error)
	Register(ctx.Ctx, *PayToken) error
	Deregister(ctx.Ctx, Address) error
}
