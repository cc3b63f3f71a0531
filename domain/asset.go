package domain

import (
	"math/big"

	"github.com/x-xyz/settlement/base/ctx"
)

// AssetRegistry is the asset ownership/transfer primitive the engine
// settles against. Assets stay with the seller until settlement; the
// engine relies on operator approval rather than custodying them.
type AssetRegistry interface {
	OwnerOf(c ctx.Ctx, asset Address, tokenId TokenId) (Address, error)
	BalanceOf(c ctx.Ctx, asset Address, tokenId TokenId, holder Address) (*big.Int, error)
	IsApprovedOperator(c ctx.Ctx, asset Address, holder, operator Address) (bool, error)
	Transfer(c ctx.Ctx, asset Address, tokenId TokenId, from, to Address, quantity *big.Int) error
}
