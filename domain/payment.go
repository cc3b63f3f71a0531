package domain

import (
	"math/big"

	"github.com/x-xyz/settlement/base/ctx"
)

// PaymentLedger is the fungible payment-token primitive. TransferFrom
// draws on the payer's allowance to the engine, Transfer releases
// engine-custodied escrow back out.
type PaymentLedger interface {
	BalanceOf(c ctx.Ctx, token Address, holder Address) (*big.Int, error)
	AllowanceOf(c ctx.Ctx, token Address, holder, spender Address) (*big.Int, error)
	TransferFrom(c ctx.Ctx, token Address, from, to Address, amount *big.Int) error
	Transfer(c ctx.Ctx, token Address, to Address, amount *big.Int) error
}
