// Package fee computes the platform cut for each settlement flavour.
// Flat-price sales pay a percentage of the full price, auctions pay a
// percentage of the surplus above the seller's reserve only.
package fee

import (
	"math/big"

	"github.com/x-xyz/settlement/domain"
)

// Denominator fixes the resolution of fee rates: a rate of 50 equals
// 5%, 25 equals 2.5%.
const Denominator = 1000

const (
	// DefaultSaleBps is the observed marketplace/bundle rate (5%).
	DefaultSaleBps = 50
	// DefaultAuctionBps is the auction surplus rate (2.5%). The original
	// deployment never configured this explicitly; it is a documented
	// default here rather than a hidden constant.
	DefaultAuctionBps = 25
)

// Schedule is the per-engine-instance fee configuration. It is read
// only to trading operations.
type Schedule struct {
	Recipient  domain.Address
	SaleBps    int64
	AuctionBps int64
}

func DefaultSchedule(recipient domain.Address) Schedule {
	return Schedule{
		Recipient:  recipient,
		SaleBps:    DefaultSaleBps,
		AuctionBps: DefaultAuctionBps,
	}
}

// FlatFee returns the platform cut of a full sale price, truncated
// toward zero. (price - fee) + fee == price holds exactly.
func (s Schedule) FlatFee(price *big.Int) *big.Int {
	return cut(price, s.SaleBps)
}

// SurplusFee returns the platform cut of an auction outcome, applied
// to the amount by which the winning bid exceeds the reserve. A bid at
// or below reserve pays no fee.
func (s Schedule) SurplusFee(winningBid, reservePrice *big.Int) *big.Int {
	surplus := new(big.Int).Sub(winningBid, reservePrice)
	if surplus.Sign() <= 0 {
		return big.NewInt(0)
	}
	return cut(surplus, s.AuctionBps)
}

func cut(amount *big.Int, bps int64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps <= 0 {
		return big.NewInt(0)
	}
	v := new(big.Int).Mul(amount, big.NewInt(bps))
	return v.Quo(v, big.NewInt(Denominator))
}
