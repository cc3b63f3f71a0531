package fee

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/x-xyz/settlement/domain"
)

func ether(n int64) *big.Int {
	wei := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(n), wei)
}

func TestFlatFee(t *testing.T) {
	req := require.New(t)
	s := DefaultSchedule(domain.Address("0xfee"))

	cases := []struct {
		name  string
		price *big.Int
		want  *big.Int
	}{
		{"five percent of 20", ether(20), ether(1)},
		{"truncates toward zero", big.NewInt(19), big.NewInt(0)},
		{"zero price", big.NewInt(0), big.NewInt(0)},
		{"exact division", big.NewInt(1000), big.NewInt(50)},
	}
	for _, c := range cases {
		got := s.FlatFee(c.price)
		req.Zero(c.want.Cmp(got), c.name)
	}
}

func TestFlatFeeConservation(t *testing.T) {
	req := require.New(t)
	s := DefaultSchedule(domain.Address("0xfee"))

	for _, price := range []*big.Int{big.NewInt(1), big.NewInt(999), ether(20), ether(12345)} {
		fee := s.FlatFee(price)
		sellerProceeds := new(big.Int).Sub(price, fee)
		req.Zero(price.Cmp(new(big.Int).Add(sellerProceeds, fee)))
	}
}

func TestSurplusFee(t *testing.T) {
	req := require.New(t)
	s := DefaultSchedule(domain.Address("0xfee"))

	// reserve 20, winning bid 30: 2.5% of the 10 surplus
	got := s.SurplusFee(ether(30), ether(20))
	want, _ := new(big.Int).SetString("250000000000000000", 10) // 0.25 ether
	req.Zero(want.Cmp(got))

	// bid at reserve pays nothing
	req.Zero(big.NewInt(0).Cmp(s.SurplusFee(ether(20), ether(20))))

	// bid below reserve never goes negative
	req.Zero(big.NewInt(0).Cmp(s.SurplusFee(ether(10), ether(20))))
}

func TestScheduleRatesAreExplicit(t *testing.T) {
	req := require.New(t)
	s := Schedule{Recipient: domain.Address("0xfee"), SaleBps: 100, AuctionBps: 100}
	req.Zero(big.NewInt(100).Cmp(s.FlatFee(big.NewInt(1000))))
	req.Zero(big.NewInt(10).Cmp(s.SurplusFee(big.NewInt(1100), big.NewInt(1000))))
}
