package domain

import (
	"math/big"
	"strings"

	"golang.org/x/xerrors"
)

type Address string

const EmptyAddress = Address("0x0000000000000000000000000000000000000000")

func (a Address) ToLower() Address {
	return Address(strings.ToLower(string(a)))
}

func (a Address) ToLowerStr() string {
	return strings.ToLower(string(a))
}

func (a Address) IsEmpty() bool {
	return len(a) == 0
}

func (a Address) Equals(b Address) bool {
	return a.ToLowerStr() == b.ToLowerStr()
}

type TokenId string

func (i TokenId) String() string {
	return string(i)
}

// BundleId is a seller-chosen identifier for a bundle listing, unique
// per seller.
type BundleId string

func (i BundleId) String() string {
	return string(i)
}

type Table string

const (
	TableListings    Table = "listings"
	TableBundles     Table = "bundles"
	TableAuctions    Table = "auctions"
	TablePayTokens   Table = "paytokens"
	TableSettlements Table = "settlements"
)

// ParseAmount parses a base-10 payment amount. Amounts travel as
// strings through stores and records and as big.Int through
// settlement arithmetic.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, xerrors.Errorf("invalid amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, xerrors.Errorf("negative amount %q", s)
	}
	return v, nil
}

func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
