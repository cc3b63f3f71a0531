package auction

import (
	"time"

	"github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/domain"
)

// Bid is the current highest bid of an auction. Outbid bids are
// refunded, not retained.
type Bid struct {
	Bidder domain.Address `json:"bidder" bson:"bidder"`
	Amount string         `json:"amount" bson:"amount"`
}

// Auction is an ascending-price sale of a single asset. Once Resulted
// is set the record is terminal and immutable.
type Auction struct {
	Nft          domain.Address `json:"nft" bson:"nft"`
	TokenId      domain.TokenId `json:"tokenId" bson:"tokenId"`
	Seller       domain.Address `json:"seller" bson:"seller"`
	PayToken     domain.Address `json:"payToken" bson:"payToken"`
	ReservePrice string         `json:"reservePrice" bson:"reservePrice"`
	StartTime    time.Time      `json:"startTime" bson:"startTime"`
	EndTime      time.Time      `json:"endTime" bson:"endTime"`
	// Resettable extends EndTime when a bid lands inside the trailing
	// anti-snipe window.
	Resettable bool `json:"resettable" bson:"resettable"`
	Resulted   bool `json:"resulted" bson:"resulted"`
	HighestBid *Bid `json:"highestBid,omitempty" bson:"highestBid,omitempty"`
}

func (a *Auction) ToId() Id {
	return Id{
		Nft:     a.Nft,
		TokenId: a.TokenId,
		Seller:  a.Seller,
	}
}

func (a *Auction) LowerCase() {
	a.Nft = a.Nft.ToLower()
	a.Seller = a.Seller.ToLower()
	a.PayToken = a.PayToken.ToLower()
}

// Open reports whether bidding is allowed at the supplied time.
func (a *Auction) Open(now time.Time) bool {
	return !now.Before(a.StartTime) && now.Before(a.EndTime)
}

// Ended reports whether the auction window has closed.
func (a *Auction) Ended(now time.Time) bool {
	return !now.Before(a.EndTime)
}

type Id struct {
	Nft     domain.Address `json:"nft" bson:"nft"`
	TokenId domain.TokenId `json:"tokenId" bson:"tokenId"`
	Seller  domain.Address `json:"seller" bson:"seller"`
}

type Patchable struct {
	EndTime    *time.Time `bson:"endTime,omitempty"`
	Resulted   *bool      `bson:"resulted,omitempty"`
	HighestBid *Bid       `bson:"highestBid,omitempty"`
}

type FindAllOptions struct {
	Nft      *domain.Address
	TokenId  *domain.TokenId
	Seller   *domain.Address
	Resulted *bool
	Offset   *int32
	Limit    *int32
}

type FindAllOptionsFunc func(*FindAllOptions) error

func GetFindAllOptions(opts ...FindAllOptionsFunc) (FindAllOptions, error) {
	res := FindAllOptions{}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func WithNft(nft domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Nft = &nft
		return nil
	}
}

func WithTokenId(tokenId domain.TokenId) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.TokenId = &tokenId
		return nil
	}
}

func WithSeller(seller domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Seller = &seller
		return nil
	}
}

func WithResulted(resulted bool) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Resulted = &resulted
		return nil
	}
}

func WithPagination(offset, limit int32) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

type Repo interface {
	FindOne(c ctx.Ctx, id Id) (*Auction, error)
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
	Upsert(c ctx.Ctx, auction *Auction) error
	Patch(c ctx.Ctx, id Id, patchable Patchable) error
	Remove(c ctx.Ctx, id Id) error
}

type CreateAuctionReq struct {
	Caller       domain.Address `json:"-"`
	Nft          domain.Address `json:"nft" validate:"required"`
	TokenId      domain.TokenId `json:"tokenId" validate:"required"`
	PayToken     domain.Address `json:"payToken" validate:"required"`
	ReservePrice string         `json:"reservePrice" validate:"required"`
	StartTime    time.Time      `json:"startTime"`
	EndTime      time.Time      `json:"endTime"`
	Resettable   bool           `json:"resettable"`
}

type PlaceBidReq struct {
	Caller  domain.Address `json:"-"`
	Nft     domain.Address `json:"nft" validate:"required"`
	TokenId domain.TokenId `json:"tokenId" validate:"required"`
	Seller  domain.Address `json:"seller" validate:"required"`
	Amount  string         `json:"amount" validate:"required"`
}

// UseCase is the auction engine state machine:
// Created -> Open -> Resultable -> Resulted, with Cancelled reachable
// only while no bid exists.
type UseCase interface {
	CreateAuction(c ctx.Ctx, req CreateAuctionReq) error
	PlaceBid(c ctx.Ctx, req PlaceBidReq) error
	ResultAuction(c ctx.Ctx, caller domain.Address, id Id) error
	CancelAuction(c ctx.Ctx, caller domain.Address, id Id) error
	GetAuction(c ctx.Ctx, id Id) (*Auction, error)
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
}
