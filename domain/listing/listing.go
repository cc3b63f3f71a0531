package listing

import (
	"time"

	"github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/domain"
)

// Listing is a fixed-price sale offer. A listing that was bought or
// canceled is removed from the store entirely; there is no zeroed
// placeholder state.
type Listing struct {
	Nft          domain.Address `json:"nft" bson:"nft"`
	TokenId      domain.TokenId `json:"tokenId" bson:"tokenId"`
	Seller       domain.Address `json:"seller" bson:"seller"`
	Quantity     int64          `json:"quantity" bson:"quantity"`
	PayToken     domain.Address `json:"payToken" bson:"payToken"`
	PricePerItem string         `json:"pricePerItem" bson:"pricePerItem"`
	StartingTime time.Time      `json:"startingTime" bson:"startingTime"`
}

func (l *Listing) ToId() Id {
	return Id{
		Nft:     l.Nft,
		TokenId: l.TokenId,
		Seller:  l.Seller,
	}
}

func (l *Listing) LowerCase() {
	l.Nft = l.Nft.ToLower()
	l.Seller = l.Seller.ToLower()
	l.PayToken = l.PayToken.ToLower()
}

type Id struct {
	Nft     domain.Address `json:"nft" bson:"nft"`
	TokenId domain.TokenId `json:"tokenId" bson:"tokenId"`
	Seller  domain.Address `json:"seller" bson:"seller"`
}

type Patchable struct {
	PayToken     *domain.Address `bson:"payToken,omitempty"`
	PricePerItem *string         `bson:"pricePerItem,omitempty"`
}

type FindAllOptions struct {
	Nft     *domain.Address
	TokenId *domain.TokenId
	Seller  *domain.Address
	Offset  *int32
	Limit   *int32
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

func WithPagination(offset, limit int32) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

type Repo interface {
	FindOne(c ctx.Ctx, id Id) (*Listing, error)
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Listing, error)
	Upsert(c ctx.Ctx, listing *Listing) error
	Patch(c ctx.Ctx, id Id, patchable Patchable) error
	Remove(c ctx.Ctx, id Id) error
}

type ListItemReq struct {
	Caller       domain.Address `json:"-"`
	Nft          domain.Address `json:"nft" validate:"required"`
	TokenId      domain.TokenId `json:"tokenId" validate:"required"`
	Quantity     int64          `json:"quantity"`
	PayToken     domain.Address `json:"payToken" validate:"required"`
	PricePerItem string         `json:"pricePerItem" validate:"required"`
	StartingTime time.Time      `json:"startingTime"`
}

type UpdateListingReq struct {
	Caller       domain.Address `json:"-"`
	Nft          domain.Address `json:"nft" validate:"required"`
	TokenId      domain.TokenId `json:"tokenId" validate:"required"`
	PayToken     domain.Address `json:"payToken" validate:"required"`
	PricePerItem string         `json:"pricePerItem" validate:"required"`
}

type BuyItemReq struct {
	Caller   domain.Address `json:"-"`
	Nft      domain.Address `json:"nft" validate:"required"`
	TokenId  domain.TokenId `json:"tokenId" validate:"required"`
	Seller   domain.Address `json:"seller" validate:"required"`
	PayToken domain.Address `json:"payToken" validate:"required"`
	// MaxPrice optionally caps the total the caller is willing to pay.
	MaxPrice *string `json:"maxPrice"`
}

// UseCase is the marketplace engine. Every mutating call either
// applies all of its effects or none of them.
type UseCase interface {
	ListItem(c ctx.Ctx, req ListItemReq) error
	UpdateListing(c ctx.Ctx, req UpdateListingReq) error
	CancelListing(c ctx.Ctx, caller domain.Address, nft domain.Address, tokenId domain.TokenId) error
	BuyItem(c ctx.Ctx, req BuyItemReq) error
	GetListing(c ctx.Ctx, id Id) (*ListingWithPrice, error)
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Listing, error)
}

// ListingWithPrice augments a listing with its oracle display price in
// the reference unit. Display prices never affect settlement.
type ListingWithPrice struct {
	Listing
	DisplayPrice string `json:"displayPrice"`
}
