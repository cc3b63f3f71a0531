package bundle

import (
	"time"

	"github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/domain"
)

// Entry is one (asset, id, quantity) leg of a bundle. The entry
// sequence is immutable after listing; a re-list replaces the whole
// bundle.
type Entry struct {
	Nft      domain.Address `json:"nft" bson:"nft"`
	TokenId  domain.TokenId `json:"tokenId" bson:"tokenId"`
	Quantity int64          `json:"quantity" bson:"quantity"`
}

// Listing is an all-or-nothing sale of an ordered group of assets for
// one aggregate price.
type Listing struct {
	BundleId     domain.BundleId `json:"bundleId" bson:"bundleId"`
	Seller       domain.Address  `json:"seller" bson:"seller"`
	Entries      []Entry         `json:"entries" bson:"entries"`
	PayToken     domain.Address  `json:"payToken" bson:"payToken"`
	Price        string          `json:"price" bson:"price"`
	StartingTime time.Time       `json:"startingTime" bson:"startingTime"`
}

func (l *Listing) ToId() Id {
	return Id{
		BundleId: l.BundleId,
		Seller:   l.Seller,
	}
}

func (l *Listing) LowerCase() {
	l.Seller = l.Seller.ToLower()
	l.PayToken = l.PayToken.ToLower()
	for i := range l.Entries {
		l.Entries[i].Nft = l.Entries[i].Nft.ToLower()
	}
}

type Id struct {
	BundleId domain.BundleId `json:"bundleId" bson:"bundleId"`
	Seller   domain.Address  `json:"seller" bson:"seller"`
}

type Patchable struct {
	PayToken *domain.Address `bson:"payToken,omitempty"`
	Price    *string         `bson:"price,omitempty"`
}

type FindAllOptions struct {
	Seller *domain.Address
	Nft    *domain.Address
	Offset *int32
	Limit  *int32
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

func WithSeller(seller domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Seller = &seller
		return nil
	}
}

func WithNft(nft domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Nft = &nft
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
	Caller       domain.Address  `json:"-"`
	BundleId     domain.BundleId `json:"bundleId" validate:"required"`
	Entries      []Entry         `json:"entries" validate:"required,min=1,dive"`
	PayToken     domain.Address  `json:"payToken" validate:"required"`
	Price        string          `json:"price" validate:"required"`
	StartingTime time.Time       `json:"startingTime"`
}

type UpdateListingReq struct {
	Caller   domain.Address  `json:"-"`
	BundleId domain.BundleId `json:"bundleId" validate:"required"`
	PayToken domain.Address  `json:"payToken" validate:"required"`
	Price    string          `json:"price" validate:"required"`
}

type BuyItemReq struct {
	Caller   domain.Address  `json:"-"`
	BundleId domain.BundleId `json:"bundleId" validate:"required"`
	Seller   domain.Address  `json:"seller" validate:"required"`
	PayToken domain.Address  `json:"payToken" validate:"required"`
}

// UseCase is the bundle engine. A buy settles every entry or none.
type UseCase interface {
	ListItem(c ctx.Ctx, req ListItemReq) error
	UpdateListing(c ctx.Ctx, req UpdateListingReq) error
	CancelListing(c ctx.Ctx, caller domain.Address, bundleId domain.BundleId) error
	BuyItem(c ctx.Ctx, req BuyItemReq) error
	GetListing(c ctx.Ctx, id Id) (*Listing, error)
	FindAll(c ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Listing, error)
}
