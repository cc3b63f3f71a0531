package domain

import (
	"time"

	"github.com/x-xyz/settlement/base/ctx"
)

type RecordKind string

const (
	RecordItemListed       RecordKind = "itemListed"
	RecordItemUpdated      RecordKind = "itemUpdated"
	RecordItemCanceled     RecordKind = "itemCanceled"
	RecordItemSold         RecordKind = "itemSold"
	RecordBundleListed     RecordKind = "bundleListed"
	RecordBundleUpdated    RecordKind = "bundleUpdated"
	RecordBundleCanceled   RecordKind = "bundleCanceled"
	RecordBundleSold       RecordKind = "bundleSold"
	RecordAuctionCreated   RecordKind = "auctionCreated"
	RecordBidPlaced        RecordKind = "bidPlaced"
	RecordBidRefunded      RecordKind = "bidRefunded"
	RecordAuctionResulted  RecordKind = "auctionResulted"
	RecordAuctionCancelled RecordKind = "auctionCancelled"
)

// Record is the append-only settlement notification emitted once per
// successful mutating call. Records feed external indexers and are
// never consulted by the engines themselves.
type Record struct {
	Id         string     `json:"id" bson:"id"`
	Kind       RecordKind `json:"kind" bson:"kind"`
	Timestamp  time.Time  `json:"timestamp" bson:"timestamp"`
	Nft        Address    `json:"nft,omitempty" bson:"nft,omitempty"`
	TokenId    TokenId    `json:"tokenId,omitempty" bson:"tokenId,omitempty"`
	BundleId   BundleId   `json:"bundleId,omitempty" bson:"bundleId,omitempty"`
	Seller     Address    `json:"seller,omitempty" bson:"seller,omitempty"`
	Buyer      Address    `json:"buyer,omitempty" bson:"buyer,omitempty"`
	Bidder     Address    `json:"bidder,omitempty" bson:"bidder,omitempty"`
	Winner     Address    `json:"winner,omitempty" bson:"winner,omitempty"`
	PayToken   Address    `json:"payToken,omitempty" bson:"payToken,omitempty"`
	Quantity   int64      `json:"quantity,omitempty" bson:"quantity,omitempty"`
	UnitPrice  string     `json:"unitPrice,omitempty" bson:"unitPrice,omitempty"`
	Price      string     `json:"price,omitempty" bson:"price,omitempty"`
	Bid        string     `json:"bid,omitempty" bson:"bid,omitempty"`
	WinningBid string     `json:"winningBid,omitempty" bson:"winningBid,omitempty"`
	Fee        string     `json:"fee,omitempty" bson:"fee,omitempty"`
}

// Emitter publishes settlement records. Publishing is fire-and-forget
// from the engine's point of view; a failed publish never unwinds a
// settlement.
type Emitter interface {
	Emit(c ctx.Ctx, record *Record)
	Close()
}

type RecordRepo interface {
	Insert(ctx.Ctx, *Record) error
	FindAll(c ctx.Ctx, kind *RecordKind, offset, limit int32) ([]*Record, error)
}

// TxRunner scopes a function to one atomic store transaction. Engines
// wrap every multi-document mutation in it so a settlement commits or
// rolls back as a single unit.
type TxRunner interface {
	RunWithTransaction(c ctx.Ctx, run func(ctx.Ctx) error) error
}
