package usecase

import (
	"math/big"
	"sync"
	"time"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/log"
	"github.com/x-xyz/settlement/base/ptr"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/auction"
	"github.com/x-xyz/settlement/domain/fee"
)

const (
	// DefaultSnipeWindow is the trailing stretch of an auction in which
	// a bid triggers an extension when the auction is resettable.
	DefaultSnipeWindow = 600 * time.Second
	// DefaultSnipeExtension is how far the end time is pushed.
	DefaultSnipeExtension = 600 * time.Second
)

type Cfg struct {
	Auction  auction.Repo
	PayToken domain.PayTokenUseCase
	Assets   domain.AssetRegistry
	Payments domain.PaymentLedger
	Emitter  domain.Emitter
	Tx       domain.TxRunner
	Clock    domain.Clock
	Fees     fee.Schedule
	Engine   domain.Address
	// Zero values fall back to the package defaults.
	SnipeWindow    time.Duration
	SnipeExtension time.Duration
	// Lock serializes mutating calls. Engines settling against the
	// same ledger must share one lock; nil gets a private mutex.
	Lock sync.Locker
}

type impl struct {
	auction        auction.Repo
	payToken       domain.PayTokenUseCase
	assets         domain.AssetRegistry
	payments       domain.PaymentLedger
	emitter        domain.Emitter
	tx             domain.TxRunner
	clock          domain.Clock
	fees           fee.Schedule
	engine         domain.Address
	snipeWindow    time.Duration
	snipeExtension time.Duration
	lock           sync.Locker
}

func New(cfg *Cfg) auction.UseCase {
	lock := cfg.Lock
	if lock == nil {
		lock = &sync.Mutex{}
	}
	snipeWindow := cfg.SnipeWindow
	if snipeWindow == 0 {
		snipeWindow = DefaultSnipeWindow
	}
	snipeExtension := cfg.SnipeExtension
	if snipeExtension == 0 {
		snipeExtension = DefaultSnipeExtension
	}
	return &impl{
		auction:        cfg.Auction,
		payToken:       cfg.PayToken,
		assets:         cfg.Assets,
		payments:       cfg.Payments,
		emitter:        cfg.Emitter,
		tx:             cfg.Tx,
		clock:          cfg.Clock,
		fees:           cfg.Fees,
		engine:         cfg.Engine.ToLower(),
		snipeWindow:    snipeWindow,
		snipeExtension: snipeExtension,
		lock:           lock,
	}
}

func (im *impl) CreateAuction(c bCtx.Ctx, req auction.CreateAuctionReq) error {
	im.lock.Lock()
	defer im.lock.Unlock()

	if _, err := domain.ParseAmount(req.ReservePrice); err != nil {
		return domain.ErrBadParamInput
	}

	startTime := req.StartTime
	if startTime.IsZero() {
		startTime = im.clock.Now()
	}
	if !startTime.Before(req.EndTime) {
		return domain.ErrInvalidWindow
	}

	if supported, err := im.payToken.IsSupported(c, req.PayToken); err != nil {
		c.WithField("err", err).Error("payToken.IsSupported failed")
		return err
	} else if !supported {
		return domain.ErrUnsupportedToken
	}

	id := auction.Id{Nft: req.Nft, TokenId: req.TokenId, Seller: req.Caller}
	if prev, err := im.auction.FindOne(c, id); err != nil && err != domain.ErrAuctionNotFound {
		return err
	} else if err == nil && !prev.Resulted {
		return domain.ErrAuctionExists
	}

	if err := im.checkSellerControls(c, req.Nft, req.TokenId, req.Caller); err != nil {
		return err
	}

	a := &auction.Auction{
		Nft:          req.Nft,
		TokenId:      req.TokenId,
		Seller:       req.Caller,
		PayToken:     req.PayToken,
		ReservePrice: req.ReservePrice,
		StartTime:    startTime,
		EndTime:      req.EndTime,
		Resettable:   req.Resettable,
	}
	if err := im.auction.Upsert(c, a); err != nil {
		c.WithField("err", err).Error("auction.Upsert failed")
		return err
	}

	im.emitter.Emit(c, &domain.Record{
		Kind:     domain.RecordAuctionCreated,
		Nft:      a.Nft,
		TokenId:  a.TokenId,
		Seller:   a.Seller,
		PayToken: a.PayToken,
		Price:    a.ReservePrice,
	})
	return nil
}

func (im *impl) PlaceBid(c bCtx.Ctx, req auction.PlaceBidReq) error {
	im.lock.Lock()
	defer im.lock.Unlock()

	id := auction.Id{Nft: req.Nft, TokenId: req.TokenId, Seller: req.Seller}
	a, err := im.auction.FindOne(c, id)
	if err != nil {
		return err
	}

	now := im.clock.Now()
	if a.Resulted || !a.Open(now) {
		return domain.ErrAuctionNotOpen
	}

	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return domain.ErrBadParamInput
	}
	reserve, err := domain.ParseAmount(a.ReservePrice)
	if err != nil {
		c.WithField("err", err).Error("stored reserve unparseable")
		return err
	}

	var prevAmount *big.Int
	if a.HighestBid != nil {
		prevAmount, err = domain.ParseAmount(a.HighestBid.Amount)
		if err != nil {
			c.WithField("err", err).Error("stored bid unparseable")
			return err
		}
		if amount.Cmp(prevAmount) <= 0 {
			return domain.ErrBidTooLow
		}
	} else if amount.Cmp(reserve) < 0 {
		return domain.ErrBidTooLow
	}

	// preflight the escrow and, when outbidding, the refund before
	// moving anything; a failed refund must abort the new bid
	if err := im.checkBidderFunds(c, a.PayToken, req.Caller, amount); err != nil {
		return err
	}
	if prevAmount != nil {
		escrow, err := im.payments.BalanceOf(c, a.PayToken, im.engine)
		if err != nil {
			c.WithField("err", err).Error("payments.BalanceOf failed")
			return err
		}
		if escrow.Cmp(prevAmount) < 0 {
			return domain.ErrInsufficientBalance
		}
	}

	patchable := auction.Patchable{
		HighestBid: &auction.Bid{
			Bidder: req.Caller.ToLower(),
			Amount: domain.FormatAmount(amount),
		},
	}
	if a.Resettable && a.EndTime.Sub(now) <= im.snipeWindow {
		extended := a.EndTime.Add(im.snipeExtension)
		patchable.EndTime = &extended
	}

	// record the bid before the escrow moves; under the settlement
	// lock the preflighted transfers below cannot fail, and a store
	// failure must not strand the new bid in escrow
	if err := im.tx.RunWithTransaction(c, func(c bCtx.Ctx) error {
		return im.auction.Patch(c, id, patchable)
	}); err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("failed to record bid")
		return err
	}

	if err := im.payments.TransferFrom(c, a.PayToken, req.Caller, im.engine, amount); err != nil {
		c.WithField("err", err).Error("payments.TransferFrom escrow failed")
		return err
	}
	if prevAmount != nil {
		if err := im.payments.Transfer(c, a.PayToken, a.HighestBid.Bidder, prevAmount); err != nil {
			c.WithField("err", err).Error("payments.Transfer refund failed")
			return err
		}
	}

	if prevAmount != nil {
		im.emitter.Emit(c, &domain.Record{
			Kind:     domain.RecordBidRefunded,
			Nft:      a.Nft,
			TokenId:  a.TokenId,
			Seller:   a.Seller,
			Bidder:   a.HighestBid.Bidder,
			PayToken: a.PayToken,
			Bid:      a.HighestBid.Amount,
		})
	}
	im.emitter.Emit(c, &domain.Record{
		Kind:     domain.RecordBidPlaced,
		Nft:      a.Nft,
		TokenId:  a.TokenId,
		Seller:   a.Seller,
		Bidder:   req.Caller.ToLower(),
		PayToken: a.PayToken,
		Bid:      domain.FormatAmount(amount),
	})
	return nil
}

func (im *impl) ResultAuction(c bCtx.Ctx, caller domain.Address, id auction.Id) error {
	im.lock.Lock()
	defer im.lock.Unlock()

	a, err := im.auction.FindOne(c, id)
	if err != nil {
		return err
	}

	if a.Resulted {
		return domain.ErrAlreadyResulted
	}
	if !a.Ended(im.clock.Now()) {
		return domain.ErrAuctionNotEnded
	}
	if a.HighestBid == nil {
		return domain.ErrNoBids
	}
	if !caller.Equals(a.Seller) && !caller.Equals(a.HighestBid.Bidder) {
		return domain.ErrNotOwnerOrUnapproved
	}

	winningBid, err := domain.ParseAmount(a.HighestBid.Amount)
	if err != nil {
		c.WithField("err", err).Error("stored bid unparseable")
		return err
	}
	reserve, err := domain.ParseAmount(a.ReservePrice)
	if err != nil {
		c.WithField("err", err).Error("stored reserve unparseable")
		return err
	}

	// the winning bid sits in engine escrow; the asset still sits with
	// the seller and must remain transferable
	if err := im.checkSellerControls(c, a.Nft, a.TokenId, a.Seller); err != nil {
		return err
	}
	escrow, err := im.payments.BalanceOf(c, a.PayToken, im.engine)
	if err != nil {
		c.WithField("err", err).Error("payments.BalanceOf failed")
		return err
	}
	if escrow.Cmp(winningBid) < 0 {
		return domain.ErrInsufficientBalance
	}

	platformFee := im.fees.SurplusFee(winningBid, reserve)
	proceeds := new(big.Int).Sub(winningBid, platformFee)

	// mark resulted before the escrow pays out; under the settlement
	// lock the preflighted transfers below cannot fail
	if err := im.tx.RunWithTransaction(c, func(c bCtx.Ctx) error {
		return im.auction.Patch(c, id, auction.Patchable{
			Resulted: ptr.Bool(true),
		})
	}); err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("failed to mark resulted")
		return err
	}

	if platformFee.Sign() > 0 {
		if err := im.payments.Transfer(c, a.PayToken, im.fees.Recipient, platformFee); err != nil {
			c.WithField("err", err).Error("payments.Transfer fee failed")
			return err
		}
	}
	if err := im.payments.Transfer(c, a.PayToken, a.Seller, proceeds); err != nil {
		c.WithField("err", err).Error("payments.Transfer proceeds failed")
		return err
	}
	if err := im.assets.Transfer(c, a.Nft, a.TokenId, a.Seller, a.HighestBid.Bidder, big.NewInt(1)); err != nil {
		c.WithField("err", err).Error("assets.Transfer failed")
		return err
	}

	im.emitter.Emit(c, &domain.Record{
		Kind:       domain.RecordAuctionResulted,
		Nft:        a.Nft,
		TokenId:    a.TokenId,
		Seller:     a.Seller,
		Winner:     a.HighestBid.Bidder,
		PayToken:   a.PayToken,
		WinningBid: a.HighestBid.Amount,
		Fee:        domain.FormatAmount(platformFee),
	})
	return nil
}

func (im *impl) CancelAuction(c bCtx.Ctx, caller domain.Address, id auction.Id) error {
	im.lock.Lock()
	defer im.lock.Unlock()

	a, err := im.auction.FindOne(c, id)
	if err != nil {
		return err
	}

	if a.Resulted {
		return domain.ErrAlreadyResulted
	}
	if a.HighestBid != nil {
		return domain.ErrBidsExist
	}
	if !caller.Equals(a.Seller) {
		return domain.ErrNotOwnerOrUnapproved
	}

	if err := im.auction.Remove(c, id); err != nil {
		return err
	}

	im.emitter.Emit(c, &domain.Record{
		Kind:    domain.RecordAuctionCancelled,
		Nft:     a.Nft,
		TokenId: a.TokenId,
		Seller:  a.Seller,
	})
	return nil
}

func (im *impl) GetAuction(c bCtx.Ctx, id auction.Id) (*auction.Auction, error) {
	return im.auction.FindOne(c, id)
}

func (im *impl) FindAll(c bCtx.Ctx, opts ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	return im.auction.FindAll(c, opts...)
}

func (im *impl) checkSellerControls(c bCtx.Ctx, nft domain.Address, tokenId domain.TokenId, seller domain.Address) error {
	balance, err := im.assets.BalanceOf(c, nft, tokenId, seller)
	if err != nil {
		c.WithField("err", err).Error("assets.BalanceOf failed")
		return err
	}
	if balance.Sign() <= 0 {
		return domain.ErrNotOwnerOrUnapproved
	}
	approved, err := im.assets.IsApprovedOperator(c, nft, seller, im.engine)
	if err != nil {
		c.WithField("err", err).Error("assets.IsApprovedOperator failed")
		return err
	}
	if !approved {
		return domain.ErrNotOwnerOrUnapproved
	}
	return nil
}

func (im *impl) checkBidderFunds(c bCtx.Ctx, token, bidder domain.Address, amount *big.Int) error {
	balance, err := im.payments.BalanceOf(c, token, bidder)
	if err != nil {
		c.WithField("err", err).Error("payments.BalanceOf failed")
		return err
	}
	if balance.Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}
	allowance, err := im.payments.AllowanceOf(c, token, bidder, im.engine)
	if err != nil {
		c.WithField("err", err).Error("payments.AllowanceOf failed")
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return domain.ErrInsufficientAllowance
	}
	return nil
}
