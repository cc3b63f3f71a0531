package usecase

import (
	"math/big"
	"sync"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/log"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/bundle"
	"github.com/x-xyz/settlement/domain/fee"
)

type Cfg struct {
	Bundle   bundle.Repo
	PayToken domain.PayTokenUseCase
	Assets   domain.AssetRegistry
	Payments domain.PaymentLedger
	Emitter  domain.Emitter
	Tx       domain.TxRunner
	Clock    domain.Clock
	Fees     fee.Schedule
	Engine   domain.Address
	// Lock serializes mutating calls. Engines settling against the
	// same ledger must share one lock; nil gets a private mutex.
	Lock sync.Locker
}

type impl struct {
	bundle   bundle.Repo
	payToken domain.PayTokenUseCase
	assets   domain.AssetRegistry
	payments domain.PaymentLedger
	emitter  domain.Emitter
	tx       domain.TxRunner
	clock    domain.Clock
	fees     fee.Schedule
	engine   domain.Address
	lock     sync.Locker
}

func New(cfg *Cfg) bundle.UseCase {
	lock := cfg.Lock
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &impl{
		bundle:   cfg.Bundle,
		payToken: cfg.PayToken,
		assets:   cfg.Assets,
		payments: cfg.Payments,
		emitter:  cfg.Emitter,
		tx:       cfg.Tx,
		clock:    cfg.Clock,
		fees:     cfg.Fees,
		engine:   cfg.Engine.ToLower(),
		lock:     lock,
	}
}

func (im *impl) ListItem(c bCtx.Ctx, req bundle.ListItemReq) error {
	im.lock.Lock()
	defer im.lock.Unlock()

	if len(req.Entries) == 0 {
		return domain.ErrInvalidBundle
	}
	for _, entry := range req.Entries {
		if entry.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
	}
	if _, err := domain.ParseAmount(req.Price); err != nil {
		return domain.ErrBadParamInput
	}
	if supported, err := im.payToken.IsSupported(c, req.PayToken); err != nil {
		c.WithField("err", err).Error("payToken.IsSupported failed")
		return err
	} else if !supported {
		return domain.ErrUnsupportedToken
	}
	if err := im.checkEntries(c, req.Caller, req.Entries); err != nil {
		return err
	}

	startingTime := req.StartingTime
	if startingTime.IsZero() {
		startingTime = im.clock.Now()
	}

	l := &bundle.Listing{
		BundleId:     req.BundleId,
		Seller:       req.Caller,
		Entries:      req.Entries,
		PayToken:     req.PayToken,
		Price:        req.Price,
		StartingTime: startingTime,
	}
	if err := im.bundle.Upsert(c, l); err != nil {
		c.WithField("err", err).Error("bundle.Upsert failed")
		return err
	}

	im.emitter.Emit(c, &domain.Record{
		Kind:     domain.RecordBundleListed,
		BundleId: l.BundleId,
		Seller:   l.Seller,
		PayToken: l.PayToken,
		Price:    l.Price,
	})
	return nil
}

func (im *impl) UpdateListing(c bCtx.Ctx, req bundle.UpdateListingReq) error {
	im.lock.Lock()
	defer im.lock.Unlock()

	if _, err := domain.ParseAmount(req.Price); err != nil {
		return domain.ErrBadParamInput
	}
	if supported, err := im.payToken.IsSupported(c, req.PayToken); err != nil {
		c.WithField("err", err).Error("payToken.IsSupported failed")
		return err
	} else if !supported {
		return domain.ErrUnsupportedToken
	}

	id := bundle.Id{BundleId: req.BundleId, Seller: req.Caller}
	if _, err := im.bundle.FindOne(c, id); err != nil {
		return err
	}

	payToken := req.PayToken.ToLower()
	if err := im.bundle.Patch(c, id, bundle.Patchable{
		PayToken: &payToken,
		Price:    &req.Price,
	}); err != nil {
		return err
	}

	im.emitter.Emit(c, &domain.Record{
		Kind:     domain.RecordBundleUpdated,
		BundleId: req.BundleId,
		Seller:   req.Caller,
		PayToken: payToken,
		Price:    req.Price,
	})
	return nil
}

func (im *impl) CancelListing(c bCtx.Ctx, caller domain.Address, bundleId domain.BundleId) error {
	im.lock.Lock()
	defer im.lock.Unlock()

	id := bundle.Id{BundleId: bundleId, Seller: caller}
	if err := im.bundle.Remove(c, id); err != nil {
		return err
	}

	im.emitter.Emit(c, &domain.Record{
		Kind:     domain.RecordBundleCanceled,
		BundleId: bundleId,
		Seller:   caller,
	})
	return nil
}

func (im *impl) BuyItem(c bCtx.Ctx, req bundle.BuyItemReq) error {
	im.lock.Lock()
	defer im.lock.Unlock()

	id := bundle.Id{BundleId: req.BundleId, Seller: req.Seller}
	l, err := im.bundle.FindOne(c, id)
	if err != nil {
		return err
	}

	if im.clock.Now().Before(l.StartingTime) {
		return domain.ErrNotStarted
	}
	if !req.PayToken.Equals(l.PayToken) {
		return domain.ErrTokenMismatch
	}

	price, err := domain.ParseAmount(l.Price)
	if err != nil {
		c.WithField("err", err).Error("stored price unparseable")
		return err
	}

	// preflight the union of per-entry checks plus buyer funds before
	// any value moves; a bundle settles completely or not at all
	if err := im.checkBuyerFunds(c, l.PayToken, req.Caller, price); err != nil {
		return err
	}
	if err := im.checkEntries(c, l.Seller, l.Entries); err != nil {
		return err
	}

	platformFee := im.fees.FlatFee(price)
	proceeds := new(big.Int).Sub(price, platformFee)

	// clear the bundle before any value moves; under the settlement
	// lock the preflighted transfers below cannot fail
	if err := im.tx.RunWithTransaction(c, func(c bCtx.Ctx) error {
		return im.bundle.Remove(c, id)
	}); err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("failed to clear bundle")
		return err
	}

	if platformFee.Sign() > 0 {
		if err := im.payments.TransferFrom(c, l.PayToken, req.Caller, im.fees.Recipient, platformFee); err != nil {
			c.WithField("err", err).Error("payments.TransferFrom fee failed")
			return err
		}
	}
	if err := im.payments.TransferFrom(c, l.PayToken, req.Caller, l.Seller, proceeds); err != nil {
		c.WithField("err", err).Error("payments.TransferFrom proceeds failed")
		return err
	}
	for _, entry := range l.Entries {
		if err := im.assets.Transfer(c, entry.Nft, entry.TokenId, l.Seller, req.Caller, big.NewInt(entry.Quantity)); err != nil {
			c.WithFields(log.Fields{
				"err":     err,
				"nft":     entry.Nft,
				"tokenId": entry.TokenId,
			}).Error("assets.Transfer failed")
			return err
		}
	}

	im.emitter.Emit(c, &domain.Record{
		Kind:     domain.RecordBundleSold,
		BundleId: l.BundleId,
		Seller:   l.Seller,
		Buyer:    req.Caller.ToLower(),
		PayToken: l.PayToken,
		Price:    l.Price,
		Fee:      domain.FormatAmount(platformFee),
	})
	return nil
}

func (im *impl) GetListing(c bCtx.Ctx, id bundle.Id) (*bundle.Listing, error) {
	return im.bundle.FindOne(c, id)
}

func (im *impl) FindAll(c bCtx.Ctx, opts ...bundle.FindAllOptionsFunc) ([]*bundle.Listing, error) {
	return im.bundle.FindAll(c, opts...)
}

func (im *impl) checkEntries(c bCtx.Ctx, seller domain.Address, entries []bundle.Entry) error {
	for _, entry := range entries {
		balance, err := im.assets.BalanceOf(c, entry.Nft, entry.TokenId, seller)
		if err != nil {
			c.WithField("err", err).Error("assets.BalanceOf failed")
			return err
		}
		if balance.Cmp(big.NewInt(entry.Quantity)) < 0 {
			return domain.ErrNotOwnerOrUnapproved
		}
		approved, err := im.assets.IsApprovedOperator(c, entry.Nft, seller, im.engine)
		if err != nil {
			c.WithField("err", err).Error("assets.IsApprovedOperator failed")
			return err
		}
		if !approved {
			return domain.ErrNotOwnerOrUnapproved
		}
	}
	return nil
}

func (im *impl) checkBuyerFunds(c bCtx.Ctx, token, buyer domain.Address, amount *big.Int) error {
	balance, err := im.payments.BalanceOf(c, token, buyer)
	if err != nil {
		c.WithField("err", err).Error("payments.BalanceOf failed")
		return err
	}
	if balance.Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}
	allowance, err := im.payments.AllowanceOf(c, token, buyer, im.engine)
	if err != nil {
		c.WithField("err", err).Error("payments.AllowanceOf failed")
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return domain.ErrInsufficientAllowance
	}
	return nil
}
