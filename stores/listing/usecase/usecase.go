package usecase

import (
	"math/big"
	"sync"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/log"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/fee"
	"github.com/x-xyz/settlement/domain/listing"
	"github.com/x-xyz/settlement/service/oracle"
)

type Cfg struct {
	Listing  listing.Repo
	PayToken domain.PayTokenUseCase
	Assets   domain.AssetRegistry
	Payments domain.PaymentLedger
	Price    oracle.PriceFormatter
	Emitter  domain.Emitter
	Tx       domain.TxRunner
	Clock    domain.Clock
	Fees     fee.Schedule
	// Engine is the address sellers approve as transfer operator and
	// buyers grant payment allowance to.
	Engine domain.Address
	// Lock serializes mutating calls. Engines settling against the
	// same ledger must share one lock; nil gets a private mutex.
	Lock sync.Locker
}

type impl struct {
	listing  listing.Repo
	payToken domain.PayTokenUseCase
	assets   domain.AssetRegistry
	payments domain.PaymentLedger
	price    oracle.PriceFormatter
	emitter  domain.Emitter
	tx       domain.TxRunner
	clock    domain.Clock
	fees     fee.Schedule
	engine   domain.Address
	lock     sync.Locker
}

func New(cfg *Cfg) listing.UseCase {
	lock := cfg.Lock
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &impl{
		listing:  cfg.Listing,
		payToken: cfg.PayToken,
		assets:   cfg.Assets,
		payments: cfg.Payments,
		price:    cfg.Price,
		emitter:  cfg.Emitter,
		tx:       cfg.Tx,
		clock:    cfg.Clock,
		fees:     cfg.Fees,
		engine:   cfg.Engine.ToLower(),
		lock:     lock,
	}
}

func (im *impl) ListItem(c bCtx.Ctx, req listing.ListItemReq) error {
	im.lock.Lock()
	defer im.lock.Unlock()

	if req.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if _, err := domain.ParseAmount(req.PricePerItem); err != nil {
		return domain.ErrBadParamInput
	}
	if supported, err := im.payToken.IsSupported(c, req.PayToken); err != nil {
		c.WithField("err", err).Error("payToken.IsSupported failed")
		return err
	} else if !supported {
		return domain.ErrUnsupportedToken
	}
	if err := im.checkSellerControls(c, req.Nft, req.TokenId, req.Caller, big.NewInt(req.Quantity)); err != nil {
		return err
	}

	startingTime := req.StartingTime
	if startingTime.IsZero() {
		startingTime = im.clock.Now()
	}

	l := &listing.Listing{
		Nft:          req.Nft,
		TokenId:      req.TokenId,
		Seller:       req.Caller,
		Quantity:     req.Quantity,
		PayToken:     req.PayToken,
		PricePerItem: req.PricePerItem,
		StartingTime: startingTime,
	}
	if err := im.listing.Upsert(c, l); err != nil {
		c.WithField("err", err).Error("listing.Upsert failed")
		return err
	}

	im.emitter.Emit(c, &domain.Record{
		Kind:      domain.RecordItemListed,
		Nft:       l.Nft,
		TokenId:   l.TokenId,
		Seller:    l.Seller,
		PayToken:  l.PayToken,
		Quantity:  l.Quantity,
		UnitPrice: l.PricePerItem,
	})
	return nil
}

func (im *impl) UpdateListing(c bCtx.Ctx, req listing.UpdateListingReq) error {
	im.lock.Lock()
	defer im.lock.Unlock()

	if _, err := domain.ParseAmount(req.PricePerItem); err != nil {
		return domain.ErrBadParamInput
	}
	if supported, err := im.payToken.IsSupported(c, req.PayToken); err != nil {
		c.WithField("err", err).Error("payToken.IsSupported failed")
		return err
	} else if !supported {
		return domain.ErrUnsupportedToken
	}

	id := listing.Id{Nft: req.Nft, TokenId: req.TokenId, Seller: req.Caller}
	if _, err := im.listing.FindOne(c, id); err != nil {
		return err
	}

	payToken := req.PayToken.ToLower()
	if err := im.listing.Patch(c, id, listing.Patchable{
		PayToken:     &payToken,
		PricePerItem: &req.PricePerItem,
	}); err != nil {
		return err
	}

	im.emitter.Emit(c, &domain.Record{
		Kind:      domain.RecordItemUpdated,
		Nft:       req.Nft,
		TokenId:   req.TokenId,
		Seller:    req.Caller,
		PayToken:  payToken,
		UnitPrice: req.PricePerItem,
	})
	return nil
}

func (im *impl) CancelListing(c bCtx.Ctx, caller domain.Address, nft domain.Address, tokenId domain.TokenId) error {
	im.lock.Lock()
	defer im.lock.Unlock()

	id := listing.Id{Nft: nft, TokenId: tokenId, Seller: caller}
	if err := im.listing.Remove(c, id); err != nil {
		return err
	}

	im.emitter.Emit(c, &domain.Record{
		Kind:    domain.RecordItemCanceled,
		Nft:     nft,
		TokenId: tokenId,
		Seller:  caller,
	})
	return nil
}

func (im *impl) BuyItem(c bCtx.Ctx, req listing.BuyItemReq) error {
	im.lock.Lock()
	defer im.lock.Unlock()

	id := listing.Id{Nft: req.Nft, TokenId: req.TokenId, Seller: req.Seller}
	l, err := im.listing.FindOne(c, id)
	if err != nil {
		return err
	}

	if im.clock.Now().Before(l.StartingTime) {
		return domain.ErrNotStarted
	}
	if !req.PayToken.Equals(l.PayToken) {
		return domain.ErrTokenMismatch
	}

	unitPrice, err := domain.ParseAmount(l.PricePerItem)
	if err != nil {
		c.WithField("err", err).Error("stored price unparseable")
		return err
	}
	price := new(big.Int).Mul(unitPrice, big.NewInt(l.Quantity))

	if req.MaxPrice != nil {
		maxPrice, err := domain.ParseAmount(*req.MaxPrice)
		if err != nil {
			return domain.ErrBadParamInput
		}
		if price.Cmp(maxPrice) > 0 {
			return domain.ErrPriceExceeded
		}
	}

	// preflight every check before any value moves
	if err := im.checkBuyerFunds(c, l.PayToken, req.Caller, price); err != nil {
		return err
	}
	if err := im.checkSellerControls(c, l.Nft, l.TokenId, l.Seller, big.NewInt(l.Quantity)); err != nil {
		return err
	}

	platformFee := im.fees.FlatFee(price)
	proceeds := new(big.Int).Sub(price, platformFee)

	// clear the listing before any value moves; under the settlement
	// lock the preflighted transfers below cannot fail
	if err := im.tx.RunWithTransaction(c, func(c bCtx.Ctx) error {
		return im.listing.Remove(c, id)
	}); err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("failed to clear listing")
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
	if err := im.assets.Transfer(c, l.Nft, l.TokenId, l.Seller, req.Caller, big.NewInt(l.Quantity)); err != nil {
		c.WithField("err", err).Error("assets.Transfer failed")
		return err
	}

	im.emitter.Emit(c, &domain.Record{
		Kind:      domain.RecordItemSold,
		Nft:       l.Nft,
		TokenId:   l.TokenId,
		Seller:    l.Seller,
		Buyer:     req.Caller.ToLower(),
		PayToken:  l.PayToken,
		Quantity:  l.Quantity,
		UnitPrice: l.PricePerItem,
		Price:     domain.FormatAmount(price),
		Fee:       domain.FormatAmount(platformFee),
	})
	return nil
}

func (im *impl) GetListing(c bCtx.Ctx, id listing.Id) (*listing.ListingWithPrice, error) {
	l, err := im.listing.FindOne(c, id)
	if err != nil {
		return nil, err
	}

	res := &listing.ListingWithPrice{Listing: *l, DisplayPrice: "0"}
	unitPrice, err := domain.ParseAmount(l.PricePerItem)
	if err != nil {
		return res, nil
	}
	if displayPrice, err := im.price.DisplayPrice(c, l.PayToken, unitPrice); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"token": l.PayToken,
		}).Warn("price.DisplayPrice failed")
	} else {
		res.DisplayPrice = displayPrice.String()
	}
	return res, nil
}

func (im *impl) FindAll(c bCtx.Ctx, opts ...listing.FindAllOptionsFunc) ([]*listing.Listing, error) {
	return im.listing.FindAll(c, opts...)
}

func (im *impl) checkSellerControls(c bCtx.Ctx, nft domain.Address, tokenId domain.TokenId, seller domain.Address, quantity *big.Int) error {
	balance, err := im.assets.BalanceOf(c, nft, tokenId, seller)
	if err != nil {
		c.WithField("err", err).Error("assets.BalanceOf failed")
		return err
	}
	if balance.Cmp(quantity) < 0 {
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
