package usecase

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/bundle"
	"github.com/x-xyz/settlement/domain/fee"
	"github.com/x-xyz/settlement/domain/mocks"
	"github.com/x-xyz/settlement/service/ledger"
)

type fixedClock struct {
	now time.Time
}

func (f *fixedClock) Now() time.Time {
	return f.now
}

type captureEmitter struct {
	records []*domain.Record
}

func (e *captureEmitter) Emit(c bCtx.Ctx, record *domain.Record) {
	e.records = append(e.records, record)
}

func (e *captureEmitter) Close() {}

type passthroughTx struct{}

func (passthroughTx) RunWithTransaction(c bCtx.Ctx, run func(bCtx.Ctx) error) error {
	return run(c)
}

type memBundleRepo struct {
	data      map[bundle.Id]bundle.Listing
	removeErr error
}

func newMemBundleRepo() *memBundleRepo {
	return &memBundleRepo{data: map[bundle.Id]bundle.Listing{}}
}

func lowerId(id bundle.Id) bundle.Id {
	id.Seller = id.Seller.ToLower()
	return id
}

func (r *memBundleRepo) FindOne(c bCtx.Ctx, id bundle.Id) (*bundle.Listing, error) {
	if l, ok := r.data[lowerId(id)]; ok {
		res := l
		return &res, nil
	}
	return nil, domain.ErrBundleNotFound
}

func (r *memBundleRepo) FindAll(c bCtx.Ctx, opts ...bundle.FindAllOptionsFunc) ([]*bundle.Listing, error) {
	res := []*bundle.Listing{}
	for _, l := range r.data {
		l := l
		res = append(res, &l)
	}
	return res, nil
}

func (r *memBundleRepo) Upsert(c bCtx.Ctx, l *bundle.Listing) error {
	l.LowerCase()
	r.data[l.ToId()] = *l
	return nil
}

func (r *memBundleRepo) Patch(c bCtx.Ctx, id bundle.Id, patchable bundle.Patchable) error {
	l, ok := r.data[lowerId(id)]
	if !ok {
		return domain.ErrBundleNotFound
	}
	if patchable.PayToken != nil {
		l.PayToken = *patchable.PayToken
	}
	if patchable.Price != nil {
		l.Price = *patchable.Price
	}
	r.data[lowerId(id)] = l
	return nil
}

func (r *memBundleRepo) Remove(c bCtx.Ctx, id bundle.Id) error {
	if r.removeErr != nil {
		return r.removeErr
	}
	if _, ok := r.data[lowerId(id)]; !ok {
		return domain.ErrBundleNotFound
	}
	delete(r.data, lowerId(id))
	return nil
}

const (
	engineAddr    = domain.Address("0x000000000000000000000000000000000000e941")
	sellerAddr    = domain.Address("0xc37c41601bc88c91b6569c701f08d37fa0f565f0")
	buyerAddr     = domain.Address("0x72fd0c35b0569f69701c2b1b870c00daf2dfbdb6")
	recipientAddr = domain.Address("0x9a38dec0590abc8c883d72e52391090e948ddf12")
	tokenAddr     = domain.Address("0xef88c71f5be29c4b30bf89625bd9be8f263e940c")
	nftOneAddr    = domain.Address("0xef88c71f5be29c4b30bf89625bd9be8f21234567")
	nftTwoAddr    = domain.Address("0xef88c71f5be29c4b30bf89625bd9be8f89abcdef")
)

type bundleSuite struct {
	suite.Suite

	ctx      bCtx.Ctx
	clock    *fixedClock
	ledger   *ledger.InMemory
	repo     *memBundleRepo
	payToken *mocks.PayTokenUseCase
	emitter  *captureEmitter
	im       bundle.UseCase
}

func TestBundleSuite(t *testing.T) {
	suite.Run(t, new(bundleSuite))
}

func (s *bundleSuite) SetupTest() {
	s.ctx = bCtx.Background()
	s.clock = &fixedClock{now: time.Unix(1700000000, 0)}
	s.ledger = ledger.NewInMemory(engineAddr)
	s.repo = newMemBundleRepo()
	s.payToken = &mocks.PayTokenUseCase{}
	s.emitter = &captureEmitter{}
	s.im = New(&Cfg{
		Bundle:   s.repo,
		PayToken: s.payToken,
		Assets:   s.ledger.Assets(),
		Payments: s.ledger.Payments(),
		Emitter:  s.emitter,
		Tx:       passthroughTx{},
		Clock:    s.clock,
		Fees:     fee.Schedule{Recipient: recipientAddr, SaleBps: fee.DefaultSaleBps},
		Engine:   engineAddr,
	})

	s.payToken.On("IsSupported", mock.Anything, tokenAddr).Return(true, nil)
}

func (s *bundleSuite) balance(holder domain.Address) int64 {
	bal, err := s.ledger.Payments().BalanceOf(s.ctx, tokenAddr, holder)
	s.Require().NoError(err)
	return bal.Int64()
}

func (s *bundleSuite) listPair(price string) {
	s.ledger.MintAsset(nftOneAddr, "1", sellerAddr, 1)
	s.ledger.MintAsset(nftTwoAddr, "2", sellerAddr, 1)
	s.ledger.SetApprovalForAll(nftOneAddr, sellerAddr, engineAddr, true)
	s.ledger.SetApprovalForAll(nftTwoAddr, sellerAddr, engineAddr, true)
	s.Require().NoError(s.im.ListItem(s.ctx, bundle.ListItemReq{
		Caller:   sellerAddr,
		BundleId: "pair",
		Entries: []bundle.Entry{
			{Nft: nftOneAddr, TokenId: "1", Quantity: 1},
			{Nft: nftTwoAddr, TokenId: "2", Quantity: 1},
		},
		PayToken: tokenAddr,
		Price:    price,
	}))
}

func (s *bundleSuite) TestListItemValidation() {
	err := s.im.ListItem(s.ctx, bundle.ListItemReq{
		Caller:   sellerAddr,
		BundleId: "pair",
		Entries:  []bundle.Entry{},
		PayToken: tokenAddr,
		Price:    "20",
	})
	s.ErrorIs(err, domain.ErrInvalidBundle)

	err = s.im.ListItem(s.ctx, bundle.ListItemReq{
		Caller:   sellerAddr,
		BundleId: "pair",
		Entries: []bundle.Entry{
			{Nft: nftOneAddr, TokenId: "1", Quantity: 0},
		},
		PayToken: tokenAddr,
		Price:    "20",
	})
	s.ErrorIs(err, domain.ErrInvalidQuantity)

	err = s.im.ListItem(s.ctx, bundle.ListItemReq{
		Caller:   sellerAddr,
		BundleId: "pair",
		Entries: []bundle.Entry{
			{Nft: nftOneAddr, TokenId: "1", Quantity: 1},
		},
		PayToken: tokenAddr,
		Price:    "20",
	})
	s.ErrorIs(err, domain.ErrNotOwnerOrUnapproved)
}

func (s *bundleSuite) TestBundleSaleScenario() {
	// two assets at total price 20 with a 5% flat fee:
	// seller +19, recipient +1, both assets to buyer, bundle cleared
	s.listPair("20")
	s.ledger.Mint(tokenAddr, buyerAddr, big.NewInt(20))
	s.ledger.Approve(tokenAddr, buyerAddr, engineAddr, big.NewInt(20))

	s.Require().NoError(s.im.BuyItem(s.ctx, bundle.BuyItemReq{
		Caller:   buyerAddr,
		BundleId: "pair",
		Seller:   sellerAddr,
		PayToken: tokenAddr,
	}))

	s.Equal(int64(19), s.balance(sellerAddr))
	s.Equal(int64(1), s.balance(recipientAddr))
	s.Equal(int64(0), s.balance(buyerAddr))

	ownerOne, err := s.ledger.Assets().OwnerOf(s.ctx, nftOneAddr, "1")
	s.NoError(err)
	s.Equal(buyerAddr, ownerOne)
	ownerTwo, err := s.ledger.Assets().OwnerOf(s.ctx, nftTwoAddr, "2")
	s.NoError(err)
	s.Equal(buyerAddr, ownerTwo)

	_, err = s.repo.FindOne(s.ctx, bundle.Id{BundleId: "pair", Seller: sellerAddr})
	s.ErrorIs(err, domain.ErrBundleNotFound)
}

func (s *bundleSuite) TestBuyItemStoreFailureMovesNothing() {
	s.listPair("20")
	s.ledger.Mint(tokenAddr, buyerAddr, big.NewInt(20))
	s.ledger.Approve(tokenAddr, buyerAddr, engineAddr, big.NewInt(20))

	s.repo.removeErr = errors.New("mongo unavailable")
	err := s.im.BuyItem(s.ctx, bundle.BuyItemReq{
		Caller:   buyerAddr,
		BundleId: "pair",
		Seller:   sellerAddr,
		PayToken: tokenAddr,
	})
	s.Error(err)

	// no payment, no entry transferred, the bundle survives
	s.Equal(int64(20), s.balance(buyerAddr))
	s.Equal(int64(0), s.balance(sellerAddr))
	ownerOne, err := s.ledger.Assets().OwnerOf(s.ctx, nftOneAddr, "1")
	s.NoError(err)
	s.Equal(sellerAddr, ownerOne)
	ownerTwo, err := s.ledger.Assets().OwnerOf(s.ctx, nftTwoAddr, "2")
	s.NoError(err)
	s.Equal(sellerAddr, ownerTwo)

	s.repo.removeErr = nil
	_, err = s.repo.FindOne(s.ctx, bundle.Id{BundleId: "pair", Seller: sellerAddr})
	s.NoError(err)
}

func (s *bundleSuite) TestBuyItemAllOrNothing() {
	s.listPair("20")
	s.ledger.Mint(tokenAddr, buyerAddr, big.NewInt(20))
	s.ledger.Approve(tokenAddr, buyerAddr, engineAddr, big.NewInt(20))

	// one entry leaves the seller's control; nothing may settle
	other := domain.Address("0x00000000000000000000000000000000000000bb")
	s.Require().NoError(s.ledger.Assets().Transfer(s.ctx, nftTwoAddr, "2", sellerAddr, other, big.NewInt(1)))

	err := s.im.BuyItem(s.ctx, bundle.BuyItemReq{
		Caller:   buyerAddr,
		BundleId: "pair",
		Seller:   sellerAddr,
		PayToken: tokenAddr,
	})
	s.ErrorIs(err, domain.ErrNotOwnerOrUnapproved)

	s.Equal(int64(20), s.balance(buyerAddr))
	s.Equal(int64(0), s.balance(sellerAddr))
	ownerOne, err := s.ledger.Assets().OwnerOf(s.ctx, nftOneAddr, "1")
	s.NoError(err)
	s.Equal(sellerAddr, ownerOne)

	_, err = s.repo.FindOne(s.ctx, bundle.Id{BundleId: "pair", Seller: sellerAddr})
	s.NoError(err)
}

func (s *bundleSuite) TestBuyItemTokenMismatch() {
	s.listPair("20")
	err := s.im.BuyItem(s.ctx, bundle.BuyItemReq{
		Caller:   buyerAddr,
		BundleId: "pair",
		Seller:   sellerAddr,
		PayToken: "0x00000000000000000000000000000000000000aa",
	})
	s.ErrorIs(err, domain.ErrTokenMismatch)
}

func (s *bundleSuite) TestBuyItemNotStarted() {
	s.ledger.MintAsset(nftOneAddr, "1", sellerAddr, 1)
	s.ledger.SetApprovalForAll(nftOneAddr, sellerAddr, engineAddr, true)
	s.Require().NoError(s.im.ListItem(s.ctx, bundle.ListItemReq{
		Caller:   sellerAddr,
		BundleId: "solo",
		Entries: []bundle.Entry{
			{Nft: nftOneAddr, TokenId: "1", Quantity: 1},
		},
		PayToken:     tokenAddr,
		Price:        "20",
		StartingTime: s.clock.Now().Add(time.Hour),
	}))

	err := s.im.BuyItem(s.ctx, bundle.BuyItemReq{
		Caller:   buyerAddr,
		BundleId: "solo",
		Seller:   sellerAddr,
		PayToken: tokenAddr,
	})
	s.ErrorIs(err, domain.ErrNotStarted)
}

func (s *bundleSuite) TestUpdateAndCancel() {
	s.listPair("20")

	s.Require().NoError(s.im.UpdateListing(s.ctx, bundle.UpdateListingReq{
		Caller:   sellerAddr,
		BundleId: "pair",
		PayToken: tokenAddr,
		Price:    "30",
	}))
	got, err := s.repo.FindOne(s.ctx, bundle.Id{BundleId: "pair", Seller: sellerAddr})
	s.Require().NoError(err)
	s.Equal("30", got.Price)
	s.Len(got.Entries, 2)

	s.ErrorIs(s.im.CancelListing(s.ctx, buyerAddr, "pair"), domain.ErrBundleNotFound)
	s.Require().NoError(s.im.CancelListing(s.ctx, sellerAddr, "pair"))
	_, err = s.repo.FindOne(s.ctx, bundle.Id{BundleId: "pair", Seller: sellerAddr})
	s.ErrorIs(err, domain.ErrBundleNotFound)
}

func (s *bundleSuite) TestRelistReplacesEntries() {
	s.listPair("20")

	s.ledger.MintAsset(nftOneAddr, "9", sellerAddr, 1)
	s.Require().NoError(s.im.ListItem(s.ctx, bundle.ListItemReq{
		Caller:   sellerAddr,
		BundleId: "pair",
		Entries: []bundle.Entry{
			{Nft: nftOneAddr, TokenId: "9", Quantity: 1},
		},
		PayToken: tokenAddr,
		Price:    "5",
	}))

	got, err := s.repo.FindOne(s.ctx, bundle.Id{BundleId: "pair", Seller: sellerAddr})
	s.Require().NoError(err)
	s.Len(got.Entries, 1)
	s.Equal(domain.TokenId("9"), got.Entries[0].TokenId)
	s.Equal("5", got.Price)
}
