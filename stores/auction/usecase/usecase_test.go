package usecase

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/auction"
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

func (e *captureEmitter) kinds() []domain.RecordKind {
	kinds := make([]domain.RecordKind, 0, len(e.records))
	for _, r := range e.records {
		kinds = append(kinds, r.Kind)
	}
	return kinds
}

type passthroughTx struct{}

func (passthroughTx) RunWithTransaction(c bCtx.Ctx, run func(bCtx.Ctx) error) error {
	return run(c)
}

type memAuctionRepo struct {
	data     map[auction.Id]auction.Auction
	patchErr error
}

func newMemAuctionRepo() *memAuctionRepo {
	return &memAuctionRepo{data: map[auction.Id]auction.Auction{}}
}

func lowerId(id auction.Id) auction.Id {
	id.Nft = id.Nft.ToLower()
	id.Seller = id.Seller.ToLower()
	return id
}

func (r *memAuctionRepo) FindOne(c bCtx.Ctx, id auction.Id) (*auction.Auction, error) {
	if a, ok := r.data[lowerId(id)]; ok {
		res := a
		if a.HighestBid != nil {
			bid := *a.HighestBid
			res.HighestBid = &bid
		}
		return &res, nil
	}
	return nil, domain.ErrAuctionNotFound
}

func (r *memAuctionRepo) FindAll(c bCtx.Ctx, opts ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	res := []*auction.Auction{}
	for _, a := range r.data {
		a := a
		res = append(res, &a)
	}
	return res, nil
}

func (r *memAuctionRepo) Upsert(c bCtx.Ctx, a *auction.Auction) error {
	a.LowerCase()
	r.data[a.ToId()] = *a
	return nil
}

func (r *memAuctionRepo) Patch(c bCtx.Ctx, id auction.Id, patchable auction.Patchable) error {
	if r.patchErr != nil {
		return r.patchErr
	}
	a, ok := r.data[lowerId(id)]
	if !ok {
		return domain.ErrAuctionNotFound
	}
	if patchable.EndTime != nil {
		a.EndTime = *patchable.EndTime
	}
	if patchable.Resulted != nil {
		a.Resulted = *patchable.Resulted
	}
	if patchable.HighestBid != nil {
		bid := *patchable.HighestBid
		a.HighestBid = &bid
	}
	r.data[lowerId(id)] = a
	return nil
}

func (r *memAuctionRepo) Remove(c bCtx.Ctx, id auction.Id) error {
	if _, ok := r.data[lowerId(id)]; !ok {
		return domain.ErrAuctionNotFound
	}
	delete(r.data, lowerId(id))
	return nil
}

const (
	engineAddr    = domain.Address("0x000000000000000000000000000000000000e941")
	sellerAddr    = domain.Address("0xc37c41601bc88c91b6569c701f08d37fa0f565f0")
	recipientAddr = domain.Address("0x9a38dec0590abc8c883d72e52391090e948ddf12")
	tokenAddr     = domain.Address("0xef88c71f5be29c4b30bf89625bd9be8f263e940c")
	nftAddr       = domain.Address("0xef88c71f5be29c4b30bf89625bd9be8f21234567")
	bidderOne     = domain.Address("0x72fd0c35b0569f69701c2b1b870c00daf2dfbdb6")
	bidderTwo     = domain.Address("0x00000000000000000000000000000000000000b2")
	bidderThree   = domain.Address("0x00000000000000000000000000000000000000b3")
)

type auctionSuite struct {
	suite.Suite

	ctx      bCtx.Ctx
	clock    *fixedClock
	ledger   *ledger.InMemory
	repo     *memAuctionRepo
	payToken *mocks.PayTokenUseCase
	emitter  *captureEmitter
	im       auction.UseCase
}

func TestAuctionSuite(t *testing.T) {
	suite.Run(t, new(auctionSuite))
}

func (s *auctionSuite) SetupTest() {
	s.ctx = bCtx.Background()
	s.clock = &fixedClock{now: time.Unix(1700000000, 0)}
	s.ledger = ledger.NewInMemory(engineAddr)
	s.repo = newMemAuctionRepo()
	s.payToken = &mocks.PayTokenUseCase{}
	s.emitter = &captureEmitter{}
	s.im = New(&Cfg{
		Auction:  s.repo,
		PayToken: s.payToken,
		Assets:   s.ledger.Assets(),
		Payments: s.ledger.Payments(),
		Emitter:  s.emitter,
		Tx:       passthroughTx{},
		Clock:    s.clock,
		Fees:     fee.Schedule{Recipient: recipientAddr, AuctionBps: fee.DefaultAuctionBps},
		Engine:   engineAddr,
	})

	s.payToken.On("IsSupported", mock.Anything, tokenAddr).Return(true, nil)
}

func (s *auctionSuite) balance(holder domain.Address) int64 {
	bal, err := s.ledger.Payments().BalanceOf(s.ctx, tokenAddr, holder)
	s.Require().NoError(err)
	return bal.Int64()
}

func (s *auctionSuite) id() auction.Id {
	return auction.Id{Nft: nftAddr, TokenId: "1", Seller: sellerAddr}
}

// create opens an auction with the given reserve, running for a day.
func (s *auctionSuite) create(reserve string, resettable bool) {
	s.ledger.MintAsset(nftAddr, "1", sellerAddr, 1)
	s.ledger.SetApprovalForAll(nftAddr, sellerAddr, engineAddr, true)
	s.Require().NoError(s.im.CreateAuction(s.ctx, auction.CreateAuctionReq{
		Caller:       sellerAddr,
		Nft:          nftAddr,
		TokenId:      "1",
		PayToken:     tokenAddr,
		ReservePrice: reserve,
		StartTime:    s.clock.Now(),
		EndTime:      s.clock.Now().Add(24 * time.Hour),
		Resettable:   resettable,
	}))
}

func (s *auctionSuite) fund(bidder domain.Address, amount int64) {
	s.ledger.Mint(tokenAddr, bidder, big.NewInt(amount))
	s.ledger.Approve(tokenAddr, bidder, engineAddr, big.NewInt(amount))
}

func (s *auctionSuite) bid(bidder domain.Address, amount string) error {
	return s.im.PlaceBid(s.ctx, auction.PlaceBidReq{
		Caller:  bidder,
		Nft:     nftAddr,
		TokenId: "1",
		Seller:  sellerAddr,
		Amount:  amount,
	})
}

func (s *auctionSuite) TestCreateAuctionInvalidWindow() {
	err := s.im.CreateAuction(s.ctx, auction.CreateAuctionReq{
		Caller:       sellerAddr,
		Nft:          nftAddr,
		TokenId:      "1",
		PayToken:     tokenAddr,
		ReservePrice: "2000",
		StartTime:    s.clock.Now().Add(time.Hour),
		EndTime:      s.clock.Now(),
	})
	s.ErrorIs(err, domain.ErrInvalidWindow)
}

func (s *auctionSuite) TestCreateAuctionExists() {
	s.create("2000", false)
	err := s.im.CreateAuction(s.ctx, auction.CreateAuctionReq{
		Caller:       sellerAddr,
		Nft:          nftAddr,
		TokenId:      "1",
		PayToken:     tokenAddr,
		ReservePrice: "2000",
		StartTime:    s.clock.Now(),
		EndTime:      s.clock.Now().Add(time.Hour),
	})
	s.ErrorIs(err, domain.ErrAuctionExists)
}

func (s *auctionSuite) TestPlaceBidGates() {
	s.ledger.MintAsset(nftAddr, "1", sellerAddr, 1)
	s.ledger.SetApprovalForAll(nftAddr, sellerAddr, engineAddr, true)
	s.Require().NoError(s.im.CreateAuction(s.ctx, auction.CreateAuctionReq{
		Caller:       sellerAddr,
		Nft:          nftAddr,
		TokenId:      "1",
		PayToken:     tokenAddr,
		ReservePrice: "2000",
		StartTime:    s.clock.Now().Add(time.Hour),
		EndTime:      s.clock.Now().Add(24 * time.Hour),
	}))

	s.fund(bidderOne, 5000)

	// before start
	s.ErrorIs(s.bid(bidderOne, "2000"), domain.ErrAuctionNotOpen)

	s.clock.now = s.clock.now.Add(2 * time.Hour)

	// below reserve
	s.ErrorIs(s.bid(bidderOne, "1999"), domain.ErrBidTooLow)

	s.Require().NoError(s.bid(bidderOne, "2000"))

	// tie rejected
	s.fund(bidderTwo, 5000)
	s.ErrorIs(s.bid(bidderTwo, "2000"), domain.ErrBidTooLow)

	// after end
	s.clock.now = s.clock.now.Add(48 * time.Hour)
	s.ErrorIs(s.bid(bidderTwo, "3000"), domain.ErrAuctionNotOpen)
}

func (s *auctionSuite) TestAuctionScenario() {
	// reserve 2000, bids 2000 -> 2500 -> 3000, each outbid refunded in
	// full; 2.5% surplus fee on 1000 = 25, seller receives 2975
	s.create("2000", false)
	s.fund(bidderOne, 2000)
	s.fund(bidderTwo, 2500)
	s.fund(bidderThree, 3000)

	s.Require().NoError(s.bid(bidderOne, "2000"))
	s.Equal(int64(0), s.balance(bidderOne))
	s.Equal(int64(2000), s.balance(engineAddr))

	s.Require().NoError(s.bid(bidderTwo, "2500"))
	s.Equal(int64(2000), s.balance(bidderOne))
	s.Equal(int64(0), s.balance(bidderTwo))
	s.Equal(int64(2500), s.balance(engineAddr))

	s.Require().NoError(s.bid(bidderThree, "3000"))
	s.Equal(int64(2500), s.balance(bidderTwo))
	s.Equal(int64(0), s.balance(bidderThree))
	s.Equal(int64(3000), s.balance(engineAddr))

	s.clock.now = s.clock.now.Add(25 * time.Hour)
	s.Require().NoError(s.im.ResultAuction(s.ctx, sellerAddr, s.id()))

	s.Equal(int64(25), s.balance(recipientAddr))
	s.Equal(int64(2975), s.balance(sellerAddr))
	s.Equal(int64(0), s.balance(engineAddr))

	owner, err := s.ledger.Assets().OwnerOf(s.ctx, nftAddr, "1")
	s.NoError(err)
	s.Equal(bidderThree, owner)

	got, err := s.repo.FindOne(s.ctx, s.id())
	s.Require().NoError(err)
	s.True(got.Resulted)

	s.ErrorIs(s.im.ResultAuction(s.ctx, sellerAddr, s.id()), domain.ErrAlreadyResulted)

	s.Equal([]domain.RecordKind{
		domain.RecordAuctionCreated,
		domain.RecordBidPlaced,
		domain.RecordBidRefunded,
		domain.RecordBidPlaced,
		domain.RecordBidRefunded,
		domain.RecordBidPlaced,
		domain.RecordAuctionResulted,
	}, s.emitter.kinds())
}

func (s *auctionSuite) TestResultAtReserveNoFee() {
	s.create("2000", false)
	s.fund(bidderOne, 2000)
	s.Require().NoError(s.bid(bidderOne, "2000"))

	s.clock.now = s.clock.now.Add(25 * time.Hour)
	s.Require().NoError(s.im.ResultAuction(s.ctx, bidderOne, s.id()))

	s.Equal(int64(0), s.balance(recipientAddr))
	s.Equal(int64(2000), s.balance(sellerAddr))
}

func (s *auctionSuite) TestResultGates() {
	s.create("2000", false)

	s.ErrorIs(s.im.ResultAuction(s.ctx, sellerAddr, s.id()), domain.ErrAuctionNotEnded)

	s.clock.now = s.clock.now.Add(25 * time.Hour)
	s.ErrorIs(s.im.ResultAuction(s.ctx, sellerAddr, s.id()), domain.ErrNoBids)
}

func (s *auctionSuite) TestResultOnlySellerOrWinner() {
	s.create("2000", false)
	s.fund(bidderOne, 2000)
	s.Require().NoError(s.bid(bidderOne, "2000"))

	s.clock.now = s.clock.now.Add(25 * time.Hour)
	s.ErrorIs(s.im.ResultAuction(s.ctx, bidderTwo, s.id()), domain.ErrNotOwnerOrUnapproved)
	s.NoError(s.im.ResultAuction(s.ctx, bidderOne, s.id()))
}

func (s *auctionSuite) TestOutbidRefundFailureAbortsBid() {
	s.create("2000", false)
	s.fund(bidderOne, 2000)
	s.Require().NoError(s.bid(bidderOne, "2000"))

	// escrow shortfall: drain the engine account behind the store's back
	drain := domain.Address("0x00000000000000000000000000000000000000dd")
	s.Require().NoError(s.ledger.Payments().Transfer(s.ctx, tokenAddr, drain, big.NewInt(2000)))

	s.fund(bidderTwo, 2500)
	s.ErrorIs(s.bid(bidderTwo, "2500"), domain.ErrInsufficientBalance)

	// the new bidder's funds stayed put and the recorded bid unchanged
	s.Equal(int64(2500), s.balance(bidderTwo))
	got, err := s.repo.FindOne(s.ctx, s.id())
	s.Require().NoError(err)
	s.Equal(bidderOne, got.HighestBid.Bidder)
	s.Equal("2000", got.HighestBid.Amount)
}

func (s *auctionSuite) TestPlaceBidConcurrent() {
	s.create("2000", false)
	s.fund(bidderOne, 2000)
	s.fund(bidderTwo, 2000)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, bidder := range []domain.Address{bidderOne, bidderTwo} {
		wg.Add(1)
		go func(i int, bidder domain.Address) {
			defer wg.Done()
			errs[i] = s.bid(bidder, "2000")
		}(i, bidder)
	}
	wg.Wait()

	// only one bid at the reserve lands, the loser keeps its funds
	if errs[0] == nil {
		s.ErrorIs(errs[1], domain.ErrBidTooLow)
	} else {
		s.ErrorIs(errs[0], domain.ErrBidTooLow)
		s.NoError(errs[1])
	}
	s.Equal(int64(2000), s.balance(engineAddr))
	s.Equal(int64(2000), s.balance(bidderOne)+s.balance(bidderTwo))
}

func (s *auctionSuite) TestPlaceBidStoreFailureMovesNothing() {
	s.create("2000", false)
	s.fund(bidderOne, 2000)
	s.Require().NoError(s.bid(bidderOne, "2000"))

	s.fund(bidderTwo, 2500)
	s.repo.patchErr = errors.New("mongo unavailable")
	s.Error(s.bid(bidderTwo, "2500"))

	// the rejected bid never reaches escrow and no refund fired
	s.Equal(int64(2000), s.balance(engineAddr))
	s.Equal(int64(2500), s.balance(bidderTwo))
	s.Equal(int64(0), s.balance(bidderOne))

	s.repo.patchErr = nil
	got, err := s.repo.FindOne(s.ctx, s.id())
	s.Require().NoError(err)
	s.Equal(bidderOne, got.HighestBid.Bidder)
	s.Equal("2000", got.HighestBid.Amount)
}

func (s *auctionSuite) TestResultStoreFailureMovesNothing() {
	s.create("2000", false)
	s.fund(bidderOne, 3000)
	s.Require().NoError(s.bid(bidderOne, "3000"))
	s.clock.now = s.clock.now.Add(25 * time.Hour)

	s.repo.patchErr = errors.New("mongo unavailable")
	s.Error(s.im.ResultAuction(s.ctx, sellerAddr, s.id()))

	// the escrow and the asset stayed put
	s.Equal(int64(3000), s.balance(engineAddr))
	s.Equal(int64(0), s.balance(sellerAddr))
	s.Equal(int64(0), s.balance(recipientAddr))
	owner, err := s.ledger.Assets().OwnerOf(s.ctx, nftAddr, "1")
	s.NoError(err)
	s.Equal(sellerAddr, owner)

	s.repo.patchErr = nil
	s.NoError(s.im.ResultAuction(s.ctx, sellerAddr, s.id()))
	s.Equal(int64(25), s.balance(recipientAddr))
	s.Equal(int64(2975), s.balance(sellerAddr))
}

func (s *auctionSuite) TestAntiSnipeExtension() {
	s.ledger.MintAsset(nftAddr, "1", sellerAddr, 1)
	s.ledger.SetApprovalForAll(nftAddr, sellerAddr, engineAddr, true)
	endTime := s.clock.Now().Add(24 * time.Hour)
	s.Require().NoError(s.im.CreateAuction(s.ctx, auction.CreateAuctionReq{
		Caller:       sellerAddr,
		Nft:          nftAddr,
		TokenId:      "1",
		PayToken:     tokenAddr,
		ReservePrice: "2000",
		StartTime:    s.clock.Now(),
		EndTime:      endTime,
		Resettable:   true,
	}))

	// a bid well before the trailing window leaves the end alone
	s.fund(bidderOne, 2000)
	s.Require().NoError(s.bid(bidderOne, "2000"))
	got, err := s.repo.FindOne(s.ctx, s.id())
	s.Require().NoError(err)
	s.Equal(endTime, got.EndTime)

	// a bid inside the window pushes the end time out
	s.clock.now = endTime.Add(-5 * time.Minute)
	s.fund(bidderTwo, 2500)
	s.Require().NoError(s.bid(bidderTwo, "2500"))
	got, err = s.repo.FindOne(s.ctx, s.id())
	s.Require().NoError(err)
	s.Equal(endTime.Add(DefaultSnipeExtension), got.EndTime)
}

func (s *auctionSuite) TestCancelAuction() {
	s.create("2000", false)

	s.ErrorIs(s.im.CancelAuction(s.ctx, bidderOne, s.id()), domain.ErrNotOwnerOrUnapproved)

	s.fund(bidderOne, 2000)
	s.Require().NoError(s.bid(bidderOne, "2000"))
	s.ErrorIs(s.im.CancelAuction(s.ctx, sellerAddr, s.id()), domain.ErrBidsExist)
}

func (s *auctionSuite) TestCancelAuctionNoBids() {
	s.create("2000", false)
	s.Require().NoError(s.im.CancelAuction(s.ctx, sellerAddr, s.id()))

	_, err := s.repo.FindOne(s.ctx, s.id())
	s.ErrorIs(err, domain.ErrAuctionNotFound)
}
