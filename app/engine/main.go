package main

import (
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/go-playground/validator/v10"
	"github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/database/mongoclient"
	"github.com/x-xyz/settlement/base/log"
	bValidator "github.com/x-xyz/settlement/base/validator"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/fee"
	mmiddleware "github.com/x-xyz/settlement/middleware"
	"github.com/x-xyz/settlement/service/cache"
	"github.com/x-xyz/settlement/service/cache/provider/primitive"
	"github.com/x-xyz/settlement/service/emitter"
	"github.com/x-xyz/settlement/service/ledger"
	"github.com/x-xyz/settlement/service/oracle"
	"github.com/x-xyz/settlement/service/query"
	auction_delivery "github.com/x-xyz/settlement/stores/auction/delivery/http"
	auction_repository "github.com/x-xyz/settlement/stores/auction/repository"
	auction_usecase "github.com/x-xyz/settlement/stores/auction/usecase"
	bundle_delivery "github.com/x-xyz/settlement/stores/bundle/delivery/http"
	bundle_repository "github.com/x-xyz/settlement/stores/bundle/repository"
	bundle_usecase "github.com/x-xyz/settlement/stores/bundle/usecase"
	hc_delivery "github.com/x-xyz/settlement/stores/healthcheck/delivery/http"
	hc_repo "github.com/x-xyz/settlement/stores/healthcheck/repository"
	hc_usecase "github.com/x-xyz/settlement/stores/healthcheck/usecase"
	listing_delivery "github.com/x-xyz/settlement/stores/listing/delivery/http"
	listing_repository "github.com/x-xyz/settlement/stores/listing/repository"
	listing_usecase "github.com/x-xyz/settlement/stores/listing/usecase"
	paytoken_delivery "github.com/x-xyz/settlement/stores/paytoken/delivery/http"
	paytoken_repository "github.com/x-xyz/settlement/stores/paytoken/repository"
	paytoken_usecase "github.com/x-xyz/settlement/stores/paytoken/usecase"
	settlement_delivery "github.com/x-xyz/settlement/stores/settlement/delivery/http"
	settlement_repository "github.com/x-xyz/settlement/stores/settlement/repository"
)

func init() {
	viper.SetConfigType("yaml")
	viper.SetConfigFile(`infra/configs/config.yaml`)
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

func main() {
	// init echo
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	e.Use(middleware.CORS())
	e.Validator = bValidator.NewCustomValidator(validator.New())

	context := ctx.Background()

	// init mongo client
	context.Info("init mongo")
	uri := viper.GetString("mongo.uri")
	authDBName := viper.GetString("mongo.authDBName")
	dbName := viper.GetString("mongo.dbName")
	enableSSL := viper.GetBool("mongo.enableSSL")
	mongoClient := mongoclient.MustConnectMongoClient(uri, authDBName, dbName, enableSSL, true, 2)
	q := query.New(mongoClient)

	// init in-process cache for oracle quotes and health checks
	context.Info("init cache")
	cacheSize := viper.GetInt("cache.sizeMB")
	if cacheSize <= 0 {
		cacheSize = 16
	}
	quoteCache := cache.New(cache.ServiceConfig{
		Ttl:   viper.GetDuration("cache.ttl"),
		Pfx:   "engine",
		Cache: primitive.NewPrimitive("engine", cacheSize),
	})

	// init ledger
	engineAddr := domain.Address(viper.GetString("engine.address")).ToLower()
	ledgerService := ledger.NewInMemory(engineAddr)
	assets := ledgerService.Assets()
	payments := ledgerService.Payments()

	// fee schedule
	feeRecipient := domain.Address(viper.GetString("fees.recipient")).ToLower()
	fees := fee.DefaultSchedule(feeRecipient)
	if v := viper.GetInt64("fees.saleBps"); v > 0 {
		fees.SaleBps = v
	}
	if v := viper.GetInt64("fees.auctionBps"); v > 0 {
		fees.AuctionBps = v
	}

	// static oracle quotes, token address -> reference unit price
	quotes := make(map[domain.Address]decimal.Decimal)
	for token, raw := range viper.GetStringMapString("oracle.quotes") {
		quote, err := decimal.NewFromString(raw)
		if err != nil {
			context.WithField("token", token).WithField("err", err).Panic("invalid oracle quote")
		}
		quotes[domain.Address(token)] = quote
	}
	priceOracle := oracle.NewStatic(quotes)

	clock := domain.RealClock()

	// all three engines settle against the same ledger and must share
	// one lock
	settlementLock := &sync.Mutex{}

	// construct repository, usecase and delivery
	hcRepo := hc_repo.New(mongoClient, quoteCache)
	paytokenRepo := paytoken_repository.NewPayTokenRepo(q)
	listingRepo := listing_repository.NewListingRepo(q)
	bundleRepo := bundle_repository.NewBundleRepo(q)
	auctionRepo := auction_repository.NewAuctionRepo(q)
	recordRepo := settlement_repository.NewRecordRepo(q)

	priceFormatter := oracle.NewPriceFormatter(&oracle.PriceFormatterCfg{
		Paytoken: paytokenRepo,
		Oracle:   priceOracle,
		Cache:    quoteCache,
	})
	recordEmitter := emitter.New(&emitter.Cfg{
		RecordRepo: recordRepo,
		Clock:      clock,
		Workers:    viper.GetInt("emitter.workers"),
		QueueLen:   viper.GetInt("emitter.queueLen"),
	})

	hc := hc_usecase.New(hcRepo)
	paytoken := paytoken_usecase.New(paytokenRepo)
	listing := listing_usecase.New(&listing_usecase.Cfg{
		Listing:  listingRepo,
		PayToken: paytoken,
		Assets:   assets,
		Payments: payments,
		Price:    priceFormatter,
		Emitter:  recordEmitter,
		Tx:       q,
		Clock:    clock,
		Fees:     fees,
		Engine:   engineAddr,
		Lock:     settlementLock,
	})
	bundle := bundle_usecase.New(&bundle_usecase.Cfg{
		Bundle:   bundleRepo,
		PayToken: paytoken,
		Assets:   assets,
		Payments: payments,
		Emitter:  recordEmitter,
		Tx:       q,
		Clock:    clock,
		Fees:     fees,
		Engine:   engineAddr,
		Lock:     settlementLock,
	})
	auction := auction_usecase.New(&auction_usecase.Cfg{
		Auction:        auctionRepo,
		PayToken:       paytoken,
		Assets:         assets,
		Payments:       payments,
		Emitter:        recordEmitter,
		Tx:             q,
		Clock:          clock,
		Fees:           fees,
		Engine:         engineAddr,
		SnipeWindow:    viper.GetDuration("auction.snipeWindow"),
		SnipeExtension: viper.GetDuration("auction.snipeExtension"),
		Lock:           settlementLock,
	})

	hc_delivery.New(e, hc)
	paytoken_delivery.New(e, paytoken)
	listing_delivery.New(e, listing)
	bundle_delivery.New(e, bundle)
	auction_delivery.New(e, auction)
	settlement_delivery.New(e, recordRepo)

	go func() {
		if err := e.Start(viper.GetString("server.address")); err != nil && err != http.ErrServerClosed {
			log.Log().WithField("err", err).Error("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithField("signal", sig).Info("received signal")
	ctx, cancel := ctx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Log().WithField("err", err).Error("shutting down the server")
	} else {
		log.Log().Info("shutdown server successfully")
	}
}
