package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/delivery"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/auction"
	"github.com/x-xyz/settlement/middleware"
)

type handler struct {
	auction auction.UseCase
}

func New(e *echo.Echo, auction auction.UseCase) {
	h := &handler{auction}

	gs := e.Group("/auctions")

	gs.GET("", h.findAll)

	gs.POST("", h.create, middleware.CallerAddress())

	g := e.Group("/auction/:nft/:tokenId/:seller",
		middleware.IsValidAddress("nft"), middleware.IsValidAddress("seller"))

	g.GET("", h.get)

	g.POST("/bid", h.placeBid, middleware.CallerAddress())

	g.POST("/result", h.result, middleware.CallerAddress())

	g.DELETE("", h.cancel, middleware.CallerAddress())
}

type findAllParams struct {
	Nft      *domain.Address `query:"nft"`
	TokenId  *domain.TokenId `query:"tokenId"`
	Seller   *domain.Address `query:"seller"`
	Resulted *bool           `query:"resulted"`
	Offset   int32           `query:"offset"`
	Limit    int32           `query:"limit"`
}

func (h *handler) findAll(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := &findAllParams{}
	if err := c.Bind(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	opts := []auction.FindAllOptionsFunc{}
	if p.Nft != nil {
		opts = append(opts, auction.WithNft(*p.Nft))
	}
	if p.TokenId != nil {
		opts = append(opts, auction.WithTokenId(*p.TokenId))
	}
	if p.Seller != nil {
		opts = append(opts, auction.WithSeller(*p.Seller))
	}
	if p.Resulted != nil {
		opts = append(opts, auction.WithResulted(*p.Resulted))
	}
	if p.Offset != 0 || p.Limit != 0 {
		opts = append(opts, auction.WithPagination(p.Offset, p.Limit))
	}

	res, err := h.auction.FindAll(ctx, opts...)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) paramId(c echo.Context) auction.Id {
	return auction.Id{
		Nft:     domain.Address(c.Param("nft")),
		TokenId: domain.TokenId(c.Param("tokenId")),
		Seller:  domain.Address(c.Param("seller")),
	}
}

func (h *handler) get(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	res, err := h.auction.GetAuction(ctx, h.paramId(c))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := auction.CreateAuctionReq{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err.Error())
	}
	p.Caller = c.Get("caller").(domain.Address)

	if err := h.auction.CreateAuction(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) placeBid(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := auction.PlaceBidReq{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}
	id := h.paramId(c)
	p.Nft = id.Nft
	p.TokenId = id.TokenId
	p.Seller = id.Seller
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err.Error())
	}
	p.Caller = c.Get("caller").(domain.Address)

	if err := h.auction.PlaceBid(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) result(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	caller := c.Get("caller").(domain.Address)
	if err := h.auction.ResultAuction(ctx, caller, h.paramId(c)); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) cancel(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	caller := c.Get("caller").(domain.Address)
	if err := h.auction.CancelAuction(ctx, caller, h.paramId(c)); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func errStatus(err error) int {
	switch err {
	case domain.ErrBadParamInput, domain.ErrUnsupportedToken, domain.ErrNotOwnerOrUnapproved,
		domain.ErrInvalidWindow, domain.ErrInsufficientBalance, domain.ErrInsufficientAllowance:
		return http.StatusBadRequest
	case domain.ErrAuctionNotOpen, domain.ErrBidTooLow, domain.ErrAuctionNotEnded,
		domain.ErrAlreadyResulted, domain.ErrNoBids, domain.ErrBidsExist:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
