package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/delivery"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/listing"
	"github.com/x-xyz/settlement/middleware"
)

type handler struct {
	listing listing.UseCase
}

func New(e *echo.Echo, listing listing.UseCase) {
	h := &handler{listing}

	gs := e.Group("/listings")

	gs.GET("", h.findAll)

	gs.POST("", h.listItem, middleware.CallerAddress())

	g := e.Group("/listing/:nft/:tokenId", middleware.IsValidAddress("nft"))

	g.GET("/:seller", h.get, middleware.IsValidAddress("seller"))

	g.PUT("", h.update, middleware.CallerAddress())

	g.DELETE("", h.cancel, middleware.CallerAddress())

	g.POST("/buy", h.buy, middleware.CallerAddress())
}

type findAllParams struct {
	Nft     *domain.Address `query:"nft"`
	TokenId *domain.TokenId `query:"tokenId"`
	Seller  *domain.Address `query:"seller"`
	Offset  int32           `query:"offset"`
	Limit   int32           `query:"limit"`
}

func (h *handler) findAll(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := &findAllParams{}
	if err := c.Bind(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	opts := []listing.FindAllOptionsFunc{}
	if p.Nft != nil {
		opts = append(opts, listing.WithNft(*p.Nft))
	}
	if p.TokenId != nil {
		opts = append(opts, listing.WithTokenId(*p.TokenId))
	}
	if p.Seller != nil {
		opts = append(opts, listing.WithSeller(*p.Seller))
	}
	if p.Offset != 0 || p.Limit != 0 {
		opts = append(opts, listing.WithPagination(p.Offset, p.Limit))
	}

	res, err := h.listing.FindAll(ctx, opts...)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) get(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	id := listing.Id{
		Nft:     domain.Address(c.Param("nft")),
		TokenId: domain.TokenId(c.Param("tokenId")),
		Seller:  domain.Address(c.Param("seller")),
	}

	res, err := h.listing.GetListing(ctx, id)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) listItem(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := listing.ListItemReq{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err.Error())
	}
	p.Caller = c.Get("caller").(domain.Address)

	if err := h.listing.ListItem(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := listing.UpdateListingReq{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}
	p.Nft = domain.Address(c.Param("nft"))
	p.TokenId = domain.TokenId(c.Param("tokenId"))
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err.Error())
	}
	p.Caller = c.Get("caller").(domain.Address)

	if err := h.listing.UpdateListing(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) cancel(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	caller := c.Get("caller").(domain.Address)
	nft := domain.Address(c.Param("nft"))
	tokenId := domain.TokenId(c.Param("tokenId"))

	if err := h.listing.CancelListing(ctx, caller, nft, tokenId); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) buy(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := listing.BuyItemReq{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}
	p.Nft = domain.Address(c.Param("nft"))
	p.TokenId = domain.TokenId(c.Param("tokenId"))
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err.Error())
	}
	p.Caller = c.Get("caller").(domain.Address)

	if err := h.listing.BuyItem(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

// errStatus maps precondition violations to 400 and leaves state
// conflicts to MakeJsonResp's own mapping.
func errStatus(err error) int {
	switch err {
	case domain.ErrInvalidQuantity, domain.ErrBadParamInput, domain.ErrUnsupportedToken,
		domain.ErrNotOwnerOrUnapproved, domain.ErrNotStarted, domain.ErrTokenMismatch,
		domain.ErrPriceExceeded, domain.ErrInsufficientBalance, domain.ErrInsufficientAllowance:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
