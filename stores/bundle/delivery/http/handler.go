package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/delivery"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/domain/bundle"
	"github.com/x-xyz/settlement/middleware"
)

type handler struct {
	bundle bundle.UseCase
}

func New(e *echo.Echo, bundle bundle.UseCase) {
	h := &handler{bundle}

	gs := e.Group("/bundles")

	gs.GET("", h.findAll)

	gs.POST("", h.listItem, middleware.CallerAddress())

	g := e.Group("/bundle/:bundleId")

	g.GET("/:seller", h.get, middleware.IsValidAddress("seller"))

	g.PUT("", h.update, middleware.CallerAddress())

	g.DELETE("", h.cancel, middleware.CallerAddress())

	g.POST("/buy", h.buy, middleware.CallerAddress())
}

type findAllParams struct {
	Seller *domain.Address `query:"seller"`
	Nft    *domain.Address `query:"nft"`
	Offset int32           `query:"offset"`
	Limit  int32           `query:"limit"`
}

func (h *handler) findAll(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := &findAllParams{}
	if err := c.Bind(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	opts := []bundle.FindAllOptionsFunc{}
	if p.Seller != nil {
		opts = append(opts, bundle.WithSeller(*p.Seller))
	}
	if p.Nft != nil {
		opts = append(opts, bundle.WithNft(*p.Nft))
	}
	if p.Offset != 0 || p.Limit != 0 {
		opts = append(opts, bundle.WithPagination(p.Offset, p.Limit))
	}

	res, err := h.bundle.FindAll(ctx, opts...)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) get(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	id := bundle.Id{
		BundleId: domain.BundleId(c.Param("bundleId")),
		Seller:   domain.Address(c.Param("seller")),
	}

	res, err := h.bundle.GetListing(ctx, id)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) listItem(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := bundle.ListItemReq{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err.Error())
	}
	p.Caller = c.Get("caller").(domain.Address)

	if err := h.bundle.ListItem(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := bundle.UpdateListingReq{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}
	p.BundleId = domain.BundleId(c.Param("bundleId"))
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err.Error())
	}
	p.Caller = c.Get("caller").(domain.Address)

	if err := h.bundle.UpdateListing(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) cancel(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	caller := c.Get("caller").(domain.Address)
	bundleId := domain.BundleId(c.Param("bundleId"))

	if err := h.bundle.CancelListing(ctx, caller, bundleId); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) buy(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := bundle.BuyItemReq{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}
	p.BundleId = domain.BundleId(c.Param("bundleId"))
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err.Error())
	}
	p.Caller = c.Get("caller").(domain.Address)

	if err := h.bundle.BuyItem(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func errStatus(err error) int {
	switch err {
	case domain.ErrInvalidQuantity, domain.ErrInvalidBundle, domain.ErrBadParamInput,
		domain.ErrUnsupportedToken, domain.ErrNotOwnerOrUnapproved, domain.ErrNotStarted,
		domain.ErrTokenMismatch, domain.ErrInsufficientBalance, domain.ErrInsufficientAllowance:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
