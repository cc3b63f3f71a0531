package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/delivery"
	"github.com/x-xyz/settlement/domain"
	"github.com/x-xyz/settlement/middleware"
)

type handler struct {
	payToken domain.PayTokenUseCase
}

// New wires the payment token allow-list admin endpoints.
func New(e *echo.Echo, payToken domain.PayTokenUseCase) {
	h := &handler{payToken}

	e.POST("/paytokens", h.register)

	g := e.Group("/paytoken/:address", middleware.IsValidAddress("address"))

	g.GET("/supported", h.isSupported)

	g.DELETE("", h.deregister)
}

type registerParams struct {
	Name          string         `json:"name" validate:"required"`
	Symbol        string         `json:"symbol" validate:"required"`
	Decimals      int32          `json:"decimals"`
	Address       domain.Address `json:"address" validate:"required"`
	OracleAddress domain.Address `json:"oracleAddress"`
}

func (h *handler) register(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := registerParams{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err.Error())
	}

	err := h.payToken.Register(ctx, &domain.PayToken{
		Name:          p.Name,
		Symbol:        p.Symbol,
		Decimals:      p.Decimals,
		Address:       p.Address,
		OracleAddress: p.OracleAddress,
	})
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) isSupported(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	supported, err := h.payToken.IsSupported(ctx, domain.Address(c.Param("address")))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, map[string]bool{"supported": supported})
}

func (h *handler) deregister(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	if err := h.payToken.Deregister(ctx, domain.Address(c.Param("address"))); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}
