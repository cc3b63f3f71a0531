package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/base/delivery"
	"github.com/x-xyz/settlement/domain"
)

type handler struct {
	records domain.RecordRepo
}

// New exposes the append-only settlement feed consumed by indexers.
func New(e *echo.Echo, records domain.RecordRepo) {
	h := &handler{records}

	e.GET("/settlements", h.findAll)
}

type findAllParams struct {
	Kind   *domain.RecordKind `query:"kind"`
	Offset int32              `query:"offset"`
	Limit  int32              `query:"limit"`
}

func (h *handler) findAll(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := &findAllParams{}
	if err := c.Bind(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	limit := p.Limit
	if limit == 0 || limit > 500 {
		limit = 100
	}

	res, err := h.records.FindAll(ctx, p.Kind, p.Offset, limit)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}
