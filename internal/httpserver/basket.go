package httpserver

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/dimmoon69/booktime/internal/port"
	"github.com/dimmoon69/booktime/internal/service"
	"github.com/dimmoon69/booktime/internal/transport"
	"github.com/dimmoon69/booktime/pkg/logging"
)

type BasketHTTP struct {
	Svc *service.BasketService
}

func (h *BasketHTTP) GetBasket(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "basket.get")

	b, err := h.Svc.Current(ctx, basketFromCookie(c), userID(c))
	if err != nil {
		return fail(l, "get_basket_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewBasketResponse(b))
}

// AddLine adds one unit of a product and points the basket cookie at the
// basket that received it.
func (h *BasketHTTP) AddLine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "basket.add")

	var req transport.AddToBasketRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_to_basket_failed", "invalid body", err)
	}
	if req.ProductID == uuid.Nil {
		return badRequest(l, "add_to_basket_failed", "product_id required", nil)
	}

	b, _, err := h.Svc.Add(ctx, basketFromCookie(c), userID(c), req.ProductID)
	if err != nil {
		return fail(l, "add_to_basket_failed", err)
	}
	setBasketCookie(c, b.ID)

	b, err = h.Svc.Current(ctx, &b.ID, userID(c))
	if err != nil {
		return fail(l, "add_to_basket_failed", err)
	}
	l.Info("basket_line_added", "basket_id", b.ID, "product_id", req.ProductID)
	return c.JSON(http.StatusCreated, transport.NewBasketResponse(b))
}

// UpdateLines applies the submitted quantities to the current basket.
func (h *BasketHTTP) UpdateLines(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "basket.update")

	var req transport.UpdateBasketRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_basket_failed", "invalid body", err)
	}

	current, err := h.Svc.Current(ctx, basketFromCookie(c), userID(c))
	if err != nil {
		return fail(l, "update_basket_failed", err)
	}
	if current == nil {
		return fail(l, "update_basket_failed", fmt.Errorf("%w: no open basket", service.ErrNotFound))
	}

	updates := lo.Map(req.Lines, func(u transport.LineUpdateRequest, _ int) port.LineUpdate {
		return port.LineUpdate{LineID: u.ID, Quantity: u.Quantity, Delete: u.Delete}
	})
	b, err := h.Svc.UpdateLines(ctx, current.ID, updates)
	if err != nil {
		return fail(l, "update_basket_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewBasketResponse(b))
}
