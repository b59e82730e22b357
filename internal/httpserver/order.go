package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/service"
	"github.com/dimmoon69/booktime/internal/transport"
	"github.com/dimmoon69/booktime/internal/util"
	"github.com/dimmoon69/booktime/pkg/logging"
)

type OrderHTTP struct {
	Svc       *service.OrderService
	Baskets   *service.BasketService
	Addresses *service.AddressService
	PageSize  int
}

// Checkout turns the caller's current basket into an order and forgets the
// basket cookie.
func (h *OrderHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout")

	uid, err := requireUserID(c)
	if err != nil {
		l.Warn("checkout_failed", "status", 401, "error", err)
		return errUnauthorized
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "checkout_failed", "invalid body", err)
	}
	if req.BillingAddressID == uuid.Nil || req.ShippingAddressID == uuid.Nil {
		return badRequest(l, "checkout_failed", "billing_address_id and shipping_address_id required", nil)
	}

	billing, err := h.Addresses.Get(ctx, uid, req.BillingAddressID)
	if err != nil {
		return fail(l, "checkout_failed", addressErr("billing", err))
	}
	shipping, err := h.Addresses.Get(ctx, uid, req.ShippingAddressID)
	if err != nil {
		return fail(l, "checkout_failed", addressErr("shipping", err))
	}

	basket, err := h.Baskets.Current(ctx, basketFromCookie(c), &uid)
	if err != nil {
		return fail(l, "checkout_failed", err)
	}
	if basket == nil {
		return fail(l, "checkout_failed", service.ErrEmptyBasket)
	}

	order, err := h.Svc.CreateOrder(ctx, basket.ID, *billing, *shipping)
	if err != nil {
		return fail(l, "checkout_failed", err)
	}
	clearBasketCookie(c)

	l.Info("order_created", "order_id", order.ID, "basket_id", basket.ID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) list(c echo.Context, owner *uuid.UUID, handler string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", handler)

	page, size := util.Normalize(intQuery(c, "page", 1), intQuery(c, "size", 0), h.pageSize())
	total, orders, err := h.Svc.ListOrders(ctx, owner, c.QueryParam("status"), (page-1)*size, size)
	if err != nil {
		return fail(l, "list_orders_failed", err)
	}
	return c.JSON(http.StatusOK, transport.ListResponse[models.Order]{Data: orders, Meta: util.NewPage(page, size, total)})
}

func (h *OrderHTTP) pageSize() int {
	if h.PageSize > 0 {
		return h.PageSize
	}
	return 20
}

func (h *OrderHTTP) MyOrders(c echo.Context) error {
	uid, err := requireUserID(c)
	if err != nil {
		return errUnauthorized
	}
	return h.list(c, &uid, "order.list_mine")
}

func (h *OrderHTTP) MyOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_mine")

	uid, err := requireUserID(c)
	if err != nil {
		return errUnauthorized
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "get_order_failed", "id not a uuid", err)
	}
	order, err := h.Svc.GetOrder(ctx, id, &uid)
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	return c.JSON(http.StatusOK, order)
}

// AllOrders is the staff view; user_id narrows it to one customer.
func (h *OrderHTTP) AllOrders(c echo.Context) error {
	var owner *uuid.UUID
	if v := c.QueryParam("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "user_id not a uuid")
		}
		owner = &id
	}
	return h.list(c, owner, "order.list_all")
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "get_order_failed", "id not a uuid", err)
	}
	order, err := h.Svc.GetOrder(ctx, id, nil)
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) PatchOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.patch_status")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "order_status_failed", "id not a uuid", err)
	}
	var req transport.StatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "order_status_failed", "invalid body", err)
	}

	order, err := h.Svc.SetOrderStatus(ctx, id, req.Status)
	if err != nil {
		return fail(l, "order_status_failed", err)
	}
	l.Info("order_status_changed", "order_id", id, "order_status", order.Status)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) PatchLineStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.patch_line_status")

	orderID, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "line_status_failed", "id not a uuid", err)
	}
	lineID, err := uuidParam(c, "line_id")
	if err != nil {
		return badRequest(l, "line_status_failed", "line_id not a uuid", err)
	}
	var req transport.StatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "line_status_failed", "invalid body", err)
	}

	line, err := h.Svc.SetOrderLineStatus(ctx, orderID, lineID, req.Status)
	if err != nil {
		return fail(l, "line_status_failed", err)
	}
	return c.JSON(http.StatusOK, line)
}

// addressErr reports an unknown or foreign address as bad input. Other
// failures pass through unchanged.
func addressErr(kind string, err error) error {
	if errors.Is(err, service.ErrNotFound) {
		return fmt.Errorf("%w: %s address: %v", service.ErrValidation, kind, err)
	}
	return err
}
