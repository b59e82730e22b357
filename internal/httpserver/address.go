package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dimmoon69/booktime/internal/service"
	"github.com/dimmoon69/booktime/internal/transport"
	"github.com/dimmoon69/booktime/pkg/logging"
)

type AddressHTTP struct {
	Svc *service.AddressService
}

func (h *AddressHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address.list")

	uid, err := requireUserID(c)
	if err != nil {
		return errUnauthorized
	}
	items, err := h.Svc.List(ctx, uid)
	if err != nil {
		return fail(l, "list_addresses_failed", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AddressHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address.get")

	uid, err := requireUserID(c)
	if err != nil {
		return errUnauthorized
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "get_address_failed", "id not a uuid", err)
	}
	a, err := h.Svc.Get(ctx, uid, id)
	if err != nil {
		return fail(l, "get_address_failed", err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AddressHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address.create")

	uid, err := requireUserID(c)
	if err != nil {
		return errUnauthorized
	}
	var req transport.AddressRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_address_failed", "invalid body", err)
	}
	a, err := h.Svc.Create(ctx, uid, service.AddressInput(req))
	if err != nil {
		return fail(l, "create_address_failed", err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *AddressHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address.update")

	uid, err := requireUserID(c)
	if err != nil {
		return errUnauthorized
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "update_address_failed", "id not a uuid", err)
	}
	var req transport.AddressRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_address_failed", "invalid body", err)
	}
	a, err := h.Svc.Update(ctx, uid, id, service.AddressInput(req))
	if err != nil {
		return fail(l, "update_address_failed", err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AddressHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "address.delete")

	uid, err := requireUserID(c)
	if err != nil {
		return errUnauthorized
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "delete_address_failed", "id not a uuid", err)
	}
	if err := h.Svc.Delete(ctx, uid, id); err != nil {
		return fail(l, "delete_address_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}
