package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dimmoon69/booktime/internal/service"
	"github.com/dimmoon69/booktime/internal/transport"
	"github.com/dimmoon69/booktime/pkg/logging"
)

type ContactHTTP struct {
	Svc *service.ContactService
}

func (h *ContactHTTP) Send(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "contact.send")

	var req transport.ContactRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "contact_failed", "invalid body", err)
	}
	if err := h.Svc.Send(ctx, service.ContactForm(req)); err != nil {
		return fail(l, "contact_failed", err)
	}
	l.Info("contact_sent")
	return c.JSON(http.StatusAccepted, echo.Map{"message": "message sent"})
}
