package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/service"
	"github.com/dimmoon69/booktime/internal/transport"
	jwthelp "github.com/dimmoon69/booktime/pkg/jwt"
	"github.com/dimmoon69/booktime/pkg/logging"
	authmw "github.com/dimmoon69/booktime/pkg/middleware/auth"
)

type AuthHTTP struct {
	Svc     *service.AuthService
	Baskets *service.BasketService
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup")

	var req transport.SignupRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "signup_failed", "invalid body", err)
	}

	u, pair, err := h.Svc.Signup(ctx, req.Email, req.Password1, req.Password2)
	if err != nil {
		return fail(l, "signup_failed", err)
	}
	authmw.SetAuthCookies(c, pair)
	h.adoptBasket(c, u)

	return c.JSON(http.StatusCreated, transport.NewUserResponse(u))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_failed", "invalid body", err)
	}

	u, pair, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_failed", err)
	}
	authmw.SetAuthCookies(c, pair)
	h.adoptBasket(c, u)

	return c.JSON(http.StatusOK, transport.NewUserResponse(u))
}

// adoptBasket hands the anonymous cookie basket to the user who just
// authenticated. Failures only cost the user their anonymous basket.
func (h *AuthHTTP) adoptBasket(c echo.Context, u *models.User) {
	cookieID := basketFromCookie(c)
	if h.Baskets == nil || cookieID == nil {
		return
	}
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.adopt_basket", "user_id", u.ID, "basket_id", *cookieID)

	b, err := h.Baskets.Attach(ctx, *cookieID, u.ID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrBasketSubmitted) {
			clearBasketCookie(c)
			return
		}
		l.Warn("basket_attach_failed", "error", err)
		return
	}
	setBasketCookie(c, b.ID)
	l.Info("basket_attached", "target_basket_id", b.ID)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if ck, err := c.Cookie(jwthelp.RefreshCookie); err == nil {
		if err := h.Svc.Logout(ctx, ck.Value); err != nil {
			l.Error("logout_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot log out")
		}
	}
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/"))
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookie, "/"))
	clearBasketCookie(c)

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.me")

	uid, err := requireUserID(c)
	if err != nil {
		return errUnauthorized
	}
	u, err := h.Svc.User(ctx, uid)
	if err != nil {
		return fail(l, "me_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewUserResponse(u))
}
