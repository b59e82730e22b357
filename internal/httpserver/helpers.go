package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	jwthelp "github.com/dimmoon69/booktime/pkg/jwt"
	authmw "github.com/dimmoon69/booktime/pkg/middleware/auth"
)

const (
	BasketCookie = "basket_id"
	basketMaxAge = 14 * 24 * time.Hour
)

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")

// userID returns the authenticated user, or nil for anonymous requests.
func userID(c echo.Context) *uuid.UUID {
	s, ok := c.Get(authmw.ContextUserID).(string)
	if !ok || s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func requireUserID(c echo.Context) (uuid.UUID, error) {
	id := userID(c)
	if id == nil {
		return uuid.Nil, errors.New("unauthorized")
	}
	return *id, nil
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

func intQuery(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func basketFromCookie(c echo.Context) *uuid.UUID {
	ck, err := c.Cookie(BasketCookie)
	if err != nil || ck.Value == "" {
		return nil
	}
	id, err := uuid.Parse(ck.Value)
	if err != nil {
		return nil
	}
	return &id
}

func setBasketCookie(c echo.Context, id uuid.UUID) {
	c.SetCookie(jwthelp.CreateCookie(BasketCookie, id.String(), "/", time.Now().Add(basketMaxAge)))
}

func clearBasketCookie(c echo.Context) {
	c.SetCookie(jwthelp.DeleteCookie(BasketCookie, "/"))
}
