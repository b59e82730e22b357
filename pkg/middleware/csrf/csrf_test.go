package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(DefaultConfig()))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/api/v1/basket", ok)
	e.POST("/api/v1/basket/lines", ok)
	e.POST("/health/live", ok)
	return e
}

func TestMiddleware_DoubleSubmit(t *testing.T) {
	e := newServer()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/basket", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	tests := []struct {
		name   string
		header string
		origin string
		want   int
	}{
		{name: "matching token", header: token, origin: "http://example.com", want: http.StatusNoContent},
		{name: "missing token", origin: "http://example.com", want: http.StatusForbidden},
		{name: "wrong token", header: "nope", origin: "http://example.com", want: http.StatusForbidden},
		{name: "foreign origin", header: token, origin: "http://evil.test", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://example.com/api/v1/basket/lines", nil)
			req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: token})
			req.Header.Set("Origin", tt.origin)
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMiddleware_SkipsHealth(t *testing.T) {
	e := newServer()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health/live", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
