package httpserver_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dimmoon69/booktime/internal/httpserver"
	"github.com/dimmoon69/booktime/internal/repo"
	"github.com/dimmoon69/booktime/internal/service"
	"github.com/dimmoon69/booktime/internal/testdb"
	"github.com/dimmoon69/booktime/pkg/cache"
	"github.com/dimmoon69/booktime/pkg/events"
	"github.com/dimmoon69/booktime/pkg/logging"
	pkgmail "github.com/dimmoon69/booktime/pkg/mail"
	authmw "github.com/dimmoon69/booktime/pkg/middleware/auth"
	"github.com/dimmoon69/booktime/pkg/storage"
)

var (
	accessSecret  = []byte("test-access-secret")
	refreshSecret = []byte("test-refresh-secret")
)

type testEnv struct {
	DB     *gorm.DB
	E      *echo.Echo
	Auth   *service.AuthService
	Events *events.Recorder
	Mail   *pkgmail.Outbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := testdb.Open(t)
	r := repo.New(gdb)
	rec := &events.Recorder{}
	outbox := &pkgmail.Outbox{}

	disk, err := storage.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	catalog := &service.CatalogService{Repo: r, Cache: cache.NewMemory(), Publisher: rec, Disk: disk}
	baskets := service.NewBasketService(r, r, rec)
	auth := &service.AuthService{
		Repo:          r,
		JWTSecret:     accessSecret,
		RefreshSecret: refreshSecret,
		Mailer:        outbox,
		SiteFrom:      "site@booktime.domain",
		Publisher:     rec,
	}
	t.Cleanup(auth.Wait)
	addresses := service.NewAddressService(r)

	e := httpserver.New(&httpserver.Deps{
		DB:     gdb,
		Logger: logging.NewWithWriter(io.Discard, "error"),
		Auth:   &httpserver.AuthHTTP{Svc: auth, Baskets: baskets},
		Catalog: &httpserver.CatalogHTTP{
			Svc:    catalog,
			Images: service.NewImageService(r, disk, catalog),
		},
		Basket:    &httpserver.BasketHTTP{Svc: baskets},
		Orders:    &httpserver.OrderHTTP{Svc: service.NewOrderService(r, rec), Baskets: baskets, Addresses: addresses},
		Addresses: &httpserver.AddressHTTP{Svc: addresses},
		Contact: &httpserver.ContactHTTP{Svc: &service.ContactService{
			Mailer: outbox,
			From:   "site@booktime.domain",
			To:     "customerservice@booktime.domain",
		}},
		AuthMW: authmw.NewAutoRefreshMiddleware(accessSecret, auth),
	})

	return &testEnv{DB: gdb, E: e, Auth: auth, Events: rec, Mail: outbox}
}

// client replays the cookies it was handed, like a browser would.
type client struct {
	env     *testEnv
	cookies map[string]*http.Cookie
}

func (env *testEnv) client() *client {
	return &client{env: env, cookies: map[string]*http.Cookie{}}
}

func (cl *client) serve(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range cl.cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	rec := httptest.NewRecorder()
	cl.env.E.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(cl.cookies, ck.Name)
			continue
		}
		cl.cookies[ck.Name] = ck
	}
	return rec
}

func (cl *client) doJSONRequest(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return cl.serve(req)
}

func (cl *client) upload(t *testing.T, path, field, filename string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return cl.serve(req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// signup registers a customer through the API and leaves the client logged in.
func (cl *client) signup(t *testing.T, email string) {
	t.Helper()
	rec := cl.doJSONRequest(t, http.MethodPost, "/api/v1/signup", map[string]string{
		"email":     email,
		"password1": "s3cretpass",
		"password2": "s3cretpass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (env *testEnv) staff(t *testing.T) *client {
	t.Helper()
	_, err := env.Auth.CreateSuperuser(t.Context(), "admin@booktime.domain", "adminpass")
	require.NoError(t, err)

	cl := env.client()
	rec := cl.doJSONRequest(t, http.MethodPost, "/api/v1/login", map[string]string{
		"email":    "admin@booktime.domain",
		"password": "adminpass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return cl
}
