package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	pkgdb "github.com/dimmoon69/booktime/pkg/db"
	"github.com/dimmoon69/booktime/pkg/metrics"
	authmw "github.com/dimmoon69/booktime/pkg/middleware/auth"
	"github.com/dimmoon69/booktime/pkg/middleware/csrf"
	loggingmw "github.com/dimmoon69/booktime/pkg/middleware/logging"
)

type Deps struct {
	DB     *gorm.DB
	Logger *slog.Logger

	Auth      *AuthHTTP
	Catalog   *CatalogHTTP
	Basket    *BasketHTTP
	Orders    *OrderHTTP
	Addresses *AddressHTTP
	Contact   *ContactHTTP

	AuthMW *authmw.AutoRefreshMiddleware

	// CSRF enables the double-submit check when set.
	CSRF *csrf.Config
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// MediaRoot is served under MediaURL for the local disk.
	MediaRoot string
	MediaURL  string
}

// New builds the echo instance with the middleware chain and every route.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(metrics.Middleware())
	if d.CSRF != nil {
		e.Use(csrf.Middleware(*d.CSRF))
	}

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.DB != nil {
			if err := pkgdb.Ping(c.Request().Context(), d.DB); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(d.Gatherer)))
	}
	if d.MediaRoot != "" && d.MediaURL != "" {
		e.Static(d.MediaURL, d.MediaRoot)
	}

	v1 := e.Group("/api/v1")

	v1.POST("/signup", d.Auth.Signup)
	v1.POST("/login", d.Auth.Login)
	v1.POST("/logout", d.Auth.Logout)
	v1.GET("/me", d.Auth.Me, d.AuthMW.RequireAuth)
	v1.POST("/contact", d.Contact.Send)

	v1.GET("/products", d.Catalog.GetProducts)
	v1.GET("/products/search", d.Catalog.SearchProducts)
	v1.GET("/products/:slug", d.Catalog.GetProduct)
	v1.GET("/tags", d.Catalog.GetTags)
	v1.GET("/tags/:slug", d.Catalog.GetTag)

	basket := v1.Group("/basket", d.AuthMW.OptionalAuth)
	basket.GET("", d.Basket.GetBasket)
	basket.POST("/lines", d.Basket.AddLine)
	basket.PATCH("/lines", d.Basket.UpdateLines)

	private := v1.Group("", d.AuthMW.RequireAuth)
	private.POST("/orders", d.Orders.Checkout)
	private.GET("/orders", d.Orders.MyOrders)
	private.GET("/orders/:id", d.Orders.MyOrder)

	private.GET("/addresses", d.Addresses.List)
	private.POST("/addresses", d.Addresses.Create)
	private.GET("/addresses/:id", d.Addresses.Get)
	private.PUT("/addresses/:id", d.Addresses.Update)
	private.DELETE("/addresses/:id", d.Addresses.Delete)

	admin := v1.Group("/admin", d.AuthMW.RequireStaff)
	admin.POST("/products", d.Catalog.CreateProduct)
	admin.PATCH("/products/:id", d.Catalog.PatchProduct)
	admin.DELETE("/products/:id", d.Catalog.DeleteProduct)
	admin.POST("/products/:id/images", d.Catalog.UploadImage)
	admin.POST("/thumbnails", d.Catalog.RegenerateThumbnails)

	admin.GET("/tags", d.Catalog.GetAllTags)
	admin.POST("/tags", d.Catalog.CreateTag)
	admin.PATCH("/tags/:slug", d.Catalog.PatchTag)
	admin.DELETE("/tags/:slug", d.Catalog.DeactivateTag)

	admin.GET("/orders", d.Orders.AllOrders)
	admin.GET("/orders/:id", d.Orders.GetOrder)
	admin.PATCH("/orders/:id", d.Orders.PatchOrderStatus)
	admin.PATCH("/orders/:id/lines/:line_id", d.Orders.PatchLineStatus)
}
