package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dimmoon69/booktime/internal/httpserver"
	"github.com/dimmoon69/booktime/internal/repo"
	"github.com/dimmoon69/booktime/pkg/jwt"
	"github.com/dimmoon69/booktime/pkg/metrics"
	authmw "github.com/dimmoon69/booktime/pkg/middleware/auth"
	"github.com/dimmoon69/booktime/pkg/middleware/csrf"
	"github.com/dimmoon69/booktime/pkg/storage"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if serveMigrate {
			if err := repo.Migrate(ctx, a.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		jwt.Secure = a.cfg.CookieSecure
		if a.memory != nil {
			go a.memory.Run(ctx)
		}

		deps := &httpserver.Deps{
			DB:        a.db,
			Logger:    a.logger,
			Auth:      &httpserver.AuthHTTP{Svc: a.auth, Baskets: a.baskets},
			Catalog:   &httpserver.CatalogHTTP{Svc: a.catalog, Images: a.images},
			Basket:    &httpserver.BasketHTTP{Svc: a.baskets},
			Orders:    &httpserver.OrderHTTP{Svc: a.orders, Baskets: a.baskets, Addresses: a.addresses, PageSize: a.cfg.PageSize},
			Addresses: &httpserver.AddressHTTP{Svc: a.addresses},
			Contact:   &httpserver.ContactHTTP{Svc: a.contact},
			AuthMW:    authmw.NewAutoRefreshMiddleware(a.cfg.JWTAccessSecret, a.auth),
			Gatherer:  prometheus.DefaultGatherer,
		}
		if a.cfg.CSRFEnabled {
			c := csrf.DefaultConfig()
			c.Secure = a.cfg.CookieSecure
			deps.CSRF = &c
		}
		if local, ok := a.disk.(*storage.Local); ok {
			deps.MediaRoot = local.Root()
			deps.MediaURL = a.cfg.Storage.LocalURL
		}

		port := a.cfg.ServerPort
		if servePort != 0 {
			port = servePort
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           httpserver.New(deps),
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			ReadHeaderTimeout: 3 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.logger.Info("server_listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		err = g.Wait()
		a.logger.Info("server_stopped")
		return err
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port, overrides SERVER_PORT")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "run migrations before listening")
}
