package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/dimmoon69/booktime/internal/repo"
	"github.com/dimmoon69/booktime/internal/search"
	"github.com/dimmoon69/booktime/internal/service"
	"github.com/dimmoon69/booktime/pkg/cache"
	"github.com/dimmoon69/booktime/pkg/config"
	pkgdb "github.com/dimmoon69/booktime/pkg/db"
	"github.com/dimmoon69/booktime/pkg/events"
	"github.com/dimmoon69/booktime/pkg/logging"
	pkgmail "github.com/dimmoon69/booktime/pkg/mail"
	"github.com/dimmoon69/booktime/pkg/storage"
)

// app holds everything a command may need. Backends without configuration
// fall back to in-process stand-ins.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	db     *gorm.DB
	repo   *repo.GormRepo

	disk      storage.Disk
	publisher events.Publisher
	redis     *cache.Redis
	memory    *cache.Memory

	auth      *service.AuthService
	catalog   *service.CatalogService
	images    *service.ImageService
	baskets   *service.BasketService
	orders    *service.OrderService
	addresses *service.AddressService
	contact   *service.ContactService
}

func bootDB() (config.Config, *slog.Logger, *gorm.DB, error) {
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("warning: could not load %s: %v", envFile, err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, nil, nil, err
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return cfg, logger, nil, fmt.Errorf("db open: %w", err)
	}
	return cfg, logger, db, nil
}

func bootApp(ctx context.Context) (*app, error) {
	cfg, logger, db, err := bootDB()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, db: db, repo: repo.New(db)}

	a.disk, err = storage.New(ctx, storage.Config(cfg.Storage))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	var store cache.Cache
	if cfg.RedisAddr == "" {
		a.memory = cache.NewMemory()
		store = a.memory
	} else {
		a.redis = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ServiceName+":")
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := a.redis.Ping(pingCtx)
		cancel()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		store = a.redis
	}

	a.publisher = events.Discard{}
	if len(cfg.KafkaBrokers) > 0 {
		a.publisher = events.NewProducer(cfg.KafkaBrokers)
	}

	var index service.ProductIndex
	if cfg.ESURL != "" {
		es, err := search.NewClient(search.Config{
			URL:      cfg.ESURL,
			Username: cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		}, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("elasticsearch: %w", err)
		}
		index = es
	} else {
		logger.Info("search_index_disabled", "reason", "ES_URL not set")
	}

	var mailer pkgmail.Sender = pkgmail.Console{Logger: logger}
	if cfg.Mail.Host != "" {
		mailer = &pkgmail.SMTP{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
		}
	}

	a.catalog = &service.CatalogService{
		Repo:      a.repo,
		Cache:     store,
		CacheTTL:  cfg.CacheTTL,
		Index:     index,
		Publisher: a.publisher,
		Disk:      a.disk,
		PageSize:  cfg.PageSize,
	}
	a.images = service.NewImageService(a.repo, a.disk, a.catalog)
	a.baskets = service.NewBasketService(a.repo, a.repo, a.publisher)
	a.orders = service.NewOrderService(a.repo, a.publisher)
	a.addresses = service.NewAddressService(a.repo)
	a.auth = &service.AuthService{
		Repo:          a.repo,
		JWTSecret:     cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Mailer:        mailer,
		SiteFrom:      cfg.Mail.SiteFrom,
		Publisher:     a.publisher,
	}
	a.contact = &service.ContactService{
		Mailer: mailer,
		From:   cfg.Mail.SiteFrom,
		To:     cfg.Mail.CustomerService,
	}
	return a, nil
}

// close waits for queued welcome mails and releases every connection.
func (a *app) close() {
	if a.auth != nil {
		a.auth.Wait()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher_close_failed", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis_close_failed", "error", err)
		}
	}
	if err := pkgdb.Close(a.db); err != nil {
		a.logger.Warn("db_close_failed", "error", err)
	}
}
