package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/port"
	"github.com/dimmoon69/booktime/pkg/events"
	"github.com/dimmoon69/booktime/pkg/logging"
	"github.com/dimmoon69/booktime/pkg/metrics"
)

type BasketService struct {
	Repo      port.BasketRepository
	Catalog   port.CatalogRepository
	Publisher events.Publisher
}

func NewBasketService(repo port.BasketRepository, catalog port.CatalogRepository, pub events.Publisher) *BasketService {
	return &BasketService{Repo: repo, Catalog: catalog, Publisher: pub}
}

// Current resolves the caller's basket: the cookie basket when it is still
// open and reachable by the caller, else the user's latest open basket. It
// returns nil, nil when there is none.
func (s *BasketService) Current(ctx context.Context, cookieID, userID *uuid.UUID) (*models.Basket, error) {
	if cookieID != nil {
		b, err := s.Repo.GetBasket(ctx, *cookieID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return nil, err
		case b.IsOpen() && reachable(b, userID):
			return b, nil
		}
	}
	if userID == nil {
		return nil, nil
	}
	b, err := s.Repo.LatestOpenBasket(ctx, *userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return b, err
}

// reachable: anonymous baskets are usable by anyone holding the cookie,
// owned ones only by their owner.
func reachable(b *models.Basket, userID *uuid.UUID) bool {
	if b.UserID == nil {
		return true
	}
	return userID != nil && *b.UserID == *userID
}

// Add puts one unit of productID into the caller's basket, creating the
// basket on demand. The returned basket is the one the line landed in.
func (s *BasketService) Add(ctx context.Context, cookieID, userID *uuid.UUID, productID uuid.UUID) (*models.Basket, *models.BasketLine, error) {
	l := logging.FromContext(ctx).With("svc", "basket.add", "product_id", productID)

	products, err := s.Catalog.ActiveProductsByIDs(ctx, []uuid.UUID{productID})
	if err != nil {
		return nil, nil, err
	}
	if len(products) == 0 {
		return nil, nil, fmt.Errorf("%w: product", ErrNotFound)
	}

	basket, err := s.Current(ctx, cookieID, userID)
	if err != nil {
		return nil, nil, err
	}
	if basket == nil {
		basket = &models.Basket{UserID: userID, Status: models.BasketOpen}
		if err := s.Repo.CreateBasket(ctx, basket); err != nil {
			return nil, nil, err
		}
		l.Info("basket_created", "basket_id", basket.ID)
	}

	line, err := s.Repo.AddLine(ctx, basket.ID, productID, 1)
	if err != nil {
		if errors.Is(err, port.ErrBasketNotOpen) {
			return nil, nil, ErrBasketSubmitted
		}
		return nil, nil, err
	}
	metrics.BasketLinesAdded.Inc()

	publish(ctx, s.Publisher, events.TopicBaskets, basket.ID.String(), map[string]any{
		"type":       "basket_line_added",
		"basket_id":  basket.ID,
		"product_id": productID,
		"quantity":   line.Quantity,
	})
	return basket, line, nil
}

func (s *BasketService) UpdateLines(ctx context.Context, basketID uuid.UUID, updates []port.LineUpdate) (*models.Basket, error) {
	for _, u := range updates {
		if u.LineID == uuid.Nil {
			return nil, fmt.Errorf("%w: line id required", ErrValidation)
		}
		if u.Quantity < 0 {
			return nil, fmt.Errorf("%w: quantity must be >= 0", ErrValidation)
		}
	}

	if err := s.Repo.UpdateLines(ctx, basketID, updates); err != nil {
		if errors.Is(err, port.ErrBasketNotOpen) {
			return nil, ErrBasketSubmitted
		}
		return nil, notFound(err, "basket line")
	}

	publish(ctx, s.Publisher, events.TopicBaskets, basketID.String(), map[string]any{
		"type":      "basket_lines_updated",
		"basket_id": basketID,
		"changes":   len(updates),
	})

	b, err := s.Repo.GetBasket(ctx, basketID)
	if err != nil {
		return nil, notFound(err, "basket")
	}
	return b, nil
}

// Attach hands an anonymous basket to a user who just logged in.
func (s *BasketService) Attach(ctx context.Context, basketID, userID uuid.UUID) (*models.Basket, error) {
	b, err := s.Repo.MergeInto(ctx, basketID, userID)
	if err != nil {
		if errors.Is(err, port.ErrBasketNotOpen) {
			return nil, ErrBasketSubmitted
		}
		return nil, notFound(err, "basket")
	}
	return b, nil
}
