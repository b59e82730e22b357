package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/port"
	"github.com/dimmoon69/booktime/pkg/events"
	"github.com/dimmoon69/booktime/pkg/logging"
	"github.com/dimmoon69/booktime/pkg/metrics"
)

type OrderService struct {
	Repo      port.OrderRepository
	Publisher events.Publisher
}

func NewOrderService(repo port.OrderRepository, pub events.Publisher) *OrderService {
	return &OrderService{Repo: repo, Publisher: pub}
}

// expandLines turns each basket line into one order line per unit, keeping
// the basket's line order.
func expandLines(lines []models.BasketLine) []models.OrderLine {
	out := lo.FlatMap(lines, func(l models.BasketLine, _ int) []models.OrderLine {
		return lo.Times(l.Quantity, func(int) models.OrderLine {
			return models.OrderLine{ProductID: l.ProductID, Status: models.LineNew}
		})
	})
	for i := range out {
		out[i].Position = i
	}
	return out
}

// CreateOrder converts an open basket into an order. Every write happens in
// one transaction; on any error the basket stays open and no order exists.
func (s *OrderService) CreateOrder(ctx context.Context, basketID uuid.UUID, billing, shipping models.Address) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.create", "basket_id", basketID)

	var order *models.Order
	err := s.Repo.InTx(ctx, func(tx port.CheckoutTx) error {
		basket, err := tx.LockBasket(ctx, basketID)
		if err != nil {
			return notFound(err, "basket")
		}
		if basket.UserID == nil {
			return ErrAnonymousBasket
		}
		if !basket.IsOpen() {
			return ErrBasketSubmitted
		}

		lines, err := tx.BasketLines(ctx, basketID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyBasket
		}

		owner := *basket.UserID
		if billing.UserID != owner || shipping.UserID != owner {
			return fmt.Errorf("%w: address does not belong to basket owner", ErrValidation)
		}

		order = &models.Order{
			UserID:   owner,
			BasketID: basket.ID,
			Status:   models.OrderNew,
			Billing:  billing.Snapshot(),
			Shipping: shipping.Snapshot(),
			Lines:    expandLines(lines),
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return conflict(err, "basket already has an order")
		}

		if err := tx.SubmitBasket(ctx, basket.ID); err != nil {
			if errors.Is(err, port.ErrBasketNotOpen) {
				return ErrBasketSubmitted
			}
			return err
		}
		return nil
	})
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues(checkoutReason(err)).Inc()
		l.Warn("create_order_failed", "reason", checkoutReason(err), "error", err)
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	metrics.OrderLinesCreated.Add(float64(len(order.Lines)))
	l.Info("order_created", "order_id", order.ID, "lines", len(order.Lines))

	publish(ctx, s.Publisher, events.TopicOrders, order.ID.String(), map[string]any{
		"type":      "order_created",
		"order_id":  order.ID,
		"user_id":   order.UserID,
		"basket_id": order.BasketID,
		"lines":     len(order.Lines),
	})
	return order, nil
}

func checkoutReason(err error) string {
	switch {
	case errors.Is(err, ErrAnonymousBasket):
		return "anonymous"
	case errors.Is(err, ErrEmptyBasket):
		return "empty"
	case errors.Is(err, ErrBasketSubmitted), errors.Is(err, ErrConflict):
		return "submitted"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

func (s *OrderService) ListOrders(ctx context.Context, userID *uuid.UUID, status string, offset, limit int) (int64, []models.Order, error) {
	f := port.OrderFilter{UserID: userID, Offset: offset, Limit: limit}
	if status != "" {
		st, err := models.ToOrderStatus(status)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		f.Status = &st
	}
	return s.Repo.ListOrders(ctx, f)
}

// GetOrder returns the order; a non-nil userID restricts it to that owner.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, "order")
	}
	if userID != nil && order.UserID != *userID {
		return nil, fmt.Errorf("%w: order", ErrNotFound)
	}
	return order, nil
}

func (s *OrderService) SetOrderStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	st, err := models.ToOrderStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	order, err := s.Repo.UpdateOrderStatus(ctx, id, st)
	if err != nil {
		return nil, notFound(err, "order")
	}
	publish(ctx, s.Publisher, events.TopicOrders, order.ID.String(), map[string]any{
		"type":     "order_status_changed",
		"order_id": order.ID,
		"status":   order.Status,
	})
	return order, nil
}

func (s *OrderService) SetOrderLineStatus(ctx context.Context, orderID, lineID uuid.UUID, status string) (*models.OrderLine, error) {
	st, err := models.ToOrderLineStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	line, err := s.Repo.UpdateOrderLineStatus(ctx, orderID, lineID, st)
	if err != nil {
		return nil, notFound(err, "order line")
	}
	return line, nil
}
