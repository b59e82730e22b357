package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/port"
)

// gormCheckoutTx runs checkout steps against a single open transaction.
type gormCheckoutTx struct {
	tx *gorm.DB
}

func (r *GormRepo) InTx(ctx context.Context, fn func(tx port.CheckoutTx) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormCheckoutTx{tx: tx})
	})
}

func (c *gormCheckoutTx) LockBasket(ctx context.Context, id uuid.UUID) (*models.Basket, error) {
	var basket models.Basket
	if err := c.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&basket).Error; err != nil {
		return nil, err
	}
	return &basket, nil
}

func (c *gormCheckoutTx) BasketLines(ctx context.Context, basketID uuid.UUID) ([]models.BasketLine, error) {
	var lines []models.BasketLine
	if err := c.tx.WithContext(ctx).
		Where("basket_id = ?", basketID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *gormCheckoutTx) CreateOrder(ctx context.Context, o *models.Order) error {
	return c.tx.WithContext(ctx).Create(o).Error
}

func (c *gormCheckoutTx) SubmitBasket(ctx context.Context, id uuid.UUID) error {
	res := c.tx.WithContext(ctx).
		Model(&models.Basket{}).
		Where("id = ? AND status = ?", id, models.BasketOpen).
		Update("status", models.BasketSubmitted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return port.ErrBasketNotOpen
	}
	return nil
}

func preloadOrderLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Preload("Lines.Product")
}

func (r *GormRepo) ListOrders(ctx context.Context, f port.OrderFilter) (int64, []models.Order, error) {
	base := func() *gorm.DB {
		q := r.DB.WithContext(ctx).Model(&models.Order{})
		if f.UserID != nil {
			q = q.Where("user_id = ?", *f.UserID)
		}
		if f.Status != nil {
			q = q.Where("status = ?", *f.Status)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return 0, nil, err
	}

	orders := make([]models.Order, 0, f.Limit)
	if err := preloadOrderLines(base()).
		Order("created_at DESC").
		Order("id ASC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := preloadOrderLines(r.DB.WithContext(ctx)).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetOrder(ctx, id)
}

func (r *GormRepo) UpdateOrderLineStatus(ctx context.Context, orderID, lineID uuid.UUID, status models.OrderLineStatus) (*models.OrderLine, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("id = ? AND order_id = ?", lineID, orderID).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var line models.OrderLine
	if err := r.DB.WithContext(ctx).Preload("Product").Where("id = ?", lineID).First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}
