package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/port"
)

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("id ASC")
	}).Preload("Lines.Product")
}

func (r *GormRepo) GetBasket(ctx context.Context, id uuid.UUID) (*models.Basket, error) {
	var basket models.Basket
	if err := preloadLines(r.DB.WithContext(ctx)).Where("id = ?", id).First(&basket).Error; err != nil {
		return nil, err
	}
	return &basket, nil
}

func (r *GormRepo) LatestOpenBasket(ctx context.Context, userID uuid.UUID) (*models.Basket, error) {
	var basket models.Basket
	if err := preloadLines(r.DB.WithContext(ctx)).
		Where("user_id = ? AND status = ?", userID, models.BasketOpen).
		Order("created_at DESC").
		First(&basket).Error; err != nil {
		return nil, err
	}
	return &basket, nil
}

func (r *GormRepo) CreateBasket(ctx context.Context, b *models.Basket) error {
	if b.Status == 0 {
		b.Status = models.BasketOpen
	}
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(b).Error
}

func lockOpenBasket(tx *gorm.DB, id uuid.UUID) (*models.Basket, error) {
	var basket models.Basket
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&basket).Error; err != nil {
		return nil, err
	}
	if !basket.IsOpen() {
		return nil, port.ErrBasketNotOpen
	}
	return &basket, nil
}

func upsertLine(tx *gorm.DB, basketID, productID uuid.UUID, quantity int) error {
	line := models.BasketLine{BasketID: basketID, ProductID: productID, Quantity: quantity}
	return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "basket_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity": gorm.Expr("basket_lines.quantity + ?", quantity),
		}),
	}).Create(&line).Error
}

func (r *GormRepo) AddLine(ctx context.Context, basketID, productID uuid.UUID, quantity int) (*models.BasketLine, error) {
	var line models.BasketLine
	if err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockOpenBasket(tx, basketID); err != nil {
			return err
		}
		if err := upsertLine(tx, basketID, productID, quantity); err != nil {
			return err
		}
		if err := tx.Model(&models.Basket{}).Where("id = ?", basketID).Update("updated_at", tx.NowFunc()).Error; err != nil {
			return err
		}
		return tx.Preload("Product").
			Where("basket_id = ? AND product_id = ?", basketID, productID).
			First(&line).Error
	}); err != nil {
		return nil, err
	}
	return &line, nil
}

// UpdateLines applies a formset of edits; a line whose quantity drops to
// zero or below is removed.
func (r *GormRepo) UpdateLines(ctx context.Context, basketID uuid.UUID, updates []port.LineUpdate) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockOpenBasket(tx, basketID); err != nil {
			return err
		}
		for _, u := range updates {
			q := tx.Where("id = ? AND basket_id = ?", u.LineID, basketID)
			var res *gorm.DB
			if u.Delete || u.Quantity <= 0 {
				res = q.Delete(&models.BasketLine{})
			} else {
				res = q.Model(&models.BasketLine{}).Update("quantity", u.Quantity)
			}
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}

func (r *GormRepo) MergeInto(ctx context.Context, anonID, userID uuid.UUID) (*models.Basket, error) {
	var targetID uuid.UUID
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		anon, err := lockOpenBasket(tx, anonID)
		if err != nil {
			return err
		}
		if anon.UserID != nil && *anon.UserID != userID {
			return port.ErrBasketNotOpen
		}

		var current models.Basket
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND status = ? AND id <> ?", userID, models.BasketOpen, anonID).
			Order("created_at DESC").
			First(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			targetID = anonID
			return tx.Model(&models.Basket{}).Where("id = ?", anonID).Update("user_id", userID).Error
		case err != nil:
			return err
		}

		targetID = current.ID
		var lines []models.BasketLine
		if err := tx.Where("basket_id = ?", anonID).Find(&lines).Error; err != nil {
			return err
		}
		for _, l := range lines {
			if err := upsertLine(tx, current.ID, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		if err := tx.Where("basket_id = ?", anonID).Delete(&models.BasketLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Basket{}, "id = ?", anonID).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetBasket(ctx, targetID)
}
