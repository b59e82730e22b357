package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/dimmoon69/booktime/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(models.All()...)
}

// Active narrows a product query to products that may be shown to customers.
func Active(db *gorm.DB) *gorm.DB {
	return db.Where("products.active = ?", true)
}
