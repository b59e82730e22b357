package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/port"
)

func (r *GormRepo) activeProducts(ctx context.Context, tagSlug string) *gorm.DB {
	q := r.DB.WithContext(ctx).Model(&models.Product{}).Scopes(Active)
	if tagSlug != "" {
		q = q.Joins("JOIN product_tag_links ptl ON ptl.product_id = products.id").
			Joins("JOIN product_tags pt ON pt.id = ptl.product_tag_id").
			Where("pt.slug = ?", tagSlug)
	}
	return q
}

func (r *GormRepo) ListActiveProducts(ctx context.Context, f port.ProductFilter) (int64, []models.Product, error) {
	var total int64
	if err := r.activeProducts(ctx, f.TagSlug).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, f.Limit)
	if err := r.activeProducts(ctx, f.TagSlug).
		Preload("Tags", "active = ?", true).
		Order("products.name ASC").
		Order("products.id ASC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return total, items, nil
}

func (r *GormRepo) GetActiveProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).
		Scopes(Active).
		Preload("Tags", "active = ?", true).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("slug = ?", slug).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Preload("Tags").Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ActiveProductsByIDs keeps the order of ids and silently drops inactive
// or unknown products.
func (r *GormRepo) ActiveProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	var found []models.Product
	if err := r.DB.WithContext(ctx).
		Scopes(Active).
		Preload("Tags", "active = ?", true).
		Where("id IN ?", ids).
		Find(&found).Error; err != nil {
		return nil, err
	}

	byID := lo.KeyBy(found, func(p models.Product) uuid.UUID { return p.ID })
	return lo.FilterMap(ids, func(id uuid.UUID, _ int) (models.Product, bool) {
		p, ok := byID[id]
		return p, ok
	}), nil
}

func (r *GormRepo) SearchActiveProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	where := "(LOWER(products.name) LIKE ? ESCAPE '\\' OR LOWER(products.description) LIKE ? ESCAPE '\\')"

	var total int64
	if err := r.activeProducts(ctx, "").Where(where, pattern, pattern).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := r.activeProducts(ctx, "").
		Where(where, pattern, pattern).
		Preload("Tags", "active = ?", true).
		Order("products.name ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *GormRepo) tagsBySlug(tx *gorm.DB, slugs []string) ([]models.ProductTag, error) {
	slugs = lo.Uniq(slugs)
	if len(slugs) == 0 {
		return []models.ProductTag{}, nil
	}
	var tags []models.ProductTag
	if err := tx.Where("slug IN ?", slugs).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(slugs) {
		known := lo.Map(tags, func(t models.ProductTag, _ int) string { return t.Slug })
		missing, _ := lo.Difference(slugs, known)
		return nil, fmt.Errorf("unknown tags %v: %w", missing, gorm.ErrRecordNotFound)
	}
	return tags, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product, tagSlugs []string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := r.tagsBySlug(tx, tagSlugs)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		if len(tags) > 0 {
			if err := tx.Model(p).Association("Tags").Append(&tags); err != nil {
				return err
			}
		}
		p.Tags = tags
		return nil
	})
}

func (r *GormRepo) UpdateProduct(ctx context.Context, p *models.Product, tagSlugs []string, replaceTags bool) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return err
		}
		if !replaceTags {
			return nil
		}
		tags, err := r.tagsBySlug(tx, tagSlugs)
		if err != nil {
			return err
		}
		if err := tx.Model(p).Association("Tags").Replace(&tags); err != nil {
			return err
		}
		p.Tags = tags
		return nil
	})
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product := models.Product{ID: id}
		if err := tx.Model(&product).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.BasketLine{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormRepo) ProductHasOrderLines(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.OrderLine{}).Where("product_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) ListTags(ctx context.Context, includeInactive bool) ([]models.ProductTag, error) {
	q := r.DB.WithContext(ctx).Model(&models.ProductTag{})
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	var tags []models.ProductTag
	if err := q.Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *GormRepo) GetTagBySlug(ctx context.Context, slug string) (*models.ProductTag, error) {
	var tag models.ProductTag
	if err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *GormRepo) CreateTag(ctx context.Context, t *models.ProductTag) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *GormRepo) UpdateTag(ctx context.Context, t *models.ProductTag) error {
	return r.DB.WithContext(ctx).Save(t).Error
}

func (r *GormRepo) CreateImage(ctx context.Context, img *models.ProductImage) error {
	return r.DB.WithContext(ctx).Create(img).Error
}

func (r *GormRepo) ImagesWithoutThumbnail(ctx context.Context) ([]models.ProductImage, error) {
	var images []models.ProductImage
	if err := r.DB.WithContext(ctx).Where("thumbnail = ?", "").Order("created_at ASC").Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

func (r *GormRepo) SetThumbnail(ctx context.Context, imageID uuid.UUID, path string) error {
	res := r.DB.WithContext(ctx).Model(&models.ProductImage{}).Where("id = ?", imageID).Update("thumbnail", path)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
