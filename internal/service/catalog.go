package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/port"
	"github.com/dimmoon69/booktime/internal/util"
	"github.com/dimmoon69/booktime/pkg/cache"
	"github.com/dimmoon69/booktime/pkg/events"
	"github.com/dimmoon69/booktime/pkg/logging"
	"github.com/dimmoon69/booktime/pkg/metrics"
	"github.com/dimmoon69/booktime/pkg/slug"
	"github.com/dimmoon69/booktime/pkg/storage"
)

const (
	AllTags = "all"

	maxNameLen = 32
	maxSlugLen = 48
)

var maxPrice = decimal.RequireFromString("9999.99")

// ProductIndex is the full-text search backend.
type ProductIndex interface {
	Index(ctx context.Context, p models.Product) error
	Remove(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error)
}

type CatalogService struct {
	Repo      port.CatalogRepository
	Cache     cache.Cache
	CacheTTL  time.Duration
	Index     ProductIndex
	Publisher events.Publisher
	Disk      storage.Disk
	PageSize  int
}

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Slug        string
	Active      bool
	InStock     bool
	Tags        []string
}

// ProductPatch leaves nil fields untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Slug        *string
	Active      *bool
	InStock     *bool
	Tags        *[]string
}

type TagInput struct {
	Name        string
	Slug        string
	Description string
	Active      *bool
}

func productCacheKey(slug string) string { return "product:" + slug }

func ValidatePrice(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(maxPrice) {
		return fmt.Errorf("%w: price must be between 0 and %s", ErrValidation, maxPrice.StringFixed(2))
	}
	if !p.Equal(p.Round(2)) {
		return fmt.Errorf("%w: price has more than 2 decimal places", ErrValidation)
	}
	return nil
}

func validateProduct(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" || len(p.Name) > maxNameLen {
		return fmt.Errorf("%w: name must be 1..%d characters", ErrValidation, maxNameLen)
	}
	if p.Slug == "" {
		p.Slug = slug.Make(p.Name)
	}
	if p.Slug == "" || len(p.Slug) > maxSlugLen || slug.Make(p.Slug) != p.Slug {
		return fmt.Errorf("%w: invalid slug %q", ErrValidation, p.Slug)
	}
	return ValidatePrice(p.Price)
}

func (s *CatalogService) cache() cache.Cache {
	if s.Cache == nil {
		return cache.Nop{}
	}
	return s.Cache
}

func (s *CatalogService) pageSize() int {
	if s.PageSize > 0 {
		return s.PageSize
	}
	return 4
}

func (s *CatalogService) withURLs(p *models.Product) {
	if s.Disk == nil {
		return
	}
	for i := range p.Images {
		p.Images[i].ImageURL = s.Disk.URL(p.Images[i].Image)
		if p.Images[i].Thumbnail != "" {
			p.Images[i].ThumbnailURL = s.Disk.URL(p.Images[i].Thumbnail)
		}
	}
}

// ListProducts lists active products, optionally restricted to the tag with
// the given slug ("all" or empty for every tag). The tag itself may be
// inactive.
func (s *CatalogService) ListProducts(ctx context.Context, tag string, page, size int) (util.Page, []models.Product, error) {
	page, size = util.Normalize(page, size, s.pageSize())

	f := port.ProductFilter{Offset: (page - 1) * size, Limit: size}
	if tag != "" && tag != AllTags {
		t, err := s.Repo.GetTagBySlug(ctx, tag)
		if err != nil {
			return util.Page{}, nil, notFound(err, "tag")
		}
		f.TagSlug = t.Slug
	}

	total, items, err := s.Repo.ListActiveProducts(ctx, f)
	if err != nil {
		return util.Page{}, nil, err
	}
	return util.NewPage(page, size, total), items, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, slug string) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.get", "slug", slug)
	key := productCacheKey(slug)

	var cached models.Product
	hit, err := s.cache().Get(ctx, key, &cached)
	if err != nil {
		l.Warn("cache_get_failed", "error", err)
	}
	if hit {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return &cached, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	p, err := s.Repo.GetActiveProductBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "product")
	}
	s.withURLs(p)

	if err := s.cache().Set(ctx, key, p, s.CacheTTL); err != nil {
		l.Warn("cache_set_failed", "error", err)
	}
	return p, nil
}

// SearchProducts uses the search index when there is one and falls back to
// a LIKE query otherwise.
func (s *CatalogService) SearchProducts(ctx context.Context, q string, page, size int) (util.Page, []models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return util.Page{}, nil, fmt.Errorf("%w: query required", ErrValidation)
	}
	page, size = util.Normalize(page, size, s.pageSize())
	offset := (page - 1) * size

	if s.Index == nil {
		total, items, err := s.Repo.SearchActiveProducts(ctx, q, offset, size)
		if err != nil {
			return util.Page{}, nil, err
		}
		return util.NewPage(page, size, total), items, nil
	}

	total, ids, err := s.Index.Search(ctx, q, offset, size)
	if err != nil {
		return util.Page{}, nil, err
	}
	items, err := s.Repo.ActiveProductsByIDs(ctx, ids)
	if err != nil {
		return util.Page{}, nil, err
	}
	return util.NewPage(page, size, total), items, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Slug:        in.Slug,
		Active:      in.Active,
		InStock:     in.InStock,
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.Repo.CreateProduct(ctx, p, in.Tags); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, conflict(err, "slug already used")
	}

	s.productChanged(ctx, "product_created", p, "")
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	oldSlug := p.Slug

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
	if patch.InStock != nil {
		p.InStock = *patch.InStock
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	var tags []string
	if patch.Tags != nil {
		tags = *patch.Tags
	}
	if err := s.Repo.UpdateProduct(ctx, p, tags, patch.Tags != nil); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, conflict(err, "slug already used")
	}

	s.productChanged(ctx, "product_updated", p, oldSlug)
	return p, nil
}

// DeleteProduct refuses products that already appear on an order.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return notFound(err, "product")
	}
	ordered, err := s.Repo.ProductHasOrderLines(ctx, id)
	if err != nil {
		return err
	}
	if ordered {
		return fmt.Errorf("%w: product is referenced by orders", ErrConflict)
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("%w: product is referenced by orders", ErrConflict)
		}
		return notFound(err, "product")
	}

	l := logging.FromContext(ctx).With("svc", "catalog.delete", "product_id", id)
	if err := s.cache().Delete(ctx, productCacheKey(p.Slug)); err != nil {
		l.Warn("cache_delete_failed", "error", err)
	}
	if s.Index != nil {
		if err := s.Index.Remove(ctx, id); err != nil {
			l.Warn("search_remove_failed", "error", err)
		}
	}
	publish(ctx, s.Publisher, events.TopicProducts, id.String(), map[string]any{
		"type":       "product_deleted",
		"product_id": id,
	})
	return nil
}

// productChanged drops stale cache entries, re-indexes and publishes.
func (s *CatalogService) productChanged(ctx context.Context, kind string, p *models.Product, oldSlug string) {
	l := logging.FromContext(ctx).With("svc", "catalog", "product_id", p.ID)

	keys := []string{productCacheKey(p.Slug)}
	if oldSlug != "" && oldSlug != p.Slug {
		keys = append(keys, productCacheKey(oldSlug))
	}
	if err := s.cache().Delete(ctx, keys...); err != nil {
		l.Warn("cache_delete_failed", "error", err)
	}
	if s.Index != nil {
		if err := s.Index.Index(ctx, *p); err != nil {
			l.Warn("search_index_failed", "error", err)
		}
	}
	publish(ctx, s.Publisher, events.TopicProducts, p.ID.String(), map[string]any{
		"type":       kind,
		"product_id": p.ID,
		"slug":       p.Slug,
		"price":      p.Price.StringFixed(2),
		"active":     p.Active,
	})
}

// Reindex pushes every active product to the search index.
func (s *CatalogService) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, errors.New("search index not configured")
	}
	const batch = 100
	n := 0
	for offset := 0; ; offset += batch {
		_, items, err := s.Repo.ListActiveProducts(ctx, port.ProductFilter{Offset: offset, Limit: batch})
		if err != nil {
			return n, err
		}
		for _, p := range items {
			if err := s.Index.Index(ctx, p); err != nil {
				return n, err
			}
			n++
		}
		if len(items) < batch {
			return n, nil
		}
	}
}

func (s *CatalogService) ListTags(ctx context.Context, includeInactive bool) ([]models.ProductTag, error) {
	return s.Repo.ListTags(ctx, includeInactive)
}

// GetTag looks a tag up by its natural key.
func (s *CatalogService) GetTag(ctx context.Context, slug string) (*models.ProductTag, error) {
	t, err := s.Repo.GetTagBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "tag")
	}
	return t, nil
}

func validateTag(t *models.ProductTag) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" || len(t.Name) > maxNameLen {
		return fmt.Errorf("%w: name must be 1..%d characters", ErrValidation, maxNameLen)
	}
	if t.Slug == "" {
		t.Slug = slug.Make(t.Name)
	}
	if t.Slug == "" || len(t.Slug) > maxSlugLen || slug.Make(t.Slug) != t.Slug {
		return fmt.Errorf("%w: invalid slug %q", ErrValidation, t.Slug)
	}
	return nil
}

func (s *CatalogService) CreateTag(ctx context.Context, in TagInput) (*models.ProductTag, error) {
	t := &models.ProductTag{
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		Active:      in.Active == nil || *in.Active,
	}
	if err := validateTag(t); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateTag(ctx, t); err != nil {
		return nil, conflict(err, "slug already used")
	}
	return t, nil
}

// UpdateTag rewrites the tag found by slug. Empty name and description are
// kept as they were.
func (s *CatalogService) UpdateTag(ctx context.Context, slug string, in TagInput) (*models.ProductTag, error) {
	t, err := s.GetTag(ctx, slug)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		t.Name = in.Name
	}
	if in.Description != "" {
		t.Description = in.Description
	}
	if in.Slug != "" {
		t.Slug = in.Slug
	}
	if in.Active != nil {
		t.Active = *in.Active
	}
	if err := validateTag(t); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateTag(ctx, t); err != nil {
		return nil, conflict(err, "slug already used")
	}
	return t, nil
}

// DeactivateTag hides a tag; tags are never hard-deleted.
func (s *CatalogService) DeactivateTag(ctx context.Context, slug string) (*models.ProductTag, error) {
	inactive := false
	return s.UpdateTag(ctx, slug, TagInput{Active: &inactive})
}
