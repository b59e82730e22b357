package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/port"
	"github.com/dimmoon69/booktime/internal/thumbnail"
	"github.com/dimmoon69/booktime/pkg/logging"
	"github.com/dimmoon69/booktime/pkg/metrics"
	"github.com/dimmoon69/booktime/pkg/storage"
)

const maxImageBytes = 10 << 20

type ImageService struct {
	Repo    port.CatalogRepository
	Disk    storage.Disk
	Catalog *CatalogService
}

func NewImageService(repo port.CatalogRepository, disk storage.Disk, catalog *CatalogService) *ImageService {
	return &ImageService{Repo: repo, Disk: disk, Catalog: catalog}
}

// freeName keeps the upload's base name unless an image with that name is
// already stored, in which case a short random suffix is added.
func (s *ImageService) freeName(ctx context.Context, filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("%w: file name required", ErrValidation)
	}

	imagePath, _ := thumbnail.Paths(name)
	exists, err := s.Disk.Exists(ctx, imagePath)
	if err != nil {
		return "", err
	}
	if !exists {
		return name, nil
	}
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + uuid.NewString()[:7] + ext, nil
}

// Upload stores an image and its thumbnail and records them on the product.
// An undecodable payload fails before anything is written.
func (s *ImageService) Upload(ctx context.Context, productID uuid.UUID, filename string, payload []byte) (*models.ProductImage, error) {
	l := logging.FromContext(ctx).With("svc", "image.upload", "product_id", productID)

	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrValidation)
	}
	if len(payload) > maxImageBytes {
		return nil, fmt.Errorf("%w: file too large", ErrValidation)
	}

	product, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, notFound(err, "product")
	}

	thumb, err := thumbnail.Generate(payload)
	if err != nil {
		metrics.ThumbnailsGenerated.WithLabelValues("error").Inc()
		l.Warn("thumbnail_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	metrics.ThumbnailsGenerated.WithLabelValues("ok").Inc()

	name, err := s.freeName(ctx, filename)
	if err != nil {
		return nil, err
	}
	imagePath, thumbPath := thumbnail.Paths(name)

	if err := s.Disk.Put(ctx, imagePath, payload); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	if err := s.Disk.Put(ctx, thumbPath, thumb); err != nil {
		_ = s.Disk.Delete(ctx, imagePath)
		return nil, fmt.Errorf("store thumbnail: %w", err)
	}

	img := &models.ProductImage{ProductID: productID, Image: imagePath, Thumbnail: thumbPath}
	if err := s.Repo.CreateImage(ctx, img); err != nil {
		_ = s.Disk.Delete(ctx, imagePath)
		_ = s.Disk.Delete(ctx, thumbPath)
		return nil, err
	}
	img.ImageURL = s.Disk.URL(imagePath)
	img.ThumbnailURL = s.Disk.URL(thumbPath)

	if s.Catalog != nil {
		if err := s.Catalog.cache().Delete(ctx, productCacheKey(product.Slug)); err != nil {
			l.Warn("cache_delete_failed", "error", err)
		}
	}
	l.Info("image_uploaded", "image", imagePath)
	return img, nil
}

type RegenerateResult struct {
	Done   int
	Failed int
}

// Regenerate builds the thumbnails missing from stored images, at most
// workers at a time. Images that fail are counted and skipped.
func (s *ImageService) Regenerate(ctx context.Context, workers int) (RegenerateResult, error) {
	l := logging.FromContext(ctx).With("svc", "image.regenerate")

	images, err := s.Repo.ImagesWithoutThumbnail(ctx)
	if err != nil {
		return RegenerateResult{}, err
	}
	if workers < 1 {
		workers = 1
	}

	var done, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, img := range images {
		g.Go(func() error {
			err := s.regenerateOne(gctx, img)
			switch {
			case err == nil:
				done.Add(1)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				failed.Add(1)
				l.Warn("thumbnail_failed", "image_id", img.ID, "image", img.Image, "error", err)
			}
			return nil
		})
	}
	err = g.Wait()

	res := RegenerateResult{Done: int(done.Load()), Failed: int(failed.Load())}
	l.Info("thumbnails_regenerated", "done", res.Done, "failed", res.Failed)
	return res, err
}

func (s *ImageService) regenerateOne(ctx context.Context, img models.ProductImage) error {
	src, err := s.Disk.Get(ctx, img.Image)
	if err != nil {
		return err
	}
	thumb, err := thumbnail.Generate(src)
	if err != nil {
		metrics.ThumbnailsGenerated.WithLabelValues("error").Inc()
		return err
	}
	metrics.ThumbnailsGenerated.WithLabelValues("ok").Inc()

	thumbPath := thumbnail.ThumbnailPath(img.Image)
	if err := s.Disk.Put(ctx, thumbPath, thumb); err != nil {
		return err
	}
	return s.Repo.SetThumbnail(ctx, img.ID, thumbPath)
}
