package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/repo"
	"github.com/dimmoon69/booktime/internal/testdb"
	"github.com/dimmoon69/booktime/pkg/cache"
	"github.com/dimmoon69/booktime/pkg/storage"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newImageService(t *testing.T) (*ImageService, *repo.GormRepo, *storage.Local) {
	t.Helper()
	r := repo.New(testdb.Open(t))
	disk, err := storage.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)
	catalog := &CatalogService{Repo: r, Cache: cache.NewMemory(), Disk: disk}
	return NewImageService(r, disk, catalog), r, disk
}

func TestImage_Upload(t *testing.T) {
	svc, r, disk := newImageService(t)
	ctx := context.Background()
	p := testdb.Product(t, r.DB, true)

	img, err := svc.Upload(ctx, p.ID, "cover.png", pngBytes(t, 300, 200))
	require.NoError(t, err)
	assert.Equal(t, "product-images/cover.png", img.Image)
	assert.Equal(t, "product-thumbnails/cover.png", img.Thumbnail)
	assert.Equal(t, "/media/product-thumbnails/cover.png", img.ThumbnailURL)

	thumb, err := disk.Get(ctx, img.Thumbnail)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 150, cfg.Width)
	assert.Equal(t, 100, cfg.Height)

	again, err := svc.Upload(ctx, p.ID, "cover.png", pngBytes(t, 10, 10))
	require.NoError(t, err)
	assert.NotEqual(t, img.Image, again.Image)
	assert.Regexp(t, `^product-images/cover_[0-9a-f]{7}\.png$`, again.Image)
}

func TestImage_UploadUndecodableStoresNothing(t *testing.T) {
	svc, r, disk := newImageService(t)
	ctx := context.Background()
	p := testdb.Product(t, r.DB, true)

	_, err := svc.Upload(ctx, p.ID, "notes.png", []byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrValidation)

	exists, err := disk.Exists(ctx, "product-images/notes.png")
	require.NoError(t, err)
	assert.False(t, exists)

	var n int64
	require.NoError(t, r.DB.Model(&models.ProductImage{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestImage_UploadUnknownProduct(t *testing.T) {
	svc, r, _ := newImageService(t)
	p := testdb.Product(t, r.DB, true)
	require.NoError(t, r.DB.Delete(&models.Product{}, "id = ?", p.ID).Error)

	_, err := svc.Upload(context.Background(), p.ID, "a.png", pngBytes(t, 4, 4))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImage_Regenerate(t *testing.T) {
	svc, r, disk := newImageService(t)
	ctx := context.Background()
	p := testdb.Product(t, r.DB, true)

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		path := "product-images/" + name
		require.NoError(t, disk.Put(ctx, path, pngBytes(t, 400, 400)))
		require.NoError(t, r.DB.Create(&models.ProductImage{ProductID: p.ID, Image: path}).Error)
	}
	require.NoError(t, disk.Put(ctx, "product-images/broken.png", []byte("nope")))
	require.NoError(t, r.DB.Create(&models.ProductImage{ProductID: p.ID, Image: "product-images/broken.png"}).Error)

	res, err := svc.Regenerate(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, RegenerateResult{Done: 3, Failed: 1}, res)

	exists, err := disk.Exists(ctx, "product-thumbnails/b.png")
	require.NoError(t, err)
	assert.True(t, exists)

	res, err = svc.Regenerate(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, RegenerateResult{Done: 0, Failed: 1}, res)
}
