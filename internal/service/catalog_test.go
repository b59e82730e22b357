package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/repo"
	"github.com/dimmoon69/booktime/internal/testdb"
	"github.com/dimmoon69/booktime/pkg/cache"
	"github.com/dimmoon69/booktime/pkg/events"
)

type fakeIndex struct {
	indexed map[uuid.UUID]models.Product
	removed []uuid.UUID
	hits    []uuid.UUID
}

func (f *fakeIndex) Index(_ context.Context, p models.Product) error {
	if f.indexed == nil {
		f.indexed = map[uuid.UUID]models.Product{}
	}
	f.indexed[p.ID] = p
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, id uuid.UUID) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, _, _ int) (int64, []uuid.UUID, error) {
	return int64(len(f.hits)), f.hits, nil
}

func newCatalog(t *testing.T) (*CatalogService, *repo.GormRepo, *events.Recorder) {
	t.Helper()
	r := repo.New(testdb.Open(t))
	rec := &events.Recorder{}
	return &CatalogService{
		Repo:      r,
		Cache:     cache.NewMemory(),
		CacheTTL:  time.Minute,
		Publisher: rec,
	}, r, rec
}

func TestValidatePrice(t *testing.T) {
	tests := []struct {
		price string
		ok    bool
	}{
		{"0", true},
		{"12.50", true},
		{"9999.99", true},
		{"10000.00", false},
		{"-0.01", false},
		{"1.999", false},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			err := ValidatePrice(decimal.RequireFromString(tt.price))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestCatalog_ListProducts(t *testing.T) {
	svc, r, _ := newCatalog(t)
	ctx := context.Background()

	tag := testdb.Tag(t, r.DB, "Fiction")
	for range 5 {
		testdb.Product(t, r.DB, true, tag)
	}
	testdb.Product(t, r.DB, true)
	testdb.Product(t, r.DB, false, tag)

	page, items, err := svc.ListProducts(ctx, AllTags, 1, 0)
	require.NoError(t, err)
	assert.Len(t, items, 4)
	assert.EqualValues(t, 6, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNext)

	page, items, err = svc.ListProducts(ctx, "fiction", 2, 4)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.EqualValues(t, 5, page.Total)

	_, _, err = svc.ListProducts(ctx, "unknown", 1, 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_GetProductCachedUntilUpdate(t *testing.T) {
	svc, r, _ := newCatalog(t)
	ctx := context.Background()
	p := testdb.Product(t, r.DB, true)

	first, err := svc.GetProduct(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.Name, first.Name)

	// A write that bypasses the service is not seen while cached.
	require.NoError(t, r.DB.Model(&models.Product{}).Where("id = ?", p.ID).Update("name", "Changed").Error)
	cached, err := svc.GetProduct(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.Name, cached.Name)

	name := "Via Service"
	_, err = svc.UpdateProduct(ctx, p.ID, ProductPatch{Name: &name})
	require.NoError(t, err)
	fresh, err := svc.GetProduct(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Via Service", fresh.Name)
}

func TestCatalog_GetInactiveProduct(t *testing.T) {
	svc, r, _ := newCatalog(t)
	p := testdb.Product(t, r.DB, false)

	_, err := svc.GetProduct(context.Background(), p.Slug)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_CreateProduct(t *testing.T) {
	svc, r, rec := newCatalog(t)
	idx := &fakeIndex{}
	svc.Index = idx
	ctx := context.Background()
	testdb.Tag(t, r.DB, "Poetry")

	p, err := svc.CreateProduct(ctx, ProductInput{
		Name:   "Leaves of Grass",
		Price:  decimal.RequireFromString("9.99"),
		Active: true,
		Tags:   []string{"poetry"},
	})
	require.NoError(t, err)
	assert.Equal(t, "leaves-of-grass", p.Slug)
	require.Len(t, p.Tags, 1)
	assert.Contains(t, idx.indexed, p.ID)
	require.Len(t, rec.Events(events.TopicProducts), 1)
	assert.Equal(t, "9.99", rec.Events(events.TopicProducts)[0].Event["price"])

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Leaves of Grass", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Too Pricey", Price: decimal.NewFromInt(10000)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Tagged", Price: decimal.NewFromInt(1), Tags: []string{"nope"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCatalog_DeleteProduct(t *testing.T) {
	svc, r, _ := newCatalog(t)
	idx := &fakeIndex{}
	svc.Index = idx
	ctx := context.Background()

	free := testdb.Product(t, r.DB, true)
	require.NoError(t, svc.DeleteProduct(ctx, free.ID))
	assert.Equal(t, []uuid.UUID{free.ID}, idx.removed)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, free.ID), ErrNotFound)

	ordered := testdb.Product(t, r.DB, true)
	u := testdb.User(t, r.DB)
	b := testdb.Basket(t, r.DB, &u.ID, nil)
	require.NoError(t, r.DB.Create(&models.Order{
		UserID:   u.ID,
		BasketID: b.ID,
		Status:   models.OrderNew,
		Lines:    []models.OrderLine{{ProductID: ordered.ID, Status: models.LineNew}},
	}).Error)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, ordered.ID), ErrConflict)
}

func TestCatalog_SearchFallsBackToSQL(t *testing.T) {
	svc, r, _ := newCatalog(t)
	ctx := context.Background()
	p := testdb.Product(t, r.DB, true)

	_, _, err := svc.SearchProducts(ctx, "  ", 1, 4)
	assert.ErrorIs(t, err, ErrValidation)

	page, items, err := svc.SearchProducts(ctx, p.Name, 1, 4)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, page.Total, int64(1))
	assert.NotEmpty(t, items)
}

func TestCatalog_SearchUsesIndexAndDropsInactive(t *testing.T) {
	svc, r, _ := newCatalog(t)
	active := testdb.Product(t, r.DB, true)
	inactive := testdb.Product(t, r.DB, false)
	svc.Index = &fakeIndex{hits: []uuid.UUID{inactive.ID, active.ID}}

	_, items, err := svc.SearchProducts(context.Background(), "anything", 1, 4)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, active.ID, items[0].ID)
}

func TestCatalog_Tags(t *testing.T) {
	svc, r, _ := newCatalog(t)
	ctx := context.Background()

	tag, err := svc.CreateTag(ctx, TagInput{Name: "Science Fiction"})
	require.NoError(t, err)
	assert.Equal(t, "science-fiction", tag.Slug)
	assert.True(t, tag.Active)

	_, err = svc.CreateTag(ctx, TagInput{Name: "Science Fiction"})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := svc.GetTag(ctx, "science-fiction")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, got.ID)

	_, err = svc.DeactivateTag(ctx, "science-fiction")
	require.NoError(t, err)

	visible, err := svc.ListTags(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := svc.ListTags(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// a deactivated tag still lists its products
	p := testdb.Product(t, r.DB, true, *tag)
	page, items, err := svc.ListProducts(ctx, "science-fiction", 1, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, items, 1)
	assert.Equal(t, p.ID, items[0].ID)
}

func TestReindex(t *testing.T) {
	c, r, _ := newCatalog(t)

	_, err := c.Reindex(t.Context())
	require.Error(t, err)

	idx := &fakeIndex{}
	c.Index = idx
	for range 3 {
		testdb.Product(t, r.DB, true)
	}
	testdb.Product(t, r.DB, false)

	n, err := c.Reindex(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, idx.indexed, 3)
}
