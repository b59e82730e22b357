package fixtures_test

import (
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimmoon69/booktime/internal/fixtures"
	"github.com/dimmoon69/booktime/internal/repo"
	"github.com/dimmoon69/booktime/internal/service"
	"github.com/dimmoon69/booktime/internal/testdb"
	"github.com/dimmoon69/booktime/pkg/cache"
)

func newCatalog(t *testing.T) *service.CatalogService {
	t.Helper()
	return &service.CatalogService{Repo: repo.New(testdb.Open(t)), Cache: cache.NewMemory()}
}

func loadFile(t *testing.T, catalog *service.CatalogService) fixtures.Result {
	t.Helper()
	f, err := os.Open("testdata/catalog.yaml")
	require.NoError(t, err)
	defer f.Close()

	res, err := fixtures.Load(t.Context(), f, catalog)
	require.NoError(t, err)
	return res
}

func TestLoad(t *testing.T) {
	catalog := newCatalog(t)

	res := loadFile(t, catalog)
	assert.Equal(t, fixtures.Result{TagsCreated: 3, ProductsCreated: 3}, res)

	p, err := catalog.GetProduct(t.Context(), "leaves-of-grass")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("9.99")))
	assert.False(t, p.InStock)
	// inactive tags stay attached but are not shown
	require.Len(t, p.Tags, 1)
	assert.Equal(t, "poetry", p.Tags[0].Slug)

	_, err = catalog.GetProduct(t.Context(), "the-cathedral-and-the-bazaar")
	require.NoError(t, err)

	all, err := catalog.ListTags(t.Context(), true)
	require.NoError(t, err)
	active, err := catalog.ListTags(t.Context(), false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Len(t, active, 2)
}

func TestLoad_Twice(t *testing.T) {
	catalog := newCatalog(t)

	loadFile(t, catalog)
	res := loadFile(t, catalog)
	assert.Equal(t, fixtures.Result{TagsSkipped: 3, ProductsSkipped: 3}, res)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown field", "products:\n  - name: X\n    cost: 1\n", "decode"},
		{"bad price", "products:\n  - name: X\n    price: abc\n", "price"},
		{"price out of range", "products:\n  - name: X\n    price: \"10000\"\n", "validation"},
		{"unknown tag", "products:\n  - name: X\n    price: \"1\"\n    tags: [nope]\n", "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixtures.Load(t.Context(), strings.NewReader(tt.doc), newCatalog(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	f, err := fixtures.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Tags)
	assert.Empty(t, f.Products)
}
