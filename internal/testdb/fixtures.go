package testdb

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/pkg/slug"
)

func Product(tb testing.TB, gdb *gorm.DB, active bool, tags ...models.ProductTag) models.Product {
	tb.Helper()

	name := gofakeit.BeerName()
	if len(name) > 24 {
		name = name[:24]
	}
	p := models.Product{
		Name:        name,
		Description: "All about " + name,
		Price:       decimal.NewFromFloat(gofakeit.Price(1, 99)).Round(2),
		Slug:        slug.Make(name) + "-" + uuid.NewString()[:8],
		Active:      active,
		InStock:     true,
		Tags:        tags,
	}
	require.NoError(tb, gdb.Create(&p).Error)
	return p
}

func Tag(tb testing.TB, gdb *gorm.DB, name string) models.ProductTag {
	tb.Helper()

	t := models.ProductTag{Name: name, Slug: slug.Make(name), Active: true}
	require.NoError(tb, gdb.Create(&t).Error)
	return t
}

func User(tb testing.TB, gdb *gorm.DB) models.User {
	tb.Helper()

	u := models.User{
		Email:        gofakeit.Email(),
		PasswordHash: "!",
		IsActive:     true,
	}
	require.NoError(tb, gdb.Create(&u).Error)
	return u
}

func Address(tb testing.TB, gdb *gorm.DB, userID uuid.UUID) models.Address {
	tb.Helper()

	a := models.Address{
		UserID:   userID,
		Name:     gofakeit.Name(),
		Address1: gofakeit.Street(),
		ZipCode:  gofakeit.Zip(),
		City:     gofakeit.City(),
		Country:  models.CountryUK,
	}
	require.NoError(tb, gdb.Create(&a).Error)
	return a
}

// Basket creates an open basket owned by userID (nil for anonymous) holding
// the given product quantities.
func Basket(tb testing.TB, gdb *gorm.DB, userID *uuid.UUID, lines map[uuid.UUID]int) models.Basket {
	tb.Helper()

	b := models.Basket{UserID: userID, Status: models.BasketOpen}
	require.NoError(tb, gdb.Create(&b).Error)
	for productID, q := range lines {
		l := models.BasketLine{BasketID: b.ID, ProductID: productID, Quantity: q}
		require.NoError(tb, gdb.Create(&l).Error)
		b.Lines = append(b.Lines, l)
	}
	return b
}
