// Package port holds the persistence contracts the services depend on.
package port

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dimmoon69/booktime/internal/models"
)

var (
	ErrBasketNotOpen = errors.New("basket is not open")
	ErrUserExists    = errors.New("user already exists")
	ErrTokenRevoked  = errors.New("token expired or revoked")
)

type ProductFilter struct {
	// TagSlug restricts the listing to one tag; empty means every tag.
	TagSlug string
	Offset  int
	Limit   int
}

type CatalogRepository interface {
	ListActiveProducts(ctx context.Context, f ProductFilter) (int64, []models.Product, error)
	GetActiveProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ActiveProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	SearchActiveProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product, tagSlugs []string) error
	UpdateProduct(ctx context.Context, p *models.Product, tagSlugs []string, replaceTags bool) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ProductHasOrderLines(ctx context.Context, id uuid.UUID) (bool, error)

	ListTags(ctx context.Context, includeInactive bool) ([]models.ProductTag, error)
	GetTagBySlug(ctx context.Context, slug string) (*models.ProductTag, error)
	CreateTag(ctx context.Context, t *models.ProductTag) error
	UpdateTag(ctx context.Context, t *models.ProductTag) error

	CreateImage(ctx context.Context, img *models.ProductImage) error
	ImagesWithoutThumbnail(ctx context.Context) ([]models.ProductImage, error)
	SetThumbnail(ctx context.Context, imageID uuid.UUID, path string) error
}

type LineUpdate struct {
	LineID   uuid.UUID
	Quantity int
	Delete   bool
}

type BasketRepository interface {
	GetBasket(ctx context.Context, id uuid.UUID) (*models.Basket, error)
	LatestOpenBasket(ctx context.Context, userID uuid.UUID) (*models.Basket, error)
	CreateBasket(ctx context.Context, b *models.Basket) error
	// AddLine inserts the line or increments its quantity in one statement.
	AddLine(ctx context.Context, basketID, productID uuid.UUID, quantity int) (*models.BasketLine, error)
	UpdateLines(ctx context.Context, basketID uuid.UUID, updates []LineUpdate) error
	// MergeInto moves an anonymous basket to userID, folding its lines into
	// the user's open basket when there is one.
	MergeInto(ctx context.Context, anonID, userID uuid.UUID) (*models.Basket, error)
}

// CheckoutTx is the slice of the store visible inside the checkout transaction.
type CheckoutTx interface {
	LockBasket(ctx context.Context, id uuid.UUID) (*models.Basket, error)
	BasketLines(ctx context.Context, basketID uuid.UUID) ([]models.BasketLine, error)
	CreateOrder(ctx context.Context, o *models.Order) error
	// SubmitBasket flips an OPEN basket to SUBMITTED and fails with
	// ErrBasketNotOpen when no row was in the OPEN state.
	SubmitBasket(ctx context.Context, id uuid.UUID) error
}

type OrderFilter struct {
	UserID *uuid.UUID
	Status *models.OrderStatus
	Offset int
	Limit  int
}

type OrderRepository interface {
	InTx(ctx context.Context, fn func(tx CheckoutTx) error) error
	ListOrders(ctx context.Context, f OrderFilter) (int64, []models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
	UpdateOrderLineStatus(ctx context.Context, orderID, lineID uuid.UUID, status models.OrderLineStatus) (*models.OrderLine, error)
}

type UserRepository interface {
	CreateUserIfNotExists(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error

	AddRefreshToken(ctx context.Context, t *models.RefreshToken) error
	FindRefreshByJTI(ctx context.Context, jti string) (*models.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldJTI string, newToken *models.RefreshToken) error
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

type AddressRepository interface {
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	GetAddress(ctx context.Context, userID, id uuid.UUID) (*models.Address, error)
	CreateAddress(ctx context.Context, a *models.Address) error
	UpdateAddress(ctx context.Context, a *models.Address) error
	DeleteAddress(ctx context.Context, userID, id uuid.UUID) error
}
