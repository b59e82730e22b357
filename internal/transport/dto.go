package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/util"
)

type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Slug        string          `json:"slug"`
	Active      *bool           `json:"active"`
	InStock     *bool           `json:"in_stock"`
	Tags        []string        `json:"tags"`
}

type PatchProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Slug        *string          `json:"slug"`
	Active      *bool            `json:"active"`
	InStock     *bool            `json:"in_stock"`
	Tags        *[]string        `json:"tags"`
}

type TagRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

type ListResponse[T any] struct {
	Data []T       `json:"data"`
	Meta util.Page `json:"meta"`
}

type AddToBasketRequest struct {
	ProductID uuid.UUID `json:"product_id"`
}

type LineUpdateRequest struct {
	ID       uuid.UUID `json:"id"`
	Quantity int       `json:"quantity"`
	Delete   bool      `json:"delete"`
}

// UpdateBasketRequest carries every edited line of the basket at once.
type UpdateBasketRequest struct {
	Lines []LineUpdateRequest `json:"lines"`
}

type BasketLineResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Slug      string          `json:"slug,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type BasketResponse struct {
	ID     *uuid.UUID           `json:"id,omitempty"`
	Status string               `json:"status,omitempty"`
	Count  int                  `json:"count"`
	Empty  bool                 `json:"empty"`
	Lines  []BasketLineResponse `json:"lines"`
}

// NewBasketResponse renders b; a nil basket is an empty one.
func NewBasketResponse(b *models.Basket) BasketResponse {
	if b == nil {
		return BasketResponse{Empty: true, Lines: []BasketLineResponse{}}
	}
	lines := lo.Map(b.Lines, func(l models.BasketLine, _ int) BasketLineResponse {
		out := BasketLineResponse{ID: l.ID, ProductID: l.ProductID, Quantity: l.Quantity}
		if l.Product != nil {
			out.Name = l.Product.Name
			out.Slug = l.Product.Slug
			out.Price = l.Product.Price
		}
		return out
	})
	id := b.ID
	return BasketResponse{
		ID:     &id,
		Status: b.Status.String(),
		Count:  b.Count(),
		Empty:  b.IsEmpty(),
		Lines:  lines,
	}
}

type SignupRequest struct {
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	IsStaff     bool       `json:"is_staff"`
	IsSuperuser bool       `json:"is_superuser"`
	DateJoined  time.Time  `json:"date_joined"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		DateJoined:  u.CreatedAt,
		LastLogin:   u.LastLogin,
	}
}

type AddressRequest struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	ZipCode  string `json:"zip_code"`
	City     string `json:"city"`
	Country  string `json:"country"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type CheckoutRequest struct {
	BillingAddressID  uuid.UUID `json:"billing_address_id"`
	ShippingAddressID uuid.UUID `json:"shipping_address_id"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type RegenerateResponse struct {
	Done   int `json:"done"`
	Failed int `json:"failed"`
}
