package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dimmoon69/booktime/pkg/tokens"
)

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"        json:"id"`
	Email        string     `gorm:"uniqueIndex;not null"        json:"email"`
	PasswordHash string     `gorm:"not null"                    json:"-"`
	IsStaff      bool       `gorm:"not null"                    json:"is_staff"`
	IsSuperuser  bool       `gorm:"not null"                    json:"is_superuser"`
	IsActive     bool       `gorm:"not null"                    json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"date_joined"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	Token     string    `gorm:"uniqueIndex;not null"     json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null"     json:"jti"`
	ExpiresAt int64     `gorm:"not null"                 json:"expires_at"`
	Revoked   bool      `gorm:"not null"                 json:"revoked"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ProductTag is addressed by its slug, which is its natural key.
type ProductTag struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Name        string    `gorm:"size:32;not null"      json:"name"`
	Slug        string    `gorm:"size:48;uniqueIndex"   json:"slug"`
	Description string    `gorm:"not null"              json:"description"`
	Active      bool      `gorm:"not null"              json:"active"`
}

func (t *ProductTag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"          json:"id"`
	Name        string          `gorm:"size:32;not null;index"        json:"name"`
	Description string          `gorm:"not null"                      json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(6,2);not null"    json:"price"`
	Slug        string          `gorm:"size:48;uniqueIndex"           json:"slug"`
	Active      bool            `gorm:"not null;index"                json:"active"`
	InStock     bool            `gorm:"not null"                      json:"in_stock"`
	Tags        []ProductTag    `gorm:"many2many:product_tag_links;"  json:"tags,omitempty"`
	Images      []ProductImage  `gorm:"constraint:OnDelete:CASCADE;"  json:"images,omitempty"`
	UpdatedAt   time.Time       `json:"date_updated"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type ProductImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id"`
	Image     string    `gorm:"not null"                 json:"image"`
	Thumbnail string    `gorm:"not null"                 json:"thumbnail"`
	CreatedAt time.Time `json:"created_at"`

	ImageURL     string `gorm:"-" json:"image_url,omitempty"`
	ThumbnailURL string `gorm:"-" json:"thumbnail_url,omitempty"`
}

func (i *ProductImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

type Address struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Name      string    `gorm:"size:60;not null"         json:"name"`
	Address1  string    `gorm:"size:60;not null"         json:"address1"`
	Address2  string    `gorm:"size:60;not null"         json:"address2"`
	ZipCode   string    `gorm:"size:12;not null"         json:"zip_code"`
	City      string    `gorm:"size:60;not null"         json:"city"`
	Country   Country   `gorm:"size:3;not null"          json:"country"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Snapshot copies the postal fields by value so later edits to the address
// never reach an order.
func (a Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		Name:     a.Name,
		Address1: a.Address1,
		Address2: a.Address2,
		ZipCode:  a.ZipCode,
		City:     a.City,
		Country:  a.Country,
	}
}

type AddressSnapshot struct {
	Name     string  `gorm:"size:60;not null" json:"name"`
	Address1 string  `gorm:"size:60;not null" json:"address1"`
	Address2 string  `gorm:"size:60;not null" json:"address2"`
	ZipCode  string  `gorm:"size:12;not null" json:"zip_code"`
	City     string  `gorm:"size:60;not null" json:"city"`
	Country  Country `gorm:"size:3;not null"  json:"country"`
}

type Basket struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey"           json:"id"`
	UserID    *uuid.UUID   `gorm:"type:uuid;index"                json:"user_id,omitempty"`
	Status    BasketStatus `gorm:"not null;index"                 json:"status"`
	Lines     []BasketLine `gorm:"constraint:OnDelete:CASCADE;"   json:"lines,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (b *Basket) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *Basket) IsOpen() bool { return b.Status == BasketOpen }

func (b *Basket) IsEmpty() bool { return len(b.Lines) == 0 }

// Count is the number of units in the basket, not the number of lines.
func (b *Basket) Count() int {
	n := 0
	for _, l := range b.Lines {
		n += l.Quantity
	}
	return n
}

type BasketLine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                                    json:"id"`
	BasketID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_basket_product"       json:"basket_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_basket_product"       json:"product_id"`
	Product   *Product  `gorm:"constraint:OnDelete:CASCADE;"                            json:"product,omitempty"`
	Quantity  int       `gorm:"not null;check:quantity > 0"                             json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *BasketLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

type Order struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"              json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;index;not null"          json:"user_id"`
	BasketID  uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"    json:"basket_id"`
	Status    OrderStatus     `gorm:"size:16;not null;index"            json:"status"`
	Billing   AddressSnapshot `gorm:"embedded;embeddedPrefix:billing_"  json:"billing"`
	Shipping  AddressSnapshot `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`
	Lines     []OrderLine     `gorm:"constraint:OnDelete:CASCADE;"      json:"lines,omitempty"`
	CreatedAt time.Time       `json:"date_added"`
	UpdatedAt time.Time       `json:"last_updated"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderLine stands for exactly one unit of a product.
type OrderLine struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"          json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null"      json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;index;not null"      json:"product_id"`
	Product   *Product        `gorm:"constraint:OnDelete:RESTRICT;" json:"product,omitempty"`
	Position  int             `gorm:"not null"                      json:"position"`
	Status    OrderLineStatus `gorm:"size:16;not null"              json:"status"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (l *OrderLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// All lists every persisted model in dependency order for migrations.
func All() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&ProductTag{},
		&Product{},
		&ProductImage{},
		&Address{},
		&Basket{},
		&BasketLine{},
		&Order{},
		&OrderLine{},
	}
}

func (u *User) Role() string {
	if u.IsStaff || u.IsSuperuser {
		return tokens.RoleStaff
	}
	return tokens.RoleUser
}
