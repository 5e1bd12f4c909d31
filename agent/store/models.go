package store

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Final reports whether no further status transition is allowed.
func (s OrderStatus) Final() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          int64             `bun:"id,pk,autoincrement" json:"id"`
	Name        string            `bun:"name,notnull" json:"name"`
	Brand       string            `bun:"brand,notnull" json:"brand,omitempty"`
	Description string            `bun:"description,notnull" json:"description,omitempty"`
	Attributes  map[string]string `bun:"attributes,type:json" json:"attributes,omitempty"`
	PriceCents  int64             `bun:"price_cents,notnull" json:"price_cents"`
	Stock       int               `bun:"stock,notnull" json:"stock"`
	UnitsSold   int               `bun:"units_sold,notnull" json:"units_sold"`
	ForSale     bool              `bun:"for_sale,notnull" json:"for_sale"`
	CreatedAt   time.Time         `bun:"created_at,notnull" json:"created_at"`
}

type CartLine struct {
	bun.BaseModel `bun:"table:cart_lines,alias:cl"`

	UserID    int64     `bun:"user_id,pk" json:"user_id"`
	ProductID int64     `bun:"product_id,pk" json:"product_id"`
	Quantity  int       `bun:"quantity,notnull" json:"quantity"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`

	Product *Product `bun:"rel:belongs-to,join:product_id=id" json:"-"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID         int64       `bun:"id,pk,autoincrement" json:"id"`
	UserID     int64       `bun:"user_id,notnull" json:"user_id"`
	Status     OrderStatus `bun:"status,notnull" json:"status"`
	TotalCents int64       `bun:"total_cents,notnull" json:"total_cents"`
	CreatedAt  time.Time   `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt  time.Time   `bun:"updated_at,notnull" json:"updated_at"`

	Lines []*OrderLine `bun:"rel:has-many,join:id=order_id" json:"lines"`
}

type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines,alias:ol"`

	OrderID    int64  `bun:"order_id,pk" json:"order_id"`
	ProductID  int64  `bun:"product_id,pk" json:"product_id"`
	Name       string `bun:"name,notnull" json:"name"`
	Quantity   int    `bun:"quantity,notnull" json:"quantity"`
	PriceCents int64  `bun:"price_cents,notnull" json:"price_cents"`
}

// CartItem is a cart line with the product fields resolved.
type CartItem struct {
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	PriceCents    int64  `json:"price_cents"`
	SubtotalCents int64  `json:"subtotal_cents"`
}

type Cart struct {
	UserID        int64      `json:"user_id"`
	Items         []CartItem `json:"items"`
	SubtotalCents int64      `json:"subtotal_cents"`
}

func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// Units is the total number of units across all lines.
func (c Cart) Units() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// CartChange is the outcome of add/remove on one line.
type CartChange struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Delta     int    `json:"delta"`
	Quantity  int    `json:"quantity"`
	Removed   bool   `json:"removed"`
}

type SearchQuery struct {
	Text          string
	MaxPriceCents int64
	Limit         int
}

// SearchHit is a ranked catalog match.
type SearchHit struct {
	Product Product `json:"product"`
	Score   int     `json:"score"`
}
