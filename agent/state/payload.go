package state

import (
	"errors"
	"fmt"
)

type PayloadKind string

const (
	PayloadProducts PayloadKind = "products"
	PayloadCart     PayloadKind = "cart"
	PayloadOrder    PayloadKind = "order"
	PayloadOrders   PayloadKind = "orders"
)

// Payload is the structured result of a turn. Items are ordered and their
// 1-based Position is what ordinal references resolve against.
type Payload struct {
	Kind       PayloadKind `json:"kind"`
	Items      []Item      `json:"items"`
	TotalCents int64       `json:"total_cents,omitempty"`
}

type Item struct {
	Position   int    `json:"position"`
	ProductID  int64  `json:"product_id,omitempty"`
	OrderID    int64  `json:"order_id,omitempty"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity,omitempty"`
	Stock      int    `json:"stock,omitempty"`
	Status     string `json:"status,omitempty"`
}

var ErrInvalidPayload = errors.New("invalid payload")

// At returns the item at a 1-based position.
func (p *Payload) At(position int) (Item, bool) {
	if p == nil || position < 1 || position > len(p.Items) {
		return Item{}, false
	}
	return p.Items[position-1], true
}

func (p *Payload) Last() (Item, bool) {
	if p == nil {
		return Item{}, false
	}
	return p.At(len(p.Items))
}

func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	out := *p
	out.Items = append([]Item(nil), p.Items...)
	return &out
}

func (p *Payload) Validate() error {
	switch p.Kind {
	case PayloadProducts, PayloadCart, PayloadOrder, PayloadOrders:
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidPayload, p.Kind)
	}
	for i, it := range p.Items {
		if it.Position != i+1 {
			return fmt.Errorf("%w: item %d has position %d", ErrInvalidPayload, i, it.Position)
		}
	}
	return nil
}
