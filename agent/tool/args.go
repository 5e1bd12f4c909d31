package tool

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

type Name string

const (
	SearchCatalog  Name = "search_catalog"
	AddCartLine    Name = "add_cart_line"
	RemoveCartLine Name = "remove_cart_line"
	GetCart        Name = "get_cart"
	PlaceOrder     Name = "place_order"
	ListOrders     Name = "list_orders"
	CancelOrder    Name = "cancel_order"
)

const (
	MaxQuantity    = 99
	MaxQueryLength = 200
)

var ErrInvalidArguments = errors.New("invalid arguments")

type Caller struct {
	UserID   int64
	ThreadID string
}

// Args is implemented by the typed argument struct of each tool.
type Args interface {
	ToolName() Name
	Validate() error
}

type SearchArgs struct {
	Query         string `json:"query"`
	MaxPriceCents int64  `json:"max_price_cents,omitempty"`
}

func (SearchArgs) ToolName() Name { return SearchCatalog }

func (a *SearchArgs) normalize() {
	a.Query = strings.Join(strings.Fields(a.Query), " ")
}

func (a SearchArgs) Validate() error {
	a.normalize()
	if a.Query == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidArguments)
	}
	if utf8.RuneCountInString(a.Query) > MaxQueryLength {
		return fmt.Errorf("%w: query longer than %d characters", ErrInvalidArguments, MaxQueryLength)
	}
	if a.MaxPriceCents < 0 {
		return fmt.Errorf("%w: max price must not be negative", ErrInvalidArguments)
	}
	return nil
}

// CartLineArgs is shared by add_cart_line and remove_cart_line. All drops
// the whole line on remove and takes no quantity.
type CartLineArgs struct {
	Name      Name  `json:"-"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity,omitempty"`
	All       bool  `json:"all,omitempty"`
}

func AddLine(productID int64, quantity int) CartLineArgs {
	return CartLineArgs{Name: AddCartLine, ProductID: productID, Quantity: quantity}
}

func RemoveLine(productID int64, quantity int) CartLineArgs {
	return CartLineArgs{Name: RemoveCartLine, ProductID: productID, Quantity: quantity}
}

func RemoveWholeLine(productID int64) CartLineArgs {
	return CartLineArgs{Name: RemoveCartLine, ProductID: productID, All: true}
}

func (a CartLineArgs) ToolName() Name { return a.Name }

func (a CartLineArgs) Validate() error {
	if a.Name != AddCartLine && a.Name != RemoveCartLine {
		return fmt.Errorf("%w: cart line tool %q", ErrInvalidArguments, a.Name)
	}
	if a.ProductID <= 0 {
		return fmt.Errorf("%w: product id must be positive", ErrInvalidArguments)
	}
	if a.All {
		if a.Name != RemoveCartLine || a.Quantity != 0 {
			return fmt.Errorf("%w: all is only valid on remove without a quantity", ErrInvalidArguments)
		}
		return nil
	}
	if a.Quantity < 1 || a.Quantity > MaxQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidArguments, MaxQuantity)
	}
	return nil
}

type CartArgs struct{}

func (CartArgs) ToolName() Name  { return GetCart }
func (CartArgs) Validate() error { return nil }

type PlaceOrderArgs struct{}

func (PlaceOrderArgs) ToolName() Name  { return PlaceOrder }
func (PlaceOrderArgs) Validate() error { return nil }

type ListOrdersArgs struct{}

func (ListOrdersArgs) ToolName() Name  { return ListOrders }
func (ListOrdersArgs) Validate() error { return nil }

type CancelOrderArgs struct {
	OrderID int64 `json:"order_id"`
}

func (CancelOrderArgs) ToolName() Name { return CancelOrder }

func (a CancelOrderArgs) Validate() error {
	if a.OrderID <= 0 {
		return fmt.Errorf("%w: order id must be positive", ErrInvalidArguments)
	}
	return nil
}
