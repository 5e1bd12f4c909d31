package handler

import (
	"fmt"
	"strings"

	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
	storex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/store"
	toolx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/tool"
)

func money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func productsPayload(hits []storex.SearchHit) *statex.Payload {
	p := &statex.Payload{Kind: statex.PayloadProducts, Items: make([]statex.Item, 0, len(hits))}
	for i, h := range hits {
		p.Items = append(p.Items, statex.Item{
			Position:   i + 1,
			ProductID:  h.Product.ID,
			Name:       h.Product.Name,
			PriceCents: h.Product.PriceCents,
			Stock:      h.Product.Stock,
		})
	}
	return p
}

func cartPayload(cart storex.Cart) *statex.Payload {
	p := &statex.Payload{Kind: statex.PayloadCart, Items: make([]statex.Item, 0, len(cart.Items)), TotalCents: cart.SubtotalCents}
	for i, it := range cart.Items {
		p.Items = append(p.Items, statex.Item{
			Position:   i + 1,
			ProductID:  it.ProductID,
			Name:       it.Name,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
		})
	}
	return p
}

func orderPayload(o storex.Order) *statex.Payload {
	p := &statex.Payload{Kind: statex.PayloadOrder, Items: make([]statex.Item, 0, len(o.Lines)), TotalCents: o.TotalCents}
	for i, l := range o.Lines {
		p.Items = append(p.Items, statex.Item{
			Position:   i + 1,
			ProductID:  l.ProductID,
			OrderID:    o.ID,
			Name:       l.Name,
			PriceCents: l.PriceCents,
			Quantity:   l.Quantity,
			Status:     string(o.Status),
		})
	}
	return p
}

func ordersPayload(orders []storex.Order) *statex.Payload {
	p := &statex.Payload{Kind: statex.PayloadOrders, Items: make([]statex.Item, 0, len(orders))}
	for i, o := range orders {
		p.Items = append(p.Items, statex.Item{
			Position:   i + 1,
			OrderID:    o.ID,
			Name:       fmt.Sprintf("Order #%d", o.ID),
			PriceCents: o.TotalCents,
			Quantity:   orderUnits(o),
			Status:     string(o.Status),
		})
	}
	return p
}

func orderUnits(o storex.Order) int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

func listProducts(p *statex.Payload) string {
	var b strings.Builder
	for i, it := range p.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		stock := fmt.Sprintf("%d in stock", it.Stock)
		if it.Stock <= 0 {
			stock = "out of stock"
		}
		fmt.Fprintf(&b, "%d. %s — %s (%s)", it.Position, it.Name, money(it.PriceCents), stock)
	}
	return b.String()
}

func describeCart(cart storex.Cart) string {
	if cart.Empty() {
		return "Your cart is empty."
	}
	var b strings.Builder
	b.WriteString("Your cart:")
	for i, it := range cart.Items {
		fmt.Fprintf(&b, "\n%d. %d x %s — %s", i+1, it.Quantity, it.Name, money(it.SubtotalCents))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s", money(cart.SubtotalCents))
	return b.String()
}

func cartSummary(cart storex.Cart) string {
	if cart.Empty() {
		return "Your cart is now empty."
	}
	units := cart.Units()
	noun := "items"
	if units == 1 {
		noun = "item"
	}
	return fmt.Sprintf("Your cart has %d %s, subtotal %s.", units, noun, money(cart.SubtotalCents))
}

func describeOrderLines(o storex.Order) string {
	parts := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		parts = append(parts, fmt.Sprintf("%d x %s", l.Quantity, l.Name))
	}
	return strings.Join(parts, ", ")
}

// clarify turns a tool failure into a reply that tells the shopper what to do.
func clarify(res toolx.Result) string {
	if res.Err == nil {
		return ""
	}
	switch res.Err.Kind {
	case toolx.KindInsufficientStock:
		return fmt.Sprintf("Insufficient stock: %s.", res.Err.Message)
	case toolx.KindTimeout:
		return "The store is taking too long to answer. Please try again in a moment."
	case toolx.KindInvalidArguments:
		return "I didn't catch the details. Could you say the product and the quantity again?"
	case toolx.KindNotAllowed:
		return "I can't do that from here."
	case toolx.KindStoreError:
		return "Something went wrong on our side. Please try again."
	default:
		return "Sorry, that didn't work: " + res.Err.Message + "."
	}
}
