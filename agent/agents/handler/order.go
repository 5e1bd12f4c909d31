package handler

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
	storex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/store"
	toolx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/tool"
)

var (
	cancelPattern = regexp.MustCompile(`(?i)\b(?:cancel|call off|void)\b`)
	placePattern  = regexp.MustCompile(`(?i)\b(?:place|checkout|check out|submit|confirm|complete|finish|purchase|buy (?:it|them|everything|all)|order (?:it|them|everything|now))\b`)
)

type orderAction int

const (
	orderList orderAction = iota
	orderPlace
	orderCancel
)

type orderHandler struct {
	base
}

var _ contractx.Handler = (*orderHandler)(nil)

func (h *orderHandler) Handle(ctx context.Context, req contractx.HandlerRequest) (contractx.HandlerOutput, error) {
	box := h.box(req)

	switch orderActionOf(req.Utterance) {
	case orderCancel:
		return h.cancel(ctx, box, req), nil
	case orderPlace:
		return h.place(ctx, box), nil
	default:
		return h.list(ctx, box), nil
	}
}

func orderActionOf(text string) orderAction {
	switch {
	case cancelPattern.MatchString(text):
		return orderCancel
	case placePattern.MatchString(text):
		return orderPlace
	default:
		return orderList
	}
}

const emptyCartReply = "Your cart is empty, so there is nothing to order yet."

func (h *orderHandler) place(ctx context.Context, box *toolx.Box) contractx.HandlerOutput {
	if res := box.Call(ctx, toolx.CartArgs{}); res.OK() {
		if cart, _ := res.Payload.(storex.Cart); cart.Empty() {
			return h.output(box, emptyCartReply, nil)
		}
	}

	res := box.Call(ctx, toolx.PlaceOrderArgs{})
	if !res.OK() {
		switch {
		case isEmptyCart(res):
			return h.output(box, emptyCartReply, nil)
		case res.Kind() == toolx.KindInsufficientStock:
			return h.output(box, fmt.Sprintf(
				"I couldn't place the order: %s. Nothing was charged and your cart is untouched, so you can change that line and try again.",
				res.Err.Message), nil)
		default:
			return h.output(box, clarify(res), nil)
		}
	}
	order, _ := res.Payload.(storex.Order)
	reply := fmt.Sprintf("Order #%d is placed: %s. Total %s, status %s.",
		order.ID, describeOrderLines(order), money(order.TotalCents), order.Status)
	return h.output(box, reply, orderPayload(order))
}

func (h *orderHandler) list(ctx context.Context, box *toolx.Box) contractx.HandlerOutput {
	res := box.Call(ctx, toolx.ListOrdersArgs{})
	if !res.OK() {
		return h.output(box, clarify(res), nil)
	}
	orders, _ := res.Payload.([]storex.Order)
	payload := ordersPayload(orders)
	if len(orders) == 0 {
		return h.output(box, "You have no orders yet.", payload)
	}
	return h.output(box, describeOrders(payload), payload)
}

func (h *orderHandler) cancel(ctx context.Context, box *toolx.Box, req contractx.HandlerRequest) contractx.HandlerOutput {
	id, ok := h.resolveOrderID(req)
	if !ok {
		out := h.list(ctx, box)
		if out.Payload != nil && out.Payload.Len() > 0 {
			out.Reply = "Which order should I cancel? " + out.Reply
		}
		return out
	}

	res := box.Call(ctx, toolx.CancelOrderArgs{OrderID: id})
	if !res.OK() {
		switch res.Kind() {
		case toolx.KindNotFound:
			return h.output(box, fmt.Sprintf("I couldn't find order #%d on your account.", id), nil)
		case toolx.KindInvalidState:
			return h.output(box, fmt.Sprintf("Order #%d can no longer be cancelled.", id), nil)
		default:
			return h.output(box, clarify(res), nil)
		}
	}
	order, _ := res.Payload.(storex.Order)
	return h.output(box, fmt.Sprintf("Order #%d is cancelled and its items are back in stock.", order.ID), orderPayload(order))
}

// resolveOrderID prefers an explicit id, then a single order shown last turn,
// then an ordinal into the last order list.
func (h *orderHandler) resolveOrderID(req contractx.HandlerRequest) (int64, bool) {
	if id, ok := OrderID(req.Utterance); ok {
		return id, true
	}
	if p := req.LastPayload; p != nil && p.Kind == statex.PayloadOrder && p.Len() > 0 {
		return p.Items[0].OrderID, true
	}
	if it, ok := referencedItem(req, statex.PayloadOrders); ok && it.OrderID > 0 {
		return it.OrderID, true
	}
	return 0, false
}

// isEmptyCart covers a cart emptied between the snapshot and the order.
func isEmptyCart(res toolx.Result) bool {
	return res.Kind() == toolx.KindNotFound && res.Err.Message == toolx.EmptyCartMessage
}

func describeOrders(p *statex.Payload) string {
	var b strings.Builder
	if p.Len() == 1 {
		b.WriteString("You have 1 order:")
	} else {
		fmt.Fprintf(&b, "You have %d orders:", p.Len())
	}
	for _, it := range p.Items {
		noun := "items"
		if it.Quantity == 1 {
			noun = "item"
		}
		fmt.Fprintf(&b, "\n%d. Order #%d — %s, %d %s, %s", it.Position, it.OrderID, money(it.PriceCents), it.Quantity, noun, it.Status)
	}
	return b.String()
}
