package handler

import (
	"context"
	"fmt"
	"regexp"

	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
	storex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/store"
	toolx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/tool"
)

var (
	removeVerbPattern = regexp.MustCompile(`(?i)\b(?:remove|delete|take out|take off|drop|get rid of|minus)\b`)
	addVerbPattern    = regexp.MustCompile(`(?i)\b(?:add|put|throw in|buy|grab|i'll take|i will take|take|give me|get me|plus)\b`)
)

type cartAction int

const (
	cartView cartAction = iota
	cartAdd
	cartRemove
)

type cartHandler struct {
	base
}

var _ contractx.Handler = (*cartHandler)(nil)

// target is the product a cart change applies to. When id is zero, reply
// (and optionally payload) is the clarification to send instead.
type target struct {
	id      int64
	name    string
	reply   string
	payload *statex.Payload
}

func (h *cartHandler) Handle(ctx context.Context, req contractx.HandlerRequest) (contractx.HandlerOutput, error) {
	box := h.box(req)

	switch h.action(req) {
	case cartRemove:
		return h.remove(ctx, box, req), nil
	case cartAdd:
		return h.add(ctx, box, req), nil
	default:
		return h.view(ctx, box), nil
	}
}

func (h *cartHandler) action(req contractx.HandlerRequest) cartAction {
	switch {
	case removeVerbPattern.MatchString(req.Utterance):
		return cartRemove
	case addVerbPattern.MatchString(req.Utterance):
		return cartAdd
	}
	if _, ok := ProductID(req.Utterance); ok {
		return cartAdd
	}
	if _, ok := resolveIn(req.Utterance, req.LastProducts, ofKind(req.LastPayload, statex.PayloadProducts)); ok {
		return cartAdd
	}
	return cartView
}

func (h *cartHandler) view(ctx context.Context, box *toolx.Box) contractx.HandlerOutput {
	res := box.Call(ctx, toolx.CartArgs{})
	if !res.OK() {
		return h.output(box, clarify(res), nil)
	}
	cart, _ := res.Payload.(storex.Cart)
	return h.output(box, describeCart(cart), cartPayload(cart))
}

func (h *cartHandler) add(ctx context.Context, box *toolx.Box, req contractx.HandlerRequest) contractx.HandlerOutput {
	t := h.resolveForAdd(ctx, box, req)
	if t.id == 0 {
		return h.output(box, t.reply, t.payload)
	}
	qty, ok := Quantity(req.Utterance)
	if !ok {
		qty = 1
	}

	res := box.Call(ctx, toolx.AddLine(t.id, qty))
	if !res.OK() {
		if res.Kind() == toolx.KindNotFound {
			return h.output(box, fmt.Sprintf("I couldn't find product %d in the catalog.", t.id), nil)
		}
		return h.output(box, clarify(res), nil)
	}
	change, _ := res.Payload.(storex.CartChange)
	reply := fmt.Sprintf("Added %d x %s to your cart.", qty, change.Name)
	return h.withSnapshot(ctx, box, reply)
}

func (h *cartHandler) remove(ctx context.Context, box *toolx.Box, req contractx.HandlerRequest) contractx.HandlerOutput {
	t := h.resolveForRemove(ctx, box, req)
	if t.id == 0 {
		return h.output(box, t.reply, t.payload)
	}
	args := toolx.RemoveWholeLine(t.id)
	if qty, ok := Quantity(req.Utterance); ok {
		args = toolx.RemoveLine(t.id, qty)
	}

	res := box.Call(ctx, args)
	if !res.OK() {
		if res.Kind() == toolx.KindNotFound {
			what := t.name
			if what == "" {
				what = fmt.Sprintf("Product %d", t.id)
			}
			return h.output(box, fmt.Sprintf("%s isn't in your cart.", what), nil)
		}
		return h.output(box, clarify(res), nil)
	}
	change, _ := res.Payload.(storex.CartChange)
	reply := fmt.Sprintf("Removed %d x %s.", -change.Delta, change.Name)
	if change.Removed {
		reply = fmt.Sprintf("Removed %s from your cart.", change.Name)
	}
	return h.withSnapshot(ctx, box, reply)
}

// withSnapshot appends the cart summary after a change. A failed snapshot
// keeps the change reply and leaves the payload alone.
func (h *cartHandler) withSnapshot(ctx context.Context, box *toolx.Box, reply string) contractx.HandlerOutput {
	res := box.Call(ctx, toolx.CartArgs{})
	if !res.OK() {
		return h.output(box, reply, nil)
	}
	cart, _ := res.Payload.(storex.Cart)
	return h.output(box, reply+" "+cartSummary(cart), cartPayload(cart))
}

func (h *cartHandler) resolveForAdd(ctx context.Context, box *toolx.Box, req contractx.HandlerRequest) target {
	if id, ok := ProductID(req.Utterance); ok {
		return target{id: id}
	}
	// the product list the shopper browsed wins over a cart snapshot
	if it, ok := resolveIn(req.Utterance, req.LastProducts, ofKind(req.LastPayload, statex.PayloadProducts, statex.PayloadCart)); ok {
		return target{id: it.ProductID, name: it.Name}
	}

	phrase := SearchPhrase(req.Utterance)
	if phrase == "" {
		if hasReference(req.Utterance) && (req.LastPayload.Len() > 0 || req.LastProducts.Len() > 0) {
			return target{reply: "Which one did you mean? Say its number from the list."}
		}
		return target{reply: "Which product would you like to add?"}
	}

	res := box.Call(ctx, toolx.SearchArgs{Query: phrase})
	if !res.OK() {
		return target{reply: clarify(res)}
	}
	hits, _ := res.Payload.([]storex.SearchHit)
	switch len(hits) {
	case 0:
		return target{reply: fmt.Sprintf("I couldn't find anything matching %q.", phrase)}
	case 1:
		return target{id: hits[0].Product.ID, name: hits[0].Product.Name}
	default:
		p := productsPayload(hits)
		return target{
			reply:   fmt.Sprintf("I found %d matches for %q. Which one should I add?\n%s", p.Len(), phrase, listProducts(p)),
			payload: p,
		}
	}
}

func (h *cartHandler) resolveForRemove(ctx context.Context, box *toolx.Box, req contractx.HandlerRequest) target {
	if id, ok := ProductID(req.Utterance); ok {
		return target{id: id}
	}
	if it, ok := resolveIn(req.Utterance, ofKind(req.LastPayload, statex.PayloadCart, statex.PayloadProducts), req.LastProducts); ok {
		return target{id: it.ProductID, name: it.Name}
	}

	phrase := SearchPhrase(req.Utterance)
	if phrase == "" {
		return target{reply: "Which item should I remove from your cart?"}
	}

	res := box.Call(ctx, toolx.CartArgs{})
	if !res.OK() {
		return target{reply: clarify(res)}
	}
	cart, _ := res.Payload.(storex.Cart)
	if cart.Empty() {
		return target{reply: "Your cart is already empty."}
	}

	matches := matchCartItems(cart, phrase)
	switch len(matches) {
	case 0:
		return target{reply: fmt.Sprintf("I don't see %q in your cart.", phrase), payload: cartPayload(cart)}
	case 1:
		return target{id: matches[0].ProductID, name: matches[0].Name}
	default:
		p := cartPayload(cart)
		return target{
			reply:   fmt.Sprintf("More than one item in your cart matches %q. Which one should I remove?\n%s", phrase, describeCart(cart)),
			payload: p,
		}
	}
}

// matchCartItems returns the cart lines with the best name score for phrase.
func matchCartItems(cart storex.Cart, phrase string) []storex.CartItem {
	words := storex.QueryWords(phrase)
	best := 0
	var out []storex.CartItem
	for _, it := range cart.Items {
		score := storex.Score(storex.Product{Name: it.Name}, words)
		switch {
		case score <= 0 || score < best:
		case score > best:
			best = score
			out = []storex.CartItem{it}
		default:
			out = append(out, it)
		}
	}
	return out
}
