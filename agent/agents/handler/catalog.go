package handler

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
	storex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/store"
	toolx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/tool"
)

type catalogHandler struct {
	base
}

var _ contractx.Handler = (*catalogHandler)(nil)

func (h *catalogHandler) Handle(ctx context.Context, req contractx.HandlerRequest) (contractx.HandlerOutput, error) {
	box := h.box(req)

	query := SearchPhrase(req.Utterance)
	if query == "" {
		return h.output(box, "What would you like me to look for?", nil), nil
	}
	args := toolx.SearchArgs{Query: query}
	budget, hasBudget := Budget(req.Utterance)
	if hasBudget {
		args.MaxPriceCents = budget
	}

	res := box.Call(ctx, args)
	if !res.OK() {
		return h.output(box, clarify(res), nil), nil
	}
	hits, _ := res.Payload.([]storex.SearchHit)
	payload := productsPayload(hits)

	if len(hits) == 0 {
		reply := fmt.Sprintf("I couldn't find anything matching %q", query)
		if hasBudget {
			reply += " under " + money(budget)
		}
		return h.output(box, reply+".", payload), nil
	}
	return h.output(box, productsReply(query, payload), payload), nil
}

func productsReply(query string, p *statex.Payload) string {
	noun := "results"
	if p.Len() == 1 {
		noun = "result"
	}
	return fmt.Sprintf("I found %d %s for %q:\n%s", p.Len(), noun, query, listProducts(p))
}
