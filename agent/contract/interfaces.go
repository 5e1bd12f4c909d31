package contract

import (
	"context"

	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
)

// Classifier never fails; an inconclusive utterance routes to TaskGeneral.
type Classifier interface {
	Classify(ctx context.Context, utterance string, recent []statex.Turn) RoutingDecision
}

type Inferer interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

type Handler interface {
	Handle(ctx context.Context, req HandlerRequest) (HandlerOutput, error)
}

type Registry interface {
	Catalog() Handler
	Cart() Handler
	Order() Handler
	General() Handler
}
