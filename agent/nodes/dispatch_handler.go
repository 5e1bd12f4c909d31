package orchestratornode

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
)

const ApologyReply = "Sorry, something went wrong on my side. Could you say that again?"

func DispatchHandler(
	ctx context.Context,
	in *GraphState,
	handlers contractx.Registry,
	logger zerolog.Logger,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	req := contractx.HandlerRequest{
		Utterance:    in.Utterance,
		UserID:       in.UserID,
		ThreadID:     in.ThreadID,
		History:      in.History,
		LastPayload:  in.Session.LastPayload.Clone(),
		LastProducts: in.Session.LastProducts.Clone(),
		Decision:     in.Decision,
	}

	started := time.Now()
	out, err := runHandler(ctx, pickHandler(in.Decision.TaskType, handlers), req)
	if err == nil && strings.TrimSpace(out.Reply) == "" {
		err = fmt.Errorf("%w: empty reply from %s handler", contractx.ErrHandler, in.Decision.TaskType)
	}
	if err == nil && out.Payload != nil {
		if verr := out.Payload.Validate(); verr != nil {
			err = fmt.Errorf("%w: %v", contractx.ErrHandler, verr)
		}
	}

	if err != nil {
		logger.Error().
			Err(err).
			Str("thread_id", in.ThreadID).
			Int64("user_id", in.UserID).
			Str("task_type", in.Decision.TaskType.String()).
			Dur("duration", time.Since(started)).
			Msg("handler failed, replying with apology")
		in.Output = contractx.HandlerOutput{Reply: ApologyReply, TaskType: contractx.TaskGeneral, ToolCalls: out.ToolCalls}
		in.Degraded = true
		return in, nil
	}

	if !out.TaskType.Valid() {
		out.TaskType = in.Decision.TaskType
	}
	out.Reply = strings.TrimSpace(out.Reply)
	logger.Debug().
		Str("thread_id", in.ThreadID).
		Int64("user_id", in.UserID).
		Str("task_type", out.TaskType.String()).
		Int("tool_calls", len(out.ToolCalls)).
		Dur("duration", time.Since(started)).
		Msg("handler done")
	in.Output = out
	return in, nil
}

// pickHandler is the only branch of a turn. General is the explicit default.
func pickHandler(task contractx.TaskType, handlers contractx.Registry) contractx.Handler {
	if handlers == nil {
		return nil
	}
	switch task {
	case contractx.TaskCatalogSearch:
		return handlers.Catalog()
	case contractx.TaskCart:
		return handlers.Cart()
	case contractx.TaskOrder:
		return handlers.Order()
	case contractx.TaskGeneral:
		return handlers.General()
	default:
		return handlers.General()
	}
}

func runHandler(ctx context.Context, h contractx.Handler, req contractx.HandlerRequest) (out contractx.HandlerOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", contractx.ErrHandler, r)
		}
	}()
	if h == nil {
		return contractx.HandlerOutput{}, fmt.Errorf("%w: no handler for %s", contractx.ErrHandler, req.Decision.TaskType)
	}
	return h.Handle(ctx, req)
}
