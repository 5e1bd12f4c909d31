package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
)

// Classify never fails the turn: a panicking classifier or an unknown task
// type routes to general.
func Classify(
	ctx context.Context,
	in *GraphState,
	classifier contractx.Classifier,
	logger zerolog.Logger,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	decision := classify(ctx, in, classifier, logger)
	if !decision.TaskType.Valid() {
		err := fmt.Errorf("%w: unknown task type %q", contractx.ErrClassification, decision.TaskType)
		logger.Warn().Err(err).Str("thread_id", in.ThreadID).Msg("routing to general")
		decision = contractx.GeneralFallback(err.Error())
	}
	in.Decision = decision
	return in, nil
}

func classify(
	ctx context.Context,
	in *GraphState,
	classifier contractx.Classifier,
	logger zerolog.Logger,
) (decision contractx.RoutingDecision) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Err(fmt.Errorf("%w: panic: %v", contractx.ErrClassification, r)).
				Str("thread_id", in.ThreadID).
				Msg("classifier panicked")
			decision = contractx.GeneralFallback("classifier panic")
		}
	}()
	if classifier == nil {
		return contractx.GeneralFallback("no classifier configured")
	}
	return classifier.Classify(ctx, in.Utterance, in.History)
}
