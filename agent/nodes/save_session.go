package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
)

// SaveSession persists best effort: a failed save is logged and the reply is
// still returned.
func SaveSession(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	logger zerolog.Logger,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if in.Transient {
		logger.Warn().
			Str("thread_id", in.ThreadID).
			Msg("skipping save of transient session")
		return in, nil
	}

	if err := in.Session.Validate(); err != nil {
		logger.Error().Err(err).Str("thread_id", in.ThreadID).Msg("session validation failed, not saved")
		return in, nil
	}
	// saved even after the caller has gone away
	saveCtx := context.WithoutCancel(ctx)
	if err := store.Save(saveCtx, in.Session); err != nil {
		logger.Error().
			Err(err).
			Str("thread_id", in.ThreadID).
			Int64("user_id", in.UserID).
			Msg("session save failed")
	}
	return in, nil
}
