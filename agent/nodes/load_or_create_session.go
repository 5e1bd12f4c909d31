package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
)

func LoadOrCreateSession(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	logger zerolog.Logger,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := store.Load(ctx, in.ThreadID)
	switch {
	case err == nil:
		if sess.UserID != in.UserID {
			return nil, fmt.Errorf("%w: thread %s", ErrThreadOwner, in.ThreadID)
		}
		in.Session = sess
	case errors.Is(err, statex.ErrStateNotFound):
		in.Session = statex.NewSession(in.ThreadID, in.UserID, in.Now)
	default:
		logger.Warn().
			Err(err).
			Str("thread_id", in.ThreadID).
			Int64("user_id", in.UserID).
			Msg("session load failed, continuing with a transient session")
		in.Session = statex.NewSession(in.ThreadID, in.UserID, in.Now)
		in.Transient = true
	}
	return in, nil
}
