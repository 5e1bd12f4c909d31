package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
)

// ReadHistory copies the last window turns for the classifier and handler.
func ReadHistory(in *GraphState, window int) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	in.History = in.Session.Recent(window)
	return in, nil
}
