package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
)

func FinalizeReply(in *GraphState) (contractx.TurnResult, error) {
	if in == nil || in.Session == nil {
		return contractx.TurnResult{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Output.Reply)
	if reply == "" {
		reply = ApologyReply
	}
	return contractx.TurnResult{
		ThreadID:  in.Session.ThreadID,
		SessionID: in.Session.SessionID,
		Reply:     reply,
		TaskType:  in.Output.TaskType,
		Payload:   in.Output.Payload.Clone(),
		Degraded:  in.Degraded,
	}, nil
}
