package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
)

// ApplyTurn records the user and agent turns. The last payload is replaced
// only when the handler produced one, the last product list only by a
// products payload.
func ApplyTurn(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	sess := in.Session
	sess.AppendTurn(statex.Turn{
		Role:      statex.RoleUser,
		Text:      in.Utterance,
		Timestamp: in.Now,
	})
	sess.AppendTurn(statex.Turn{
		Role:      statex.RoleAgent,
		Text:      in.Output.Reply,
		TaskType:  in.Output.TaskType.String(),
		Timestamp: in.Now,
	})

	sess.LastTaskType = in.Output.TaskType.String()
	if p := in.Output.Payload; p != nil {
		sess.LastPayload = p.Clone()
		if p.Kind == statex.PayloadProducts {
			sess.LastProducts = p.Clone()
		}
	}
	sess.Version++
	sess.Touch(in.Now)
	return in, nil
}
