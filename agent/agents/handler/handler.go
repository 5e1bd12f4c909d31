package handler

import (
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
	toolx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/tool"
)

// base carries what every tool-using handler shares: the gateway and the
// allowlist for its task.
type base struct {
	task    contractx.TaskType
	tools   toolx.Invoker
	allowed []toolx.Name
}

func (b base) box(req contractx.HandlerRequest) *toolx.Box {
	return toolx.NewBox(b.tools, toolx.Caller{UserID: req.UserID, ThreadID: req.ThreadID}, b.allowed...)
}

func (b base) output(box *toolx.Box, reply string, payload *statex.Payload) contractx.HandlerOutput {
	out := contractx.HandlerOutput{
		Reply:    reply,
		Payload:  payload,
		TaskType: b.task,
	}
	if box != nil {
		out.ToolCalls = box.Calls()
	}
	return out
}

// referencedItem resolves an ordinal or pronoun in the utterance against the
// previous payload when it has one of the given kinds.
func referencedItem(req contractx.HandlerRequest, kinds ...statex.PayloadKind) (statex.Item, bool) {
	return resolveIn(req.Utterance, ofKind(req.LastPayload, kinds...))
}

// resolveIn tries each payload in turn and returns the first item the
// reference in text resolves to.
func resolveIn(text string, payloads ...*statex.Payload) (statex.Item, bool) {
	ref, ok := ParseReference(text)
	if !ok {
		return statex.Item{}, false
	}
	for _, p := range payloads {
		if p.Len() == 0 {
			continue
		}
		if it, ok := ref.Resolve(p); ok {
			return it, true
		}
	}
	return statex.Item{}, false
}

// ofKind returns p when it has one of the kinds, nil otherwise.
func ofKind(p *statex.Payload, kinds ...statex.PayloadKind) *statex.Payload {
	if p == nil {
		return nil
	}
	for _, k := range kinds {
		if p.Kind == k {
			return p
		}
	}
	return nil
}

// hasReference reports whether the utterance points into a previous result
// even if it cannot be resolved.
func hasReference(text string) bool {
	_, ok := ParseReference(text)
	return ok
}
