package tool

import (
	"context"
	"fmt"
	"sync"

	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
)

// Box scopes an Invoker to one caller and an allowlist of tools, and records
// every call made through it.
type Box struct {
	inv     Invoker
	caller  Caller
	allowed []Name

	mu    sync.Mutex
	calls []contractx.ToolCall
}

func NewBox(inv Invoker, caller Caller, allowed ...Name) *Box {
	return &Box{
		inv:     inv,
		caller:  caller,
		allowed: append([]Name(nil), allowed...),
	}
}

func (b *Box) Allows(name Name) bool {
	for _, n := range b.allowed {
		if n == name {
			return true
		}
	}
	return false
}

// Call invokes the tool if it is allowlisted; otherwise it fails with
// KindNotAllowed without reaching the store.
func (b *Box) Call(ctx context.Context, args Args) Result {
	var res Result
	switch {
	case args == nil:
		res = Fail("", KindInvalidArguments, "tool arguments are required")
	case !b.Allows(args.ToolName()):
		res = Fail(args.ToolName(), KindNotAllowed, fmt.Sprintf("tool %s is not available here", args.ToolName()))
	case b.inv == nil:
		res = Fail(args.ToolName(), KindStoreError, "no tool gateway configured")
	default:
		res = b.inv.Invoke(ctx, b.caller, args)
	}
	b.record(args, res)
	return res
}

// Calls returns the calls made so far.
func (b *Box) Calls() []contractx.ToolCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]contractx.ToolCall(nil), b.calls...)
}

func (b *Box) record(args Args, res Result) {
	call := contractx.ToolCall{Tool: string(res.Tool), Args: args, Result: res.Payload}
	if res.Err != nil {
		call.ErrKind = string(res.Err.Kind)
		call.Error = res.Err.Message
	}
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}
