package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	storex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/store"
)

const (
	defaultTimeout     = 3 * time.Second
	defaultSearchLimit = 10
)

// Invoker runs one tool call on behalf of a caller.
type Invoker interface {
	Invoke(ctx context.Context, caller Caller, args Args) Result
}

type executor func(ctx context.Context, caller Caller, args Args) (any, error)

type entry struct {
	// mutating calls run detached from caller cancellation.
	mutating bool
	exec     executor
}

type GatewayOption func(*Gateway)

func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithSearchLimit(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.searchLimit = n
		}
	}
}

func WithLogger(l zerolog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = l
	}
}

// Gateway dispatches typed tool arguments to the store through an explicit
// table. Every call is one store transaction.
type Gateway struct {
	store       storex.Store
	timeout     time.Duration
	searchLimit int
	logger      zerolog.Logger
	table       map[Name]entry
}

var _ Invoker = (*Gateway)(nil)

func NewGateway(store storex.Store, opts ...GatewayOption) (*Gateway, error) {
	if store == nil {
		return nil, errors.New("tool gateway requires a store")
	}
	g := &Gateway{
		store:       store,
		timeout:     defaultTimeout,
		searchLimit: defaultSearchLimit,
		logger:      log.Logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	g.table = map[Name]entry{
		SearchCatalog:  {exec: g.searchCatalog},
		GetCart:        {exec: g.getCart},
		ListOrders:     {exec: g.listOrders},
		AddCartLine:    {mutating: true, exec: g.addCartLine},
		RemoveCartLine: {mutating: true, exec: g.removeCartLine},
		PlaceOrder:     {mutating: true, exec: g.placeOrder},
		CancelOrder:    {mutating: true, exec: g.cancelOrder},
	}
	return g, nil
}

// Invoke validates args, runs the tool under the tool timeout and maps any
// failure to a Result error kind. It never returns a raw error or panics.
func (g *Gateway) Invoke(ctx context.Context, caller Caller, args Args) (res Result) {
	start := time.Now()
	name := Name("")
	if args != nil {
		name = args.ToolName()
	}
	defer func() {
		g.logCall(caller, name, res, time.Since(start))
	}()

	if args == nil {
		return Fail(name, KindInvalidArguments, "tool arguments are required")
	}
	if caller.UserID <= 0 {
		return Fail(name, KindInvalidArguments, "caller user id must be positive")
	}
	if err := args.Validate(); err != nil {
		return Fail(name, KindInvalidArguments, err.Error())
	}
	e, ok := g.table[name]
	if !ok {
		return Fail(name, KindInvalidArguments, fmt.Sprintf("unknown tool %q", name))
	}

	base := ctx
	if e.mutating {
		base = context.WithoutCancel(ctx)
	}
	callCtx, cancel := context.WithTimeout(base, g.timeout)
	defer cancel()

	payload, err := g.run(callCtx, e.exec, caller, args)
	if err != nil {
		if callCtx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %w", callCtx.Err(), err)
		}
		return Result{Tool: name, Err: classifyError(err)}
	}
	return Ok(name, payload)
}

func (g *Gateway) run(ctx context.Context, exec executor, caller Caller, args Args) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panic: %v", r)
		}
	}()
	return exec(ctx, caller, args)
}

func (g *Gateway) logCall(caller Caller, name Name, res Result, d time.Duration) {
	ev := g.logger.Info()
	outcome := "ok"
	if res.Err != nil {
		ev = g.logger.Warn().Str("error_kind", string(res.Err.Kind)).Str("error", res.Err.Message)
		outcome = "error"
	}
	ev.Str("tool", string(name)).
		Int64("user_id", caller.UserID).
		Str("thread_id", caller.ThreadID).
		Dur("duration", d).
		Str("outcome", outcome).
		Msg("tool call")
}

func (g *Gateway) searchCatalog(ctx context.Context, _ Caller, args Args) (any, error) {
	a, ok := args.(SearchArgs)
	if !ok {
		return nil, argsTypeError(args)
	}
	a.normalize()
	return g.store.SearchProducts(ctx, storex.SearchQuery{
		Text:          a.Query,
		MaxPriceCents: a.MaxPriceCents,
		Limit:         g.searchLimit,
	})
}

func (g *Gateway) addCartLine(ctx context.Context, c Caller, args Args) (any, error) {
	a, ok := args.(CartLineArgs)
	if !ok {
		return nil, argsTypeError(args)
	}
	return g.store.AddCartLine(ctx, c.UserID, a.ProductID, a.Quantity)
}

func (g *Gateway) removeCartLine(ctx context.Context, c Caller, args Args) (any, error) {
	a, ok := args.(CartLineArgs)
	if !ok {
		return nil, argsTypeError(args)
	}
	if a.All {
		return g.store.RemoveCartLine(ctx, c.UserID, a.ProductID, 0)
	}
	return g.store.RemoveCartLine(ctx, c.UserID, a.ProductID, a.Quantity)
}

func (g *Gateway) getCart(ctx context.Context, c Caller, _ Args) (any, error) {
	return g.store.GetCart(ctx, c.UserID)
}

func (g *Gateway) placeOrder(ctx context.Context, c Caller, _ Args) (any, error) {
	return g.store.PlaceOrder(ctx, c.UserID)
}

func (g *Gateway) listOrders(ctx context.Context, c Caller, _ Args) (any, error) {
	return g.store.ListOrders(ctx, c.UserID)
}

func (g *Gateway) cancelOrder(ctx context.Context, c Caller, args Args) (any, error) {
	a, ok := args.(CancelOrderArgs)
	if !ok {
		return nil, argsTypeError(args)
	}
	return g.store.CancelOrder(ctx, c.UserID, a.OrderID)
}

func argsTypeError(args Args) error {
	return fmt.Errorf("%w: unexpected argument type %T", ErrInvalidArguments, args)
}
