package handler

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/prompt"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
	storex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/store"
	toolx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/tool"
	"github.com/tanpawarit/Chative-Voice-Commerce-Router/pkg/database"
	"github.com/uptrace/bun"
)

const (
	testUser   int64 = 1
	testThread       = "thread-1"

	idRunnerShoes int64 = 1
	idMouse       int64 = 4
	idScarf       int64 = 6
	idWatch       int64 = 7
)

type fixture struct {
	db    *bun.DB
	store *storex.BunStore
	reg   contractx.Registry
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	ctx := context.Background()
	db, err := database.OpenMemory(ctx)
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s, err := storex.New(db)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	if err := s.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}
	products := append(storex.DemoCatalog(), &storex.Product{
		Name: "Smart Watch", Brand: "Tick", Description: "Fitness smart watch",
		PriceCents: 19900, Stock: 1, UnitsSold: 2, ForSale: true,
	})
	if err := s.InsertProducts(ctx, products...); err != nil {
		t.Fatalf("InsertProducts() error = %v", err)
	}

	gw, err := toolx.NewGateway(s, toolx.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	reg, err := NewRegistry(gw, opts...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return &fixture{db: db, store: s, reg: reg}
}

func request(utterance string, last *statex.Payload) contractx.HandlerRequest {
	return contractx.HandlerRequest{
		Utterance:   utterance,
		UserID:      testUser,
		ThreadID:    testThread,
		LastPayload: last,
		Decision:    contractx.RoutingDecision{Confidence: 1},
	}
}

func handle(t *testing.T, h contractx.Handler, req contractx.HandlerRequest) contractx.HandlerOutput {
	t.Helper()
	out, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle(%q) error = %v", req.Utterance, err)
	}
	if strings.TrimSpace(out.Reply) == "" {
		t.Fatalf("Handle(%q) returned empty reply", req.Utterance)
	}
	return out
}

func (f *fixture) cart(t *testing.T) storex.Cart {
	t.Helper()
	cart, err := f.store.GetCart(context.Background(), testUser)
	if err != nil {
		t.Fatalf("GetCart() error = %v", err)
	}
	return cart
}

func (f *fixture) stock(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.store.ProductByID(context.Background(), id)
	if err != nil {
		t.Fatalf("ProductByID(%d) error = %v", id, err)
	}
	return p.Stock
}

func TestCatalogSearchListsRankedProducts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out := handle(t, f.reg.Catalog(), request("search for red shoes", nil))

	if out.TaskType != contractx.TaskCatalogSearch {
		t.Fatalf("task type = %s", out.TaskType)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Tool != string(toolx.SearchCatalog) {
		t.Fatalf("tool calls = %+v, want one search_catalog", out.ToolCalls)
	}
	if args, ok := out.ToolCalls[0].Args.(toolx.SearchArgs); !ok || args.Query != "red shoes" {
		t.Fatalf("search args = %#v", out.ToolCalls[0].Args)
	}
	if out.Payload == nil || out.Payload.Kind != statex.PayloadProducts {
		t.Fatalf("payload = %+v, want products", out.Payload)
	}
	if out.Payload.Len() == 0 || out.Payload.Items[0].ProductID != idRunnerShoes {
		t.Fatalf("first product = %+v", out.Payload.Items)
	}
	if !strings.Contains(out.Reply, "1. Red Runner Shoes — $59.99 (12 in stock)") {
		t.Fatalf("reply = %q", out.Reply)
	}
}

func TestCatalogSearchNoMatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out := handle(t, f.reg.Catalog(), request("search for bananas under $5", nil))

	if !strings.Contains(out.Reply, "couldn't find") || !strings.Contains(out.Reply, "$5.00") {
		t.Fatalf("reply = %q", out.Reply)
	}
	if out.Payload == nil || out.Payload.Kind != statex.PayloadProducts || out.Payload.Len() != 0 {
		t.Fatalf("payload = %+v, want empty products", out.Payload)
	}
}

func TestSearchThenAddFirstOne(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	search := handle(t, f.reg.Catalog(), request("search for red shoes", nil))

	out := handle(t, f.reg.Cart(), request("add the first one", search.Payload))
	if !strings.Contains(out.Reply, "Added 1 x Red Runner Shoes") {
		t.Fatalf("reply = %q", out.Reply)
	}
	if out.Payload == nil || out.Payload.Kind != statex.PayloadCart {
		t.Fatalf("payload = %+v, want cart", out.Payload)
	}
	cart := f.cart(t)
	if len(cart.Items) != 1 || cart.Items[0].ProductID != idRunnerShoes || cart.Items[0].Quantity != 1 {
		t.Fatalf("cart = %+v", cart.Items)
	}
}

func TestAddOrdinalPrefersLastProductList(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	search := handle(t, f.reg.Catalog(), request("search for red shoes", nil))
	first := handle(t, f.reg.Cart(), request("add the second one", search.Payload))
	if !strings.Contains(first.Reply, "Added 1 x Trail Shoes") {
		t.Fatalf("first reply = %q", first.Reply)
	}

	req := request("add 2 of the first one", first.Payload)
	req.LastProducts = search.Payload
	out := handle(t, f.reg.Cart(), req)
	if !strings.Contains(out.Reply, "Added 2 x Red Runner Shoes") {
		t.Fatalf("reply = %q", out.Reply)
	}
}

func TestAddExplicitProductInsufficientStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out := handle(t, f.reg.Cart(), request("add product 7, quantity 2", nil))

	if out.Reply != "Insufficient stock: only 1 left of Smart Watch." {
		t.Fatalf("reply = %q", out.Reply)
	}
	if out.Payload != nil {
		t.Fatalf("payload = %+v, want nil", out.Payload)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].ErrKind != string(toolx.KindInsufficientStock) {
		t.Fatalf("tool calls = %+v", out.ToolCalls)
	}
	if cart := f.cart(t); !cart.Empty() {
		t.Fatalf("cart mutated: %+v", cart.Items)
	}
	if got := f.stock(t, idWatch); got != 1 {
		t.Fatalf("watch stock = %d, want 1", got)
	}
}

func TestAddAmbiguousPhraseAsksWhichOne(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out := handle(t, f.reg.Cart(), request("add red shoes", nil))

	if !strings.Contains(out.Reply, "Which one should I add?") {
		t.Fatalf("reply = %q", out.Reply)
	}
	if out.Payload == nil || out.Payload.Kind != statex.PayloadProducts || out.Payload.Len() < 2 {
		t.Fatalf("payload = %+v, want product choices", out.Payload)
	}
	if cart := f.cart(t); !cart.Empty() {
		t.Fatalf("cart mutated: %+v", cart.Items)
	}
}

func TestAddUnknownProduct(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out := handle(t, f.reg.Cart(), request("add product 99", nil))
	if out.Reply != "I couldn't find product 99 in the catalog." {
		t.Fatalf("reply = %q", out.Reply)
	}
}

func TestRemoveByPhrase(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.store.AddCartLine(ctx, testUser, idScarf, 1); err != nil {
		t.Fatalf("AddCartLine(scarf) error = %v", err)
	}
	if _, err := f.store.AddCartLine(ctx, testUser, idMouse, 2); err != nil {
		t.Fatalf("AddCartLine(mouse) error = %v", err)
	}

	out := handle(t, f.reg.Cart(), request("remove the scarf", nil))
	if out.Reply != "Removed Red Wool Scarf from your cart. Your cart has 2 items, subtotal $49.98." {
		t.Fatalf("reply = %q", out.Reply)
	}
	cart := f.cart(t)
	if len(cart.Items) != 1 || cart.Items[0].ProductID != idMouse {
		t.Fatalf("cart = %+v", cart.Items)
	}
}

func TestRemoveWithoutQuantityDropsWholeLine(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	for range 2 {
		if _, err := f.store.AddCartLine(ctx, testUser, idMouse, toolx.MaxQuantity); err != nil {
			t.Fatalf("AddCartLine() error = %v", err)
		}
	}

	out := handle(t, f.reg.Cart(), request("remove the wireless mouse", nil))
	if !strings.HasPrefix(out.Reply, "Removed Wireless Mouse from your cart.") {
		t.Fatalf("reply = %q", out.Reply)
	}
	if cart := f.cart(t); !cart.Empty() {
		t.Fatalf("cart = %+v, want empty", cart.Items)
	}
}

func TestRemoveOneFromCartPayload(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.store.AddCartLine(ctx, testUser, idMouse, 3); err != nil {
		t.Fatalf("AddCartLine() error = %v", err)
	}
	view := handle(t, f.reg.Cart(), request("what's in my cart", nil))
	if view.Payload == nil || view.Payload.Kind != statex.PayloadCart {
		t.Fatalf("view payload = %+v", view.Payload)
	}

	out := handle(t, f.reg.Cart(), request("remove one of the first", view.Payload))
	if !strings.HasPrefix(out.Reply, "Removed 1 x Wireless Mouse.") {
		t.Fatalf("reply = %q", out.Reply)
	}
	if cart := f.cart(t); cart.Units() != 2 {
		t.Fatalf("units = %d, want 2", cart.Units())
	}
}

func TestCartWithoutSearchIsNotAllowed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithAllowlist(contractx.TaskCart, toolx.AddCartLine, toolx.RemoveCartLine, toolx.GetCart))
	out := handle(t, f.reg.Cart(), request("add trail shoes", nil))

	if out.Reply != "I can't do that from here." {
		t.Fatalf("reply = %q", out.Reply)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].ErrKind != string(toolx.KindNotAllowed) {
		t.Fatalf("tool calls = %+v", out.ToolCalls)
	}
	if cart := f.cart(t); !cart.Empty() {
		t.Fatalf("cart mutated: %+v", cart.Items)
	}
}

func TestPlaceOrderAbortNamesLine(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.store.AddCartLine(ctx, testUser, idMouse, 2); err != nil {
		t.Fatalf("AddCartLine(mouse) error = %v", err)
	}
	if _, err := f.store.AddCartLine(ctx, testUser, idScarf, 1); err != nil {
		t.Fatalf("AddCartLine(scarf) error = %v", err)
	}
	if _, err := f.db.NewUpdate().Model((*storex.Product)(nil)).Set("stock = 0").Where("id = ?", idScarf).Exec(ctx); err != nil {
		t.Fatalf("drain scarf stock: %v", err)
	}

	out := handle(t, f.reg.Order(), request("place my order", nil))
	if !strings.Contains(out.Reply, "Red Wool Scarf is out of stock") || !strings.Contains(out.Reply, "cart is untouched") {
		t.Fatalf("reply = %q", out.Reply)
	}
	if out.Payload != nil {
		t.Fatalf("payload = %+v, want nil", out.Payload)
	}
	if cart := f.cart(t); len(cart.Items) != 2 {
		t.Fatalf("cart = %+v, want both lines kept", cart.Items)
	}
	if got := f.stock(t, idMouse); got != 200 {
		t.Fatalf("mouse stock = %d, want 200", got)
	}
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out := handle(t, f.reg.Order(), request("checkout", nil))
	if out.Reply != emptyCartReply {
		t.Fatalf("reply = %q", out.Reply)
	}
	for _, c := range out.ToolCalls {
		if c.Tool == string(toolx.PlaceOrder) {
			t.Fatalf("place_order called on empty cart")
		}
	}
}

func TestPlaceListAndCancelOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.store.AddCartLine(ctx, testUser, idRunnerShoes, 2); err != nil {
		t.Fatalf("AddCartLine() error = %v", err)
	}

	placed := handle(t, f.reg.Order(), request("place my order", nil))
	if placed.Payload == nil || placed.Payload.Kind != statex.PayloadOrder {
		t.Fatalf("placed payload = %+v", placed.Payload)
	}
	if !strings.Contains(placed.Reply, "2 x Red Runner Shoes") || !strings.Contains(placed.Reply, "$119.98") {
		t.Fatalf("placed reply = %q", placed.Reply)
	}
	if got := f.stock(t, idRunnerShoes); got != 10 {
		t.Fatalf("stock after order = %d, want 10", got)
	}
	orderID := placed.Payload.Items[0].OrderID

	listed := handle(t, f.reg.Order(), request("show my orders", nil))
	if listed.Payload == nil || listed.Payload.Kind != statex.PayloadOrders || listed.Payload.Len() != 1 {
		t.Fatalf("listed payload = %+v", listed.Payload)
	}

	cancelled := handle(t, f.reg.Order(), request("cancel it", placed.Payload))
	if !strings.Contains(cancelled.Reply, "is cancelled") {
		t.Fatalf("cancel reply = %q", cancelled.Reply)
	}
	if cancelled.Payload == nil || cancelled.Payload.Items[0].Status != string(storex.OrderCancelled) {
		t.Fatalf("cancel payload = %+v", cancelled.Payload)
	}
	if got := f.stock(t, idRunnerShoes); got != 12 {
		t.Fatalf("stock after cancel = %d, want 12", got)
	}

	again := handle(t, f.reg.Order(), request("cancel the first one", listed.Payload))
	if !strings.Contains(again.Reply, "can no longer be cancelled") {
		t.Fatalf("second cancel reply = %q", again.Reply)
	}
	if len(again.ToolCalls) != 1 {
		t.Fatalf("tool calls = %+v", again.ToolCalls)
	}
	if args, ok := again.ToolCalls[0].Args.(toolx.CancelOrderArgs); !ok || args.OrderID != orderID {
		t.Fatalf("cancel args = %#v", again.ToolCalls[0].Args)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out := handle(t, f.reg.Order(), request("cancel order 42", nil))
	if out.Reply != "I couldn't find order #42 on your account." {
		t.Fatalf("reply = %q", out.Reply)
	}
}

func TestListOrdersEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out := handle(t, f.reg.Order(), request("show my orders", nil))
	if out.Reply != "You have no orders yet." {
		t.Fatalf("reply = %q", out.Reply)
	}
}

func TestGeneralHandler(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	help := strings.TrimSpace(f.reg.General().(*generalHandler).help)

	tests := []struct {
		name     string
		req      contractx.HandlerRequest
		contains string
	}{
		{"greeting", request("hello there", nil), "What can I find"},
		{"thanks", request("thanks a lot", nil), "You're welcome"},
		{"help", request("what can you do", nil), help},
		{"fallback", contractx.HandlerRequest{Utterance: "blorp", Decision: contractx.GeneralFallback("parse")}, fallbackApology},
	}
	for _, tc := range tests {
		out := handle(t, f.reg.General(), tc.req)
		if !strings.Contains(out.Reply, tc.contains) {
			t.Fatalf("%s: reply = %q, want it to contain %q", tc.name, out.Reply, tc.contains)
		}
		if out.TaskType != contractx.TaskGeneral || out.Payload != nil || len(out.ToolCalls) != 0 {
			t.Fatalf("%s: output = %+v", tc.name, out)
		}
	}
}

func TestNewRegistryRequiresGateway(t *testing.T) {
	t.Parallel()

	if _, err := NewRegistry(nil); err == nil {
		t.Fatalf("NewRegistry(nil) error = nil")
	}
	if _, err := NewRegistry(&toolx.Gateway{}, WithPrompts(promptx.PromptSet{})); err == nil {
		t.Fatalf("NewRegistry() with empty help error = nil")
	}
}
