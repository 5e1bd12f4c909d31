package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/agents/classifier"
	"github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/agents/handler"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	nodex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/nodes"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
	storex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/store"
	toolx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/tool"
	"github.com/tanpawarit/Chative-Voice-Commerce-Router/pkg/database"
)

type fakeStore struct {
	mu      sync.Mutex
	mem     *statex.MemoryStore
	loadErr error
	saveErr error
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{mem: statex.NewMemoryStore()}
}

func (f *fakeStore) Load(ctx context.Context, threadID string) (*statex.Session, error) {
	f.mu.Lock()
	loadErr := f.loadErr
	f.mu.Unlock()
	if loadErr != nil {
		return nil, loadErr
	}
	return f.mem.Load(ctx, threadID)
}

func (f *fakeStore) Save(ctx context.Context, s *statex.Session) error {
	f.mu.Lock()
	f.saves++
	saveErr := f.saveErr
	f.mu.Unlock()
	if saveErr != nil {
		return saveErr
	}
	return f.mem.Save(ctx, s)
}

type fakeClassifier struct {
	task contractx.TaskType
}

func (f fakeClassifier) Classify(context.Context, string, []statex.Turn) contractx.RoutingDecision {
	return contractx.RoutingDecision{TaskType: f.task, Confidence: 1}
}

type fakeHandler struct {
	reply   string
	payload *statex.Payload
	panics  bool
	delay   time.Duration

	active  atomic.Int32
	overlap atomic.Bool
	calls   atomic.Int32
}

func (f *fakeHandler) Handle(_ context.Context, req contractx.HandlerRequest) (contractx.HandlerOutput, error) {
	f.calls.Add(1)
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.active.Add(-1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panics {
		panic("handler exploded")
	}
	return contractx.HandlerOutput{Reply: f.reply, Payload: f.payload, TaskType: req.Decision.TaskType}, nil
}

type fakeRegistry struct {
	h contractx.Handler
}

func (f fakeRegistry) Catalog() contractx.Handler { return f.h }
func (f fakeRegistry) Cart() contractx.Handler    { return f.h }
func (f fakeRegistry) Order() contractx.Handler   { return f.h }
func (f fakeRegistry) General() contractx.Handler { return f.h }

func newTestOrchestrator(t *testing.T, store statex.Store, c contractx.Classifier, reg contractx.Registry) *Orchestrator {
	t.Helper()
	o, err := New(store, c, reg, WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func newShopOrchestrator(t *testing.T, store statex.Store) (*Orchestrator, *storex.BunStore) {
	t.Helper()

	ctx := context.Background()
	db, err := database.OpenMemory(ctx)
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	shop, err := storex.New(db)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	if err := shop.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}
	products := append(storex.DemoCatalog(), &storex.Product{
		Name: "Smart Watch", Description: "Fitness smart watch", PriceCents: 19900, Stock: 1, ForSale: true,
	})
	if err := shop.InsertProducts(ctx, products...); err != nil {
		t.Fatalf("InsertProducts() error = %v", err)
	}

	gw, err := toolx.NewGateway(shop, toolx.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	reg, err := handler.NewRegistry(gw)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return newTestOrchestrator(t, store, classifier.NewKeywordClassifier(), reg), shop
}

func TestProcessTurnInvalidInput(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, newFakeStore(), fakeClassifier{task: contractx.TaskGeneral}, fakeRegistry{h: &fakeHandler{reply: "hi"}})

	tests := []struct {
		name     string
		threadID string
		userID   int64
		text     string
		want     error
	}{
		{"empty thread", "  ", 1, "hello", ErrInvalidThread},
		{"bad user", "t-1", 0, "hello", ErrInvalidUser},
		{"empty utterance", "t-1", 1, "   ", ErrInvalidMessage},
	}
	for _, tc := range tests {
		if _, err := o.ProcessTurn(context.Background(), tc.threadID, tc.userID, tc.text); !errors.Is(err, tc.want) {
			t.Fatalf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestProcessTurnSearchThenAddFirstOne(t *testing.T) {
	t.Parallel()

	sessions := newFakeStore()
	o, shop := newShopOrchestrator(t, sessions)
	ctx := context.Background()

	first, err := o.ProcessTurn(ctx, "thread-a", 1, "search for red shoes")
	if err != nil {
		t.Fatalf("ProcessTurn(search) error = %v", err)
	}
	if first.TaskType != contractx.TaskCatalogSearch || first.Payload == nil || first.Payload.Kind != statex.PayloadProducts {
		t.Fatalf("first turn = %+v", first)
	}

	second, err := o.ProcessTurn(ctx, "thread-a", 1, "add the first one")
	if err != nil {
		t.Fatalf("ProcessTurn(add) error = %v", err)
	}
	if second.TaskType != contractx.TaskCart || !strings.Contains(second.Reply, "Red Runner Shoes") {
		t.Fatalf("second turn = %+v", second)
	}
	if second.SessionID != first.SessionID {
		t.Fatalf("session id changed: %s -> %s", first.SessionID, second.SessionID)
	}

	cart, err := shop.GetCart(ctx, 1)
	if err != nil {
		t.Fatalf("GetCart() error = %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != 1 {
		t.Fatalf("cart = %+v", cart.Items)
	}

	sess, err := sessions.mem.Load(ctx, "thread-a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sess.History) != 4 || sess.Version != 2 {
		t.Fatalf("session history=%d version=%d, want 4 and 2", len(sess.History), sess.Version)
	}
	if sess.LastTaskType != contractx.TaskCart.String() || sess.LastPayload.Kind != statex.PayloadCart {
		t.Fatalf("session tail = %s %+v", sess.LastTaskType, sess.LastPayload)
	}
}

func TestProcessTurnOrdinalsKeepPointingAtSearchResults(t *testing.T) {
	t.Parallel()

	sessions := newFakeStore()
	o, shop := newShopOrchestrator(t, sessions)
	ctx := context.Background()

	turns := []struct {
		text string
		want string
	}{
		{"search for red shoes", "Red Runner Shoes"},
		{"add the second one", "Added 1 x Trail Shoes"},
		{"add 2 of the first one", "Added 2 x Red Runner Shoes"},
	}
	for _, turn := range turns {
		out, err := o.ProcessTurn(ctx, "thread-f", 1, turn.text)
		if err != nil {
			t.Fatalf("ProcessTurn(%q) error = %v", turn.text, err)
		}
		if !strings.Contains(out.Reply, turn.want) {
			t.Fatalf("ProcessTurn(%q) reply = %q, want %q", turn.text, out.Reply, turn.want)
		}
	}

	cart, err := shop.GetCart(ctx, 1)
	if err != nil {
		t.Fatalf("GetCart() error = %v", err)
	}
	got := map[int64]int{}
	for _, it := range cart.Items {
		got[it.ProductID] = it.Quantity
	}
	if len(got) != 2 || got[1] != 2 || got[2] != 1 {
		t.Fatalf("cart = %+v, want 2 x runner and 1 x trail", cart.Items)
	}

	sess, err := sessions.mem.Load(ctx, "thread-f")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sess.LastPayload.Kind != statex.PayloadCart || sess.LastProducts.Len() == 0 || sess.LastProducts.Kind != statex.PayloadProducts {
		t.Fatalf("session payloads = %+v / %+v", sess.LastPayload, sess.LastProducts)
	}
}

func TestProcessTurnInsufficientStockIsRecorded(t *testing.T) {
	t.Parallel()

	sessions := newFakeStore()
	o, shop := newShopOrchestrator(t, sessions)
	ctx := context.Background()

	out, err := o.ProcessTurn(ctx, "thread-b", 1, "add product 7, quantity 2")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if out.TaskType != contractx.TaskCart || !strings.Contains(out.Reply, "Insufficient stock: only 1 left") {
		t.Fatalf("turn = %+v", out)
	}
	if cart, _ := shop.GetCart(ctx, 1); !cart.Empty() {
		t.Fatalf("cart mutated: %+v", cart.Items)
	}
	sess, err := sessions.mem.Load(ctx, "thread-b")
	if err != nil || len(sess.History) != 2 {
		t.Fatalf("Load() = %+v, %v", sess, err)
	}
}

func TestProcessTurnThreadOwner(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, newFakeStore(), fakeClassifier{task: contractx.TaskGeneral}, fakeRegistry{h: &fakeHandler{reply: "hi"}})
	if _, err := o.ProcessTurn(context.Background(), "thread-c", 1, "hello"); err != nil {
		t.Fatalf("first turn error = %v", err)
	}
	if _, err := o.ProcessTurn(context.Background(), "thread-c", 2, "hello"); !errors.Is(err, ErrThreadOwner) {
		t.Fatalf("foreign user error = %v, want ErrThreadOwner", err)
	}
}

func TestProcessTurnHandlerPanicStillPersists(t *testing.T) {
	t.Parallel()

	sessions := newFakeStore()
	o := newTestOrchestrator(t, sessions, fakeClassifier{task: contractx.TaskCart}, fakeRegistry{h: &fakeHandler{panics: true}})

	out, err := o.ProcessTurn(context.Background(), "thread-d", 1, "add stuff")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if out.Reply != nodex.ApologyReply || out.TaskType != contractx.TaskGeneral || out.Payload != nil || !out.Degraded {
		t.Fatalf("turn = %+v", out)
	}

	sess, err := sessions.mem.Load(context.Background(), "thread-d")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sess.History) != 2 || sess.History[0].Text != "add stuff" || sess.History[1].Text != nodex.ApologyReply {
		t.Fatalf("history = %+v", sess.History)
	}
}

func TestProcessTurnSaveFailureStillReplies(t *testing.T) {
	t.Parallel()

	sessions := newFakeStore()
	sessions.saveErr = errors.New("redis unavailable")
	o := newTestOrchestrator(t, sessions, fakeClassifier{task: contractx.TaskGeneral}, fakeRegistry{h: &fakeHandler{reply: "Hello!"}})

	out, err := o.ProcessTurn(context.Background(), "thread-e", 1, "hi")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if out.Reply != "Hello!" {
		t.Fatalf("reply = %q", out.Reply)
	}
	if sessions.saves != 1 {
		t.Fatalf("saves = %d, want 1", sessions.saves)
	}
}

func TestProcessTurnLoadFailureUsesTransientSession(t *testing.T) {
	t.Parallel()

	sessions := newFakeStore()
	sessions.loadErr = errors.New("redis unavailable")
	o := newTestOrchestrator(t, sessions, fakeClassifier{task: contractx.TaskGeneral}, fakeRegistry{h: &fakeHandler{reply: "Hello!"}})

	out, err := o.ProcessTurn(context.Background(), "thread-f", 1, "hi")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if out.Reply != "Hello!" || out.SessionID == "" {
		t.Fatalf("turn = %+v", out)
	}
	if sessions.saves != 0 {
		t.Fatalf("transient session saved %d times", sessions.saves)
	}
}

func TestProcessTurnSerialisesSameThread(t *testing.T) {
	t.Parallel()

	sessions := newFakeStore()
	h := &fakeHandler{reply: "ok", delay: 20 * time.Millisecond}
	o := newTestOrchestrator(t, sessions, fakeClassifier{task: contractx.TaskGeneral}, fakeRegistry{h: h})

	const turns = 5
	var wg sync.WaitGroup
	errs := make(chan error, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.ProcessTurn(context.Background(), "thread-g", 1, "hi"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("ProcessTurn() error = %v", err)
	}

	if h.overlap.Load() {
		t.Fatalf("turns for the same thread overlapped")
	}
	sess, err := sessions.mem.Load(context.Background(), "thread-g")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sess.History) != 2*turns || sess.Version != turns {
		t.Fatalf("history=%d version=%d, want %d and %d", len(sess.History), sess.Version, 2*turns, turns)
	}
	if n := o.locks.size(); n != 0 {
		t.Fatalf("lock entries left = %d", n)
	}
}

func TestProcessTurnLockWaitHonoursContext(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, newFakeStore(), fakeClassifier{task: contractx.TaskGeneral}, fakeRegistry{h: &fakeHandler{reply: "ok"}})

	unlock, err := o.locks.acquire(context.Background(), "thread-h")
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := o.ProcessTurn(ctx, "thread-h", 1, "hi"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}
