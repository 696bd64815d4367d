package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/go-chat-orders/internal/catalog"
	"github.com/ariefcatur/go-chat-orders/internal/conversation"
	"github.com/ariefcatur/go-chat-orders/internal/handler"
	"github.com/ariefcatur/go-chat-orders/internal/intent"
)

// fixed always answers with the same classification.
func fixed(l intent.Label, conf float64) intent.Classifier {
	return intent.ClassifierFunc(func(context.Context, string, conversation.Context) (intent.Classification, error) {
		return intent.Classification{Label: l, Confidence: conf}, nil
	})
}

// named replies with its own name so tests can see which handler ran.
func named(name string, patch conversation.Patch) handler.Handler {
	return handler.Func(func(_ context.Context, req handler.Request) (handler.Reply, conversation.Patch, error) {
		return handler.Reply{Title: name + ":" + req.Text}, patch, nil
	})
}

func testHandlers() Handlers {
	return Handlers{
		Stock:    named("stock", conversation.Patch{}),
		Order:    named("order", conversation.Patch{}),
		Modify:   named("modify", conversation.Patch{}),
		Advisory: named("advisory", conversation.Patch{}),
		Fallback: named("fallback", conversation.Patch{}),
	}
}

func TestRoute_DispatchesEveryLabel(t *testing.T) {
	want := map[intent.Label]string{
		intent.CheckStock:   "stock",
		intent.CreateOrder:  "order",
		intent.ModifyOrder:  "modify",
		intent.Advisory:     "advisory",
		intent.Unrecognized: "fallback",
	}
	for _, l := range intent.Labels {
		r := NewRouter(fixed(l, 0.9), conversation.NewMemoryStore(0), testHandlers(), 0.5, nil)
		res, err := r.Route(context.Background(), "u1", "hola")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(res.Reply.Title, want[l]+":") || res.Label != l {
			t.Fatalf("label %s went to %q", l, res.Reply.Title)
		}
		if res.Context.LastIntent != string(l) {
			t.Fatalf("last intent = %q", res.Context.LastIntent)
		}
	}
}

func TestRoute_LowConfidenceFallsBack(t *testing.T) {
	r := NewRouter(fixed(intent.CreateOrder, 0.3), conversation.NewMemoryStore(0), testHandlers(), 0.5, nil)
	res, _ := r.Route(context.Background(), "u1", "mmm")
	if res.Label != intent.Unrecognized || !strings.HasPrefix(res.Reply.Title, "fallback:") {
		t.Fatalf("result = %+v", res)
	}
}

func TestRoute_AttributeOnlyRefinesRememberedFilter(t *testing.T) {
	store := conversation.NewMemoryStore(0)
	ctx := context.Background()
	_, _ = store.Update(ctx, "u1", conversation.WithFilter(catalog.Filter{Type: "camiseta", Color: "rojo"}))

	r := NewRouter(fixed(intent.Unrecognized, 0.3), store, testHandlers(), 0.5, nil)
	res, _ := r.Route(ctx, "u1", "y en azul?")
	if !res.Refined || res.Label != intent.CheckStock || !strings.HasPrefix(res.Reply.Title, "stock:") {
		t.Fatalf("result = %+v", res)
	}

	// no remembered filter: same message falls back
	res, _ = r.Route(ctx, "u2", "y en azul?")
	if res.Refined || res.Label != intent.Unrecognized {
		t.Fatalf("refined without context: %+v", res)
	}
}

func TestRoute_ClassifierFailureUsesFallback(t *testing.T) {
	failing := intent.ClassifierFunc(func(context.Context, string, conversation.Context) (intent.Classification, error) {
		return intent.Classification{}, errors.New("boom")
	})
	slow := intent.WithTimeout(intent.ClassifierFunc(func(ctx context.Context, _ string, _ conversation.Context) (intent.Classification, error) {
		<-ctx.Done()
		return intent.Classification{}, ctx.Err()
	}), 5*time.Millisecond)

	for _, c := range []intent.Classifier{failing, slow} {
		r := NewRouter(c, conversation.NewMemoryStore(0), testHandlers(), 0.5, nil)
		res, err := r.Route(context.Background(), "u1", "quiero 100 camisetas")
		if err != nil {
			t.Fatalf("classifier failure surfaced: %v", err)
		}
		if !res.Unavailable || !strings.HasPrefix(res.Reply.Title, "fallback:") {
			t.Fatalf("result = %+v", res)
		}
	}
}

func TestRoute_HandlerErrorApologises(t *testing.T) {
	h := testHandlers()
	h.Stock = handler.Func(func(context.Context, handler.Request) (handler.Reply, conversation.Patch, error) {
		return handler.Reply{}, conversation.WithOrder("bogus"), errors.New("db down")
	})
	r := NewRouter(fixed(intent.CheckStock, 0.9), conversation.NewMemoryStore(0), h, 0.5, nil)
	res, err := r.Route(context.Background(), "u1", "stock")
	if err != nil {
		t.Fatal(err)
	}
	if res.Reply.Title != handler.Apology().Title || res.Context.LastOrderID != "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestRoute_PatchIsMergedPerField(t *testing.T) {
	store := conversation.NewMemoryStore(0)
	ctx := context.Background()
	_, _ = store.Update(ctx, "u1", conversation.WithFilter(catalog.Filter{Type: "falda"}))

	h := testHandlers()
	h.Order = named("order", conversation.WithOrder("o-7"))
	r := NewRouter(fixed(intent.CreateOrder, 0.9), store, h, 0.5, nil)
	res, _ := r.Route(ctx, "u1", "quiero 60")
	if res.Context.LastOrderID != "o-7" || res.Context.LastFilter.Type != "falda" || res.Context.LastIntent != "create_order" {
		t.Fatalf("context = %+v", res.Context)
	}
}

type countingObserver struct{ n atomic.Int32 }

func (c *countingObserver) ObserveRoute(string, float64, bool, bool, time.Duration) { c.n.Add(1) }

type memRecorder struct {
	mu   sync.Mutex
	seen []string
}

func (m *memRecorder) Record(_ context.Context, userID, text string, _ Result) error {
	m.mu.Lock()
	m.seen = append(m.seen, userID+":"+text)
	m.mu.Unlock()
	return nil
}

func TestDispatcher_SerialisesPerUser(t *testing.T) {
	var inFlight sync.Map
	var overlap, parallel atomic.Bool
	var active atomic.Int32
	slow := handler.Func(func(_ context.Context, req handler.Request) (handler.Reply, conversation.Patch, error) {
		if _, busy := inFlight.LoadOrStore(req.UserID, true); busy {
			overlap.Store(true)
		}
		if active.Add(1) > 1 {
			parallel.Store(true)
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
		inFlight.Delete(req.UserID)
		return handler.Reply{Title: "ok"}, conversation.Patch{}, nil
	})
	h := Handlers{Stock: slow, Order: slow, Modify: slow, Advisory: slow, Fallback: slow}
	obs := &countingObserver{}
	rec := &memRecorder{}
	r := NewRouter(fixed(intent.CheckStock, 0.9), conversation.NewMemoryStore(0), h, 0.5, nil).WithObserver(obs)
	d := NewDispatcher(r, rec)

	var wg sync.WaitGroup
	for u := 0; u < 4; u++ {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(user string, i int) {
				defer wg.Done()
				if _, err := d.Dispatch(context.Background(), user, fmt.Sprint(i)); err != nil {
					t.Errorf("dispatch: %v", err)
				}
			}(fmt.Sprintf("u%d", u), i)
		}
	}
	wg.Wait()
	d.Close()

	if overlap.Load() {
		t.Fatalf("two messages of one user were handled at once")
	}
	if !parallel.Load() {
		t.Fatalf("different users never ran in parallel")
	}
	if obs.n.Load() != 40 || len(rec.seen) != 40 {
		t.Fatalf("observed %d, recorded %d", obs.n.Load(), len(rec.seen))
	}
}

func TestDispatcher_ArrivalOrderPerUser(t *testing.T) {
	var mu sync.Mutex
	var order []string
	h := handler.Func(func(_ context.Context, req handler.Request) (handler.Reply, conversation.Patch, error) {
		mu.Lock()
		order = append(order, req.Text)
		mu.Unlock()
		return handler.Reply{}, conversation.Patch{}, nil
	})
	r := NewRouter(fixed(intent.CheckStock, 0.9), conversation.NewMemoryStore(0), Handlers{Stock: h}, 0.5, nil)
	d := NewDispatcher(r, nil)
	for i := 0; i < 20; i++ {
		if _, err := d.Dispatch(context.Background(), "u1", fmt.Sprint(i)); err != nil {
			t.Fatal(err)
		}
	}
	d.Close()
	for i, got := range order {
		if got != fmt.Sprint(i) {
			t.Fatalf("order = %v", order)
		}
	}
}
