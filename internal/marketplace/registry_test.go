package marketplace

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/virtualmandi/mandi-backend/internal/identity"
	"github.com/virtualmandi/mandi-backend/internal/products"
	pkgerrors "github.com/virtualmandi/mandi-backend/pkg/errors"
)

type fakeBootstrapper struct {
	state identity.State
	err   error
	calls int
}

func (f *fakeBootstrapper) Bootstrap(_ context.Context, userID uuid.UUID) (*identity.Identity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	state := f.state
	if state == "" {
		state = identity.StateAuthenticated
	}
	return &identity.Identity{UserID: userID, State: state}, nil
}

func newTestRegistry(t *testing.T, productGw *fakeProductGateway) *Registry {
	t.Helper()
	return newTestRegistryWithBootstrap(t, productGw, &fakeBootstrapper{})
}

func newTestRegistryWithBootstrap(t *testing.T, productGw *fakeProductGateway, boot *fakeBootstrapper) *Registry {
	t.Helper()
	if productGw == nil {
		productGw = &fakeProductGateway{}
	}
	registry, err := NewRegistry(RegistryParams{
		Products:   productGw,
		Requests:   &fakeRequestGateway{},
		Identities: boot,
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return registry
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRegistrySignInPrimesStore(t *testing.T) {
	userID := uuid.New()
	sellerID := uuid.New()
	productGw := &fakeProductGateway{rows: []products.ProductDTO{productAt(sellerID, 10, 10)}}
	registry := newTestRegistry(t, productGw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan identity.Event, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = registry.Listen(ctx, events)
	}()

	events <- identity.Event{
		Kind:     identity.EventSignedIn,
		Identity: identity.Identity{UserID: userID, State: identity.StateAuthenticated},
	}

	waitFor(t, func() bool { return registry.Len() == 1 }, "store not created on sign-in")

	store, err := registry.GetOrCreate(ctx, userID)
	if err != nil {
		t.Fatalf("get store: %v", err)
	}
	waitFor(t, func() bool {
		rows, _ := store.Snapshot()
		return len(rows) == 1
	}, "store not primed with product data")

	events <- identity.Event{
		Kind:     identity.EventSignedOut,
		Identity: identity.Identity{UserID: userID, State: identity.StateUnauthenticated},
	}
	waitFor(t, func() bool { return registry.Len() == 0 }, "store not removed on sign-out")

	close(events)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop on channel close")
	}
}

func TestRegistryLazyGetOrCreate(t *testing.T) {
	boot := &fakeBootstrapper{}
	registry := newTestRegistryWithBootstrap(t, nil, boot)
	userID := uuid.New()

	store, err := registry.GetOrCreate(context.Background(), userID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if store.UserID() != userID {
		t.Fatal("store scoped to wrong user")
	}

	again, err := registry.GetOrCreate(context.Background(), userID)
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if again != store {
		t.Fatal("expected the same store on repeat lookup")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one store, got %d", registry.Len())
	}
	if boot.calls != 1 {
		t.Fatalf("expected a single bootstrap, got %d", boot.calls)
	}
}

func TestRegistryLazyLookupRejectsUnresolvedSession(t *testing.T) {
	boot := &fakeBootstrapper{state: identity.StateAuthenticatedNoProfile}
	registry := newTestRegistryWithBootstrap(t, nil, boot)

	_, err := registry.GetOrCreate(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected no store, got %d", registry.Len())
	}
}

func TestRegistryListenStopsOnContextCancel(t *testing.T) {
	registry := newTestRegistry(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	events := make(chan identity.Event)
	errs := make(chan error, 1)
	go func() {
		errs <- registry.Listen(ctx, events)
	}()

	cancel()
	select {
	case err := <-errs:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop on cancel")
	}
}
