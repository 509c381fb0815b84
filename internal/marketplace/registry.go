package marketplace

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/virtualmandi/mandi-backend/internal/identity"
	pkgerrors "github.com/virtualmandi/mandi-backend/pkg/errors"
	"github.com/virtualmandi/mandi-backend/pkg/logger"
	"github.com/virtualmandi/mandi-backend/pkg/metrics"
)

type identityBootstrapper interface {
	Bootstrap(ctx context.Context, userID uuid.UUID) (*identity.Identity, error)
}

// Registry holds one Store per signed-in identity. It listens to identity
// events: a sign-in creates and primes the user's cache, a sign-out tears it
// down. Lookups for users without a live store re-resolve the session and
// build one lazily, which covers sessions that outlive a process restart.
type Registry struct {
	products   productGateway
	requests   requestGateway
	identities identityBootstrapper
	metrics    *metrics.MarketplaceMetrics
	logg       *logger.Logger

	mu     sync.Mutex
	stores map[uuid.UUID]*Store
}

// RegistryParams bundles the dependencies required to build a Registry.
type RegistryParams struct {
	Products   productGateway
	Requests   requestGateway
	Identities identityBootstrapper
	Metrics    *metrics.MarketplaceMetrics
	Logger     *logger.Logger
}

// NewRegistry constructs a store registry.
func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Products == nil {
		return nil, fmt.Errorf("product gateway is required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("request gateway is required")
	}
	if params.Identities == nil {
		return nil, fmt.Errorf("identity bootstrapper is required")
	}
	return &Registry{
		products:   params.Products,
		requests:   params.Requests,
		identities: params.Identities,
		metrics:    params.Metrics,
		logg:       params.Logger,
		stores:     map[uuid.UUID]*Store{},
	}, nil
}

// Listen consumes identity events until the context is done or the channel
// closes. Run it in its own goroutine next to the HTTP server.
func (r *Registry) Listen(ctx context.Context, events <-chan identity.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, open := <-events:
			if !open {
				return nil
			}
			r.handle(ctx, evt)
		}
	}
}

func (r *Registry) handle(ctx context.Context, evt identity.Event) {
	switch evt.Kind {
	case identity.EventSignedIn:
		store, err := r.create(evt.Identity.UserID)
		if err != nil {
			r.warn(ctx, evt.Identity.UserID, fmt.Sprintf("store create failed: %v", err))
			return
		}
		if err := store.Refresh(ctx); err != nil {
			r.warn(ctx, evt.Identity.UserID, fmt.Sprintf("initial refresh failed: %v", err))
		}
	case identity.EventSignedOut:
		r.Remove(evt.Identity.UserID)
	}
}

// GetOrCreate returns the user's store. When no store is live the persisted
// session is bootstrapped first; only a fully authenticated identity gets a
// lazily created cache.
func (r *Registry) GetOrCreate(ctx context.Context, userID uuid.UUID) (*Store, error) {
	r.mu.Lock()
	store, ok := r.stores[userID]
	r.mu.Unlock()
	if ok {
		return store, nil
	}

	resolved, err := r.identities.Bootstrap(ctx, userID)
	if err != nil {
		return nil, err
	}
	if resolved.State != identity.StateAuthenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session is not authenticated")
	}
	return r.create(userID)
}

// create builds the user's store, reusing one that raced in.
func (r *Registry) create(userID uuid.UUID) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if store, ok := r.stores[userID]; ok {
		return store, nil
	}
	store, err := NewStore(StoreParams{
		UserID:   userID,
		Products: r.products,
		Requests: r.requests,
		Metrics:  r.metrics,
	})
	if err != nil {
		return nil, err
	}
	r.stores[userID] = store
	r.metrics.SetActiveStores(len(r.stores))
	return store, nil
}

// Remove drops the user's store, releasing the session-scoped cache.
func (r *Registry) Remove(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, userID)
	r.metrics.SetActiveStores(len(r.stores))
}

// Len reports the number of live stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

func (r *Registry) warn(ctx context.Context, userID uuid.UUID, msg string) {
	if r.logg == nil {
		return
	}
	ctx = r.logg.WithUserID(ctx, userID.String())
	r.logg.Warn(ctx, msg)
}
