package marketplace

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/virtualmandi/mandi-backend/internal/products"
	"github.com/virtualmandi/mandi-backend/internal/requests"
	"github.com/virtualmandi/mandi-backend/pkg/enums"
	pkgerrors "github.com/virtualmandi/mandi-backend/pkg/errors"
	"github.com/virtualmandi/mandi-backend/pkg/geo"
	"github.com/virtualmandi/mandi-backend/pkg/metrics"
)

// DefaultRadiusKm bounds the nearby search when the caller supplies no radius.
const DefaultRadiusKm = 100

type productGateway interface {
	CreateProduct(ctx context.Context, sellerID uuid.UUID, input products.CreateProductInput) (*products.ProductDTO, error)
	UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, input products.UpdateProductInput) (*products.ProductDTO, error)
	DeleteProduct(ctx context.Context, sellerID, productID uuid.UUID) error
	ListAll(ctx context.Context) ([]products.ProductDTO, error)
}

type requestGateway interface {
	SendRequest(ctx context.Context, buyerID uuid.UUID, input requests.SendRequestInput) (*requests.RequestDTO, error)
	UpdateStatus(ctx context.Context, sellerID, requestID uuid.UUID, status enums.RequestStatus) (*requests.RequestDTO, error)
	ListVisibleTo(ctx context.Context, userID uuid.UUID) ([]requests.RequestDTO, error)
}

// Store caches one authenticated user's visible products and requests. The
// remote tables stay the source of truth: every mutation writes through the
// gateway and then rebuilds the whole cache, never patching it in place.
type Store struct {
	userID   uuid.UUID
	products productGateway
	requests requestGateway
	metrics  *metrics.MarketplaceMetrics

	mu             sync.RWMutex
	primed         bool
	cachedProducts []products.ProductDTO
	cachedRequests []requests.RequestDTO
}

// StoreParams bundles the dependencies required to build a Store.
type StoreParams struct {
	UserID   uuid.UUID
	Products productGateway
	Requests requestGateway
	Metrics  *metrics.MarketplaceMetrics
}

// NewStore constructs a session-scoped cache for the given user.
func NewStore(params StoreParams) (*Store, error) {
	if params.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product gateway is required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("request gateway is required")
	}
	return &Store{
		userID:   params.UserID,
		products: params.Products,
		requests: params.Requests,
		metrics:  params.Metrics,
	}, nil
}

// UserID returns the identity this cache is scoped to.
func (s *Store) UserID() uuid.UUID {
	return s.userID
}

// Refresh refetches both collections and replaces the cache wholesale. The
// two fetches run concurrently; the replace happens only when both succeed.
// Overlapping refreshes are not serialized, the last completion wins.
func (s *Store) Refresh(ctx context.Context) error {
	start := time.Now()

	var (
		productRows []products.ProductDTO
		requestRows []requests.RequestDTO
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		rows, err := s.products.ListAll(groupCtx)
		if err != nil {
			return err
		}
		productRows = rows
		return nil
	})
	group.Go(func() error {
		rows, err := s.requests.ListVisibleTo(groupCtx, s.userID)
		if err != nil {
			return err
		}
		requestRows = rows
		return nil
	})
	err := group.Wait()
	s.metrics.ObserveRefresh(time.Since(start), err)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh marketplace data")
	}

	s.mu.Lock()
	s.primed = true
	s.cachedProducts = productRows
	s.cachedRequests = requestRows
	s.mu.Unlock()
	return nil
}

// EnsurePrimed refreshes once for stores that have never loaded, which
// happens when a session outlives a process restart.
func (s *Store) EnsurePrimed(ctx context.Context) error {
	s.mu.RLock()
	primed := s.primed
	s.mu.RUnlock()
	if primed {
		return nil
	}
	return s.Refresh(ctx)
}

// AddProduct writes a new listing scoped to the caller as seller, then
// refetches the product collection.
func (s *Store) AddProduct(ctx context.Context, input products.CreateProductInput) (*products.ProductDTO, error) {
	dto, err := s.products.CreateProduct(ctx, s.userID, input)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return dto, nil
}

// UpdateProduct applies partial fields to a listing, then refetches.
func (s *Store) UpdateProduct(ctx context.Context, productID uuid.UUID, input products.UpdateProductInput) (*products.ProductDTO, error) {
	dto, err := s.products.UpdateProduct(ctx, s.userID, productID, input)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return dto, nil
}

// DeleteProduct removes a listing, then refetches.
func (s *Store) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if err := s.products.DeleteProduct(ctx, s.userID, productID); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// SendRequest creates a pending purchase request with the caller as buyer,
// then refetches.
func (s *Store) SendRequest(ctx context.Context, input requests.SendRequestInput) (*requests.RequestDTO, error) {
	dto, err := s.requests.SendRequest(ctx, s.userID, input)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return dto, nil
}

// UpdateRequestStatus applies the seller decision, then refetches.
func (s *Store) UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, status enums.RequestStatus) (*requests.RequestDTO, error) {
	dto, err := s.requests.UpdateStatus(ctx, s.userID, requestID, status)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return dto, nil
}

// GetSellerProducts filters the cache to listings owned by the seller.
// Views never fail; an empty result is an empty slice.
func (s *Store) GetSellerProducts(sellerID uuid.UUID) []products.ProductDTO {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]products.ProductDTO, 0)
	for _, product := range s.cachedProducts {
		if product.SellerID == sellerID {
			out = append(out, product)
		}
	}
	return out
}

// GetSellerRequests filters the cache to requests addressed to the seller.
func (s *Store) GetSellerRequests(sellerID uuid.UUID) []requests.RequestDTO {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]requests.RequestDTO, 0)
	for _, request := range s.cachedRequests {
		if request.SellerID == sellerID {
			out = append(out, request)
		}
	}
	return out
}

// GetBuyerRequests filters the cache to requests sent by the buyer.
func (s *Store) GetBuyerRequests(buyerID uuid.UUID) []requests.RequestDTO {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]requests.RequestDTO, 0)
	for _, request := range s.cachedRequests {
		if request.BuyerID == buyerID {
			out = append(out, request)
		}
	}
	return out
}

// GetNearbyProducts computes the distance from the given point to every
// cached listing, keeps those within maxDistanceKm, and returns them sorted
// ascending by distance. The radius is taken literally; callers that want
// the default omit it upstream, a zero radius matches only co-located points.
func (s *Store) GetNearbyProducts(lat, lng, maxDistanceKm float64) []products.ProductDTO {
	origin := geo.Point{Lat: lat, Lng: lng}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]products.ProductDTO, 0)
	for _, product := range s.cachedProducts {
		distance := geo.Distance(origin, geo.Point{Lat: product.LocationLat, Lng: product.LocationLng})
		if distance <= maxDistanceKm {
			withDistance := product
			d := distance
			withDistance.DistanceKm = &d
			out = append(out, withDistance)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return *out[i].DistanceKm < *out[j].DistanceKm
	})
	return out
}

// Snapshot returns copies of both cached collections.
func (s *Store) Snapshot() ([]products.ProductDTO, []requests.RequestDTO) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	productRows := make([]products.ProductDTO, len(s.cachedProducts))
	copy(productRows, s.cachedProducts)
	requestRows := make([]requests.RequestDTO, len(s.cachedRequests))
	copy(requestRows, s.cachedRequests)
	return productRows, requestRows
}
