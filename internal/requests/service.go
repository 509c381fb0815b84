package requests

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/virtualmandi/mandi-backend/pkg/db/models"
	"github.com/virtualmandi/mandi-backend/pkg/enums"
	pkgerrors "github.com/virtualmandi/mandi-backend/pkg/errors"
)

// Service exposes buyer request creation and seller decisions.
type Service interface {
	SendRequest(ctx context.Context, buyerID uuid.UUID, input SendRequestInput) (*RequestDTO, error)
	UpdateStatus(ctx context.Context, sellerID, requestID uuid.UUID, status enums.RequestStatus) (*RequestDTO, error)
	ListVisibleTo(ctx context.Context, userID uuid.UUID) ([]RequestDTO, error)
}

// SendRequestInput holds the payload to create a purchase request. The seller
// identifier is resolved from the product, never trusted from the caller.
type SendRequestInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

type requestRepository interface {
	Create(ctx context.Context, request *models.PurchaseRequest) (*models.PurchaseRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.RequestStatus) error
	ListVisibleTo(ctx context.Context, userID uuid.UUID) ([]RequestWithBuyer, error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type buyerNameReader interface {
	NameByUserID(ctx context.Context, userID uuid.UUID) (string, error)
}

// service implements the purchase request service.
type service struct {
	repo     requestRepository
	products productLoader
	profiles buyerNameReader
}

// NewService constructs a purchase request service instance.
func NewService(repo requestRepository, productRepo productLoader, profileRepo buyerNameReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("request repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if profileRepo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	return &service{repo: repo, products: productRepo, profiles: profileRepo}, nil
}

// SendRequest creates a pending request against the referenced product. The
// same buyer may hold any number of open requests on one product; hiding the
// action once a request exists is a presentation concern.
func (s *service) SendRequest(ctx context.Context, buyerID uuid.UUID, input SendRequestInput) (*RequestDTO, error) {
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup product")
	}
	if product.SellerID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot request your own product")
	}

	request := &models.PurchaseRequest{
		ProductID: product.ID,
		BuyerID:   buyerID,
		SellerID:  product.SellerID,
		Quantity:  input.Quantity,
		Status:    enums.RequestStatusPending,
	}
	created, err := s.repo.Create(ctx, request)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create request")
	}

	dto := FromModel(created)
	dto.Product = nil
	if name, nameErr := s.profiles.NameByUserID(ctx, buyerID); nameErr == nil {
		dto.BuyerName = name
	}
	return dto, nil
}

// UpdateStatus applies a seller decision. Only the owning seller may decide,
// and only a pending request may move, into accepted or rejected.
func (s *service) UpdateStatus(ctx context.Context, sellerID, requestID uuid.UUID, status enums.RequestStatus) (*RequestDTO, error) {
	if !status.IsValid() || !status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid decision %q", status))
	}

	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup request")
	}
	if request.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another seller")
	}
	if !request.Status.CanTransitionTo(status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("request is already %s", request.Status))
	}

	if err := s.repo.UpdateStatus(ctx, request.ID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update request status")
	}
	request.Status = status
	dto := FromModel(request)
	dto.Product = nil
	return dto, nil
}

// ListVisibleTo returns every request the user participates in, joined with
// the buyer name and product snapshot.
func (s *service) ListVisibleTo(ctx context.Context, userID uuid.UUID) ([]RequestDTO, error) {
	rows, err := s.repo.ListVisibleTo(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list requests")
	}
	dtos := make([]RequestDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, *FromJoinedRow(row))
	}
	return dtos, nil
}
