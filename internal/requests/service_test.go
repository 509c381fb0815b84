package requests

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/virtualmandi/mandi-backend/pkg/db/models"
	"github.com/virtualmandi/mandi-backend/pkg/enums"
	pkgerrors "github.com/virtualmandi/mandi-backend/pkg/errors"
)

type fakeRequestRepo struct {
	rows map[uuid.UUID]*models.PurchaseRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{rows: map[uuid.UUID]*models.PurchaseRequest{}}
}

func (f *fakeRequestRepo) Create(_ context.Context, request *models.PurchaseRequest) (*models.PurchaseRequest, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	f.rows[request.ID] = request
	return request, nil
}

func (f *fakeRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*models.PurchaseRequest, error) {
	request, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *request
	return &copied, nil
}

func (f *fakeRequestRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.RequestStatus) error {
	f.rows[id].Status = status
	return nil
}

func (f *fakeRequestRepo) ListVisibleTo(_ context.Context, userID uuid.UUID) ([]RequestWithBuyer, error) {
	var rows []RequestWithBuyer
	for _, request := range f.rows {
		if request.BuyerID == userID || request.SellerID == userID {
			rows = append(rows, RequestWithBuyer{PurchaseRequest: *request, BuyerName: "Buyer"})
		}
	}
	return rows, nil
}

type fakeProductLoader struct {
	rows map[uuid.UUID]*models.Product
}

func (f *fakeProductLoader) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

type fakeBuyerNames struct{}

func (fakeBuyerNames) NameByUserID(context.Context, uuid.UUID) (string, error) {
	return "Buyer", nil
}

func newTestService(t *testing.T, repo *fakeRequestRepo, productRows map[uuid.UUID]*models.Product) Service {
	t.Helper()
	svc, err := NewService(repo, &fakeProductLoader{rows: productRows}, fakeBuyerNames{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedProduct(sellerID uuid.UUID) *models.Product {
	return &models.Product{
		ID:           uuid.New(),
		SellerID:     sellerID,
		CropName:     "Tomato",
		Quantity:     decimal.NewFromInt(100),
		Unit:         enums.ProductUnitKg,
		PricePerUnit: decimal.NewFromInt(20),
	}
}

func TestSendRequestCopiesSellerFromProduct(t *testing.T) {
	repo := newFakeRequestRepo()
	sellerID := uuid.New()
	buyerID := uuid.New()
	product := seedProduct(sellerID)
	svc := newTestService(t, repo, map[uuid.UUID]*models.Product{product.ID: product})

	dto, err := svc.SendRequest(context.Background(), buyerID, SendRequestInput{
		ProductID: product.ID,
		Quantity:  decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if dto.SellerID != sellerID {
		t.Fatalf("expected seller copied from product, got %s", dto.SellerID)
	}
	if dto.Status != enums.RequestStatusPending.String() {
		t.Fatalf("expected pending status, got %s", dto.Status)
	}
}

func TestSendRequestAllowsDuplicates(t *testing.T) {
	repo := newFakeRequestRepo()
	sellerID := uuid.New()
	buyerID := uuid.New()
	product := seedProduct(sellerID)
	svc := newTestService(t, repo, map[uuid.UUID]*models.Product{product.ID: product})

	input := SendRequestInput{ProductID: product.ID, Quantity: decimal.NewFromInt(5)}
	first, err := svc.SendRequest(context.Background(), buyerID, input)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := svc.SendRequest(context.Background(), buyerID, input)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("expected two distinct rows for duplicate requests")
	}
	if len(repo.rows) != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", len(repo.rows))
	}
}

func TestSendRequestRejectsOwnProduct(t *testing.T) {
	repo := newFakeRequestRepo()
	sellerID := uuid.New()
	product := seedProduct(sellerID)
	svc := newTestService(t, repo, map[uuid.UUID]*models.Product{product.ID: product})

	_, err := svc.SendRequest(context.Background(), sellerID, SendRequestInput{
		ProductID: product.ID,
		Quantity:  decimal.NewFromInt(1),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	repo := newFakeRequestRepo()
	sellerID := uuid.New()
	buyerID := uuid.New()
	product := seedProduct(sellerID)
	svc := newTestService(t, repo, map[uuid.UUID]*models.Product{product.ID: product})

	dto, err := svc.SendRequest(context.Background(), buyerID, SendRequestInput{
		ProductID: product.ID,
		Quantity:  decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	accepted, err := svc.UpdateStatus(context.Background(), sellerID, dto.ID, enums.RequestStatusAccepted)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != enums.RequestStatusAccepted.String() {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}

	// accepted is terminal
	_, err = svc.UpdateStatus(context.Background(), sellerID, dto.ID, enums.RequestStatusRejected)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict from terminal status, got %v", err)
	}
}

func TestUpdateStatusRejectsPendingTarget(t *testing.T) {
	repo := newFakeRequestRepo()
	sellerID := uuid.New()
	product := seedProduct(sellerID)
	svc := newTestService(t, repo, map[uuid.UUID]*models.Product{product.ID: product})

	dto, err := svc.SendRequest(context.Background(), uuid.New(), SendRequestInput{
		ProductID: product.ID,
		Quantity:  decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	_, err = svc.UpdateStatus(context.Background(), sellerID, dto.ID, enums.RequestStatusPending)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for pending target, got %v", err)
	}
}

func TestUpdateStatusOwnership(t *testing.T) {
	repo := newFakeRequestRepo()
	sellerID := uuid.New()
	product := seedProduct(sellerID)
	svc := newTestService(t, repo, map[uuid.UUID]*models.Product{product.ID: product})

	dto, err := svc.SendRequest(context.Background(), uuid.New(), SendRequestInput{
		ProductID: product.ID,
		Quantity:  decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	_, err = svc.UpdateStatus(context.Background(), uuid.New(), dto.ID, enums.RequestStatusAccepted)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for foreign request, got %v", err)
	}
}

func TestUpdateStatusMutatesOnlyTarget(t *testing.T) {
	repo := newFakeRequestRepo()
	sellerID := uuid.New()
	product := seedProduct(sellerID)
	svc := newTestService(t, repo, map[uuid.UUID]*models.Product{product.ID: product})

	first, err := svc.SendRequest(context.Background(), uuid.New(), SendRequestInput{
		ProductID: product.ID, Quantity: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := svc.SendRequest(context.Background(), uuid.New(), SendRequestInput{
		ProductID: product.ID, Quantity: decimal.NewFromInt(2),
	})
	if err != nil {
		t.Fatalf("second request: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), sellerID, first.ID, enums.RequestStatusAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if repo.rows[second.ID].Status != enums.RequestStatusPending {
		t.Fatalf("sibling request mutated: %s", repo.rows[second.ID].Status)
	}
}
