package requests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/virtualmandi/mandi-backend/pkg/db/models"
	"github.com/virtualmandi/mandi-backend/pkg/enums"
)

// RequestWithBuyer carries a purchase request joined with the buyer's display
// name and the referenced product snapshot.
type RequestWithBuyer struct {
	models.PurchaseRequest
	BuyerName string `gorm:"column:buyer_name"`
}

// Repository exposes purchase request persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a requests repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new purchase request and returns the persisted model.
func (r *Repository) Create(ctx context.Context, request *models.PurchaseRequest) (*models.PurchaseRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

// FindByID loads a purchase request without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error) {
	var request models.PurchaseRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// UpdateStatus writes the new status against the request row.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.RequestStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.PurchaseRequest{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

// ListVisibleTo returns every request the user participates in, as buyer or
// seller, joined with the buyer name and referenced product, newest first.
func (r *Repository) ListVisibleTo(ctx context.Context, userID uuid.UUID) ([]RequestWithBuyer, error) {
	var rows []RequestWithBuyer
	err := r.db.WithContext(ctx).
		Table("purchase_requests").
		Select("purchase_requests.*, profiles.name AS buyer_name").
		Joins("LEFT JOIN profiles ON profiles.user_id = purchase_requests.buyer_id").
		Where("purchase_requests.buyer_id = ? OR purchase_requests.seller_id = ?", userID, userID).
		Order("purchase_requests.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	if err := r.attachProducts(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) attachProducts(ctx context.Context, rows []RequestWithBuyer) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}

	var productRows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&productRows).Error; err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*models.Product, len(productRows))
	for i := range productRows {
		byID[productRows[i].ID] = &productRows[i]
	}
	for i := range rows {
		rows[i].Product = byID[rows[i].ProductID]
	}
	return nil
}
