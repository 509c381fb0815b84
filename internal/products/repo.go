package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/virtualmandi/mandi-backend/pkg/db/models"
)

// ProductWithSeller carries a product row joined with the seller's display name.
type ProductWithSeller struct {
	models.Product
	SellerName string `gorm:"column:seller_name"`
}

// Repository exposes product persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a products repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new product and returns the persisted model.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateFields writes the provided column map against the product row.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Delete removes the product row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// ListAllNewestFirst returns every product joined with the seller's display
// name, ordered by creation time descending.
func (r *Repository) ListAllNewestFirst(ctx context.Context) ([]ProductWithSeller, error) {
	var rows []ProductWithSeller
	err := r.db.WithContext(ctx).
		Table("products").
		Select("products.*, profiles.name AS seller_name").
		Joins("LEFT JOIN profiles ON profiles.user_id = products.seller_id").
		Order("products.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
