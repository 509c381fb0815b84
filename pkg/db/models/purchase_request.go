package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/virtualmandi/mandi-backend/pkg/enums"
)

// PurchaseRequest represents a buyer's intent on a product. The seller
// identifier is copied from the product at creation time; it is never
// re-validated against later product mutations. ProductID is not a foreign
// key: requests survive the deletion of their listing and keep a dangling
// reference.
type PurchaseRequest struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	BuyerID   uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID  uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Quantity  decimal.Decimal     `gorm:"column:quantity;type:numeric(12,3);not null"`
	Status    enums.RequestStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Product   *Product            `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (PurchaseRequest) TableName() string {
	return "purchase_requests"
}

// BeforeCreate assigns the identifier and default status when the caller has not.
func (r *PurchaseRequest) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = enums.RequestStatusPending
	}
	return nil
}
