package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/virtualmandi/mandi-backend/pkg/enums"
)

// Product represents a seller's crop listing.
type Product struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SellerID        uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	CropName        string            `gorm:"column:crop_name;not null"`
	Quantity        decimal.Decimal   `gorm:"column:quantity;type:numeric(12,3);not null"`
	Unit            enums.ProductUnit `gorm:"column:unit;type:text;not null"`
	PricePerUnit    decimal.Decimal   `gorm:"column:price_per_unit;type:numeric(12,2);not null"`
	LocationLat     float64           `gorm:"column:location_lat;not null"`
	LocationLng     float64           `gorm:"column:location_lng;not null"`
	LocationAddress string            `gorm:"column:location_address;not null"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Product) TableName() string {
	return "products"
}

// BeforeCreate assigns the identifier when the caller has not.
func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
