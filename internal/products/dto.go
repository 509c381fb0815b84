package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/virtualmandi/mandi-backend/pkg/db/models"
)

// ProductDTO represents the listing payload returned to clients. DistanceKm is
// populated only on nearby-search results; it is derived, never persisted.
type ProductDTO struct {
	ID              uuid.UUID       `json:"id"`
	SellerID        uuid.UUID       `json:"seller_id"`
	SellerName      string          `json:"seller_name,omitempty"`
	CropName        string          `json:"crop_name"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	LocationLat     float64         `json:"location_lat"`
	LocationLng     float64         `json:"location_lng"`
	LocationAddress string          `json:"location_address"`
	DistanceKm      *float64        `json:"distance_km,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// FromModel builds a DTO from the persisted product.
func FromModel(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	return &ProductDTO{
		ID:              product.ID,
		SellerID:        product.SellerID,
		CropName:        product.CropName,
		Quantity:        product.Quantity,
		Unit:            product.Unit.String(),
		PricePerUnit:    product.PricePerUnit,
		LocationLat:     product.LocationLat,
		LocationLng:     product.LocationLng,
		LocationAddress: product.LocationAddress,
		CreatedAt:       product.CreatedAt,
		UpdatedAt:       product.UpdatedAt,
	}
}

// FromJoinedRow builds a DTO from the product/seller-name join.
func FromJoinedRow(row ProductWithSeller) *ProductDTO {
	dto := FromModel(&row.Product)
	dto.SellerName = row.SellerName
	return dto
}
