package requests

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/virtualmandi/mandi-backend/internal/products"
	"github.com/virtualmandi/mandi-backend/pkg/db/models"
)

// RequestDTO represents the purchase request payload returned to clients.
type RequestDTO struct {
	ID        uuid.UUID            `json:"id"`
	ProductID uuid.UUID            `json:"product_id"`
	BuyerID   uuid.UUID            `json:"buyer_id"`
	BuyerName string               `json:"buyer_name,omitempty"`
	SellerID  uuid.UUID            `json:"seller_id"`
	Quantity  decimal.Decimal      `json:"quantity"`
	Status    string               `json:"status"`
	Product   *products.ProductDTO `json:"product,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// FromModel builds a DTO from the persisted request.
func FromModel(request *models.PurchaseRequest) *RequestDTO {
	if request == nil {
		return nil
	}
	return &RequestDTO{
		ID:        request.ID,
		ProductID: request.ProductID,
		BuyerID:   request.BuyerID,
		SellerID:  request.SellerID,
		Quantity:  request.Quantity,
		Status:    request.Status.String(),
		Product:   products.FromModel(request.Product),
		CreatedAt: request.CreatedAt,
		UpdatedAt: request.UpdatedAt,
	}
}

// FromJoinedRow builds a DTO from the request/buyer-name join.
func FromJoinedRow(row RequestWithBuyer) *RequestDTO {
	dto := FromModel(&row.PurchaseRequest)
	dto.BuyerName = row.BuyerName
	return dto
}
