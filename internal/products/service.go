package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/virtualmandi/mandi-backend/pkg/db/models"
	"github.com/virtualmandi/mandi-backend/pkg/enums"
	pkgerrors "github.com/virtualmandi/mandi-backend/pkg/errors"
)

// Service exposes seller listing management and the marketplace read path.
type Service interface {
	CreateProduct(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, sellerID, productID uuid.UUID) error
	ListAll(ctx context.Context) ([]ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	CropName        string
	Quantity        decimal.Decimal
	Unit            enums.ProductUnit
	PricePerUnit    decimal.Decimal
	LocationLat     float64
	LocationLng     float64
	LocationAddress string
}

// UpdateProductInput holds optional mutation values for a listing.
type UpdateProductInput struct {
	CropName        *string
	Quantity        *decimal.Decimal
	Unit            *enums.ProductUnit
	PricePerUnit    *decimal.Decimal
	LocationLat     *float64
	LocationLng     *float64
	LocationAddress *string
}

type productRepository interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListAllNewestFirst(ctx context.Context) ([]ProductWithSeller, error)
}

type sellerNameReader interface {
	NameByUserID(ctx context.Context, userID uuid.UUID) (string, error)
}

// service implements the product service.
type service struct {
	repo     productRepository
	profiles sellerNameReader
}

// NewService constructs a product service instance.
func NewService(repo productRepository, profileRepo sellerNameReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if profileRepo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	return &service{repo: repo, profiles: profileRepo}, nil
}

// CreateProduct validates the payload and inserts the listing scoped to the caller.
func (s *service) CreateProduct(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		SellerID:        sellerID,
		CropName:        strings.TrimSpace(input.CropName),
		Quantity:        input.Quantity,
		Unit:            input.Unit,
		PricePerUnit:    input.PricePerUnit,
		LocationLat:     input.LocationLat,
		LocationLng:     input.LocationLng,
		LocationAddress: strings.TrimSpace(input.LocationAddress),
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}

	dto := FromModel(created)
	if name, nameErr := s.profiles.NameByUserID(ctx, sellerID); nameErr == nil {
		dto.SellerName = name
	}
	return dto, nil
}

// UpdateProduct applies partial fields to a listing the caller owns.
func (s *service) UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.loadOwned(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}

	fields, err := buildUpdateFields(input)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := s.repo.UpdateFields(ctx, product.ID, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
		}
	}

	updated, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload product")
	}
	dto := FromModel(updated)
	if name, nameErr := s.profiles.NameByUserID(ctx, sellerID); nameErr == nil {
		dto.SellerName = name
	}
	return dto, nil
}

// DeleteProduct removes a listing the caller owns.
func (s *service) DeleteProduct(ctx context.Context, sellerID, productID uuid.UUID) error {
	product, err := s.loadOwned(ctx, sellerID, productID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, product.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	return nil
}

// ListAll returns every listing joined with its seller's display name, newest first.
func (s *service) ListAll(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListAllNewestFirst(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	dtos := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, *FromJoinedRow(row))
	}
	return dtos, nil
}

func (s *service) loadOwned(ctx context.Context, sellerID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup product")
	}
	if product.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another seller")
	}
	return product, nil
}

func validateCreateInput(input CreateProductInput) error {
	if strings.TrimSpace(input.CropName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "crop_name is required")
	}
	if !input.Unit.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", input.Unit))
	}
	if !input.Quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.PricePerUnit.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price_per_unit must be positive")
	}
	return nil
}

func buildUpdateFields(input UpdateProductInput) (map[string]any, error) {
	fields := map[string]any{}
	if input.CropName != nil {
		name := strings.TrimSpace(*input.CropName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "crop_name cannot be empty")
		}
		fields["crop_name"] = name
	}
	if input.Quantity != nil {
		if !input.Quantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		fields["quantity"] = *input.Quantity
	}
	if input.Unit != nil {
		if !input.Unit.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", *input.Unit))
		}
		fields["unit"] = *input.Unit
	}
	if input.PricePerUnit != nil {
		if !input.PricePerUnit.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_per_unit must be positive")
		}
		fields["price_per_unit"] = *input.PricePerUnit
	}
	if input.LocationLat != nil {
		fields["location_lat"] = *input.LocationLat
	}
	if input.LocationLng != nil {
		fields["location_lng"] = *input.LocationLng
	}
	if input.LocationAddress != nil {
		fields["location_address"] = strings.TrimSpace(*input.LocationAddress)
	}
	return fields, nil
}
