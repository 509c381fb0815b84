package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/virtualmandi/mandi-backend/api/responses"
	"github.com/virtualmandi/mandi-backend/api/validators"
	"github.com/virtualmandi/mandi-backend/internal/marketplace"
	"github.com/virtualmandi/mandi-backend/internal/products"
	"github.com/virtualmandi/mandi-backend/pkg/config"
	"github.com/virtualmandi/mandi-backend/pkg/enums"
	pkgerrors "github.com/virtualmandi/mandi-backend/pkg/errors"
	"github.com/virtualmandi/mandi-backend/pkg/logger"
)

type createProductRequest struct {
	CropName        string          `json:"crop_name" validate:"required,min=2,max=120"`
	Quantity        decimal.Decimal `json:"quantity" validate:"required"`
	Unit            string          `json:"unit" validate:"required,oneof=kg quintal ton"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit" validate:"required"`
	LocationLat     float64         `json:"location_lat"`
	LocationLng     float64         `json:"location_lng"`
	LocationAddress string          `json:"location_address" validate:"max=255"`
}

type updateProductRequest struct {
	CropName        *string          `json:"crop_name,omitempty" validate:"omitempty,min=2,max=120"`
	Quantity        *decimal.Decimal `json:"quantity,omitempty"`
	Unit            *string          `json:"unit,omitempty" validate:"omitempty,oneof=kg quintal ton"`
	PricePerUnit    *decimal.Decimal `json:"price_per_unit,omitempty"`
	LocationLat     *float64         `json:"location_lat,omitempty"`
	LocationLng     *float64         `json:"location_lng,omitempty"`
	LocationAddress *string          `json:"location_address,omitempty" validate:"omitempty,max=255"`
}

func sessionStore(registry *marketplace.Registry, r *http.Request) (*marketplace.Store, error) {
	userID, err := callerID(r)
	if err != nil {
		return nil, err
	}
	store, err := registry.GetOrCreate(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if err := store.EnsurePrimed(r.Context()); err != nil {
		return nil, err
	}
	return store, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// ProductsCreate lists a new crop for the calling seller.
func ProductsCreate(registry *marketplace.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unit, err := enums.ParseProductUnit(body.Unit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit"))
			return
		}

		dto, err := store.AddProduct(r.Context(), products.CreateProductInput{
			CropName:        validators.SanitizeString(body.CropName, 120),
			Quantity:        body.Quantity,
			Unit:            unit,
			PricePerUnit:    body.PricePerUnit,
			LocationLat:     body.LocationLat,
			LocationLng:     body.LocationLng,
			LocationAddress: validators.SanitizeString(body.LocationAddress, 255),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// ProductsUpdate applies partial fields to one of the caller's listings.
func ProductsUpdate(registry *marketplace.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := products.UpdateProductInput{
			CropName:        body.CropName,
			Quantity:        body.Quantity,
			PricePerUnit:    body.PricePerUnit,
			LocationLat:     body.LocationLat,
			LocationLng:     body.LocationLng,
			LocationAddress: body.LocationAddress,
		}
		if body.Unit != nil {
			unit, err := enums.ParseProductUnit(*body.Unit)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit"))
				return
			}
			input.Unit = &unit
		}

		dto, err := store.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ProductsDelete removes one of the caller's listings.
func ProductsDelete(registry *marketplace.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := store.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ProductsList returns every cached listing, newest first.
func ProductsList(registry *marketplace.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productRows, _ := store.Snapshot()
		responses.WriteSuccess(w, productRows)
	}
}

// ProductsMine returns the caller's own listings from the session cache.
func ProductsMine(registry *marketplace.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store.GetSellerProducts(store.UserID()))
	}
}

// ProductsNearby filters cached listings by haversine distance from the
// given point. The radius default applies only when max_km is absent; an
// explicit zero matches co-located listings only.
func ProductsNearby(registry *marketplace.Registry, geoCfg config.GeoConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lat, err := validators.RequireQueryFloat(r, "lat")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.RequireQueryFloat(r, "lng")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		maxKm, err := validators.ParseQueryFloat(r, "max_km", geoCfg.DefaultRadiusKm)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, store.GetNearbyProducts(lat, lng, maxKm))
	}
}
