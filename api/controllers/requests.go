package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/virtualmandi/mandi-backend/api/responses"
	"github.com/virtualmandi/mandi-backend/api/validators"
	"github.com/virtualmandi/mandi-backend/internal/marketplace"
	"github.com/virtualmandi/mandi-backend/internal/requests"
	"github.com/virtualmandi/mandi-backend/pkg/enums"
	pkgerrors "github.com/virtualmandi/mandi-backend/pkg/errors"
	"github.com/virtualmandi/mandi-backend/pkg/logger"
)

type sendRequestRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
}

type decideRequestRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected"`
}

// RequestsSend creates a pending purchase request for a listing.
func RequestsSend(registry *marketplace.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body sendRequestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := store.SendRequest(r.Context(), requests.SendRequestInput{
			ProductID: body.ProductID,
			Quantity:  body.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// RequestsDecide accepts or rejects a pending request addressed to the caller.
func RequestsDecide(registry *marketplace.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body decideRequestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseRequestStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		dto, err := store.UpdateRequestStatus(r.Context(), requestID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// RequestsSent returns the requests the caller made as a buyer.
func RequestsSent(registry *marketplace.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store.GetBuyerRequests(store.UserID()))
	}
}

// RequestsReceived returns the requests addressed to the caller as a seller.
func RequestsReceived(registry *marketplace.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionStore(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store.GetSellerRequests(store.UserID()))
	}
}
