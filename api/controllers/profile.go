package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/virtualmandi/mandi-backend/api/middleware"
	"github.com/virtualmandi/mandi-backend/api/responses"
	"github.com/virtualmandi/mandi-backend/api/validators"
	"github.com/virtualmandi/mandi-backend/internal/identity"
	pkgerrors "github.com/virtualmandi/mandi-backend/pkg/errors"
	"github.com/virtualmandi/mandi-backend/pkg/logger"
)

type updateProfileRequest struct {
	Name            *string  `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Mobile          *string  `json:"mobile,omitempty" validate:"omitempty,max=20"`
	Email           *string  `json:"email,omitempty" validate:"omitempty,email"`
	LocationLat     *float64 `json:"location_lat,omitempty"`
	LocationLng     *float64 `json:"location_lng,omitempty"`
	LocationAddress *string  `json:"location_address,omitempty" validate:"omitempty,max=255"`
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not authenticated")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}

// ProfileMe resolves and returns the caller's identity record.
func ProfileMe(manager *identity.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolved, err := manager.Resolve(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolved)
	}
}

// ProfileUpdate applies partial profile fields and returns the refetched identity.
func ProfileUpdate(manager *identity.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := manager.UpdateProfile(r.Context(), userID, identity.UpdateProfileInput{
			Name:            body.Name,
			Mobile:          body.Mobile,
			Email:           body.Email,
			LocationLat:     body.LocationLat,
			LocationLng:     body.LocationLng,
			LocationAddress: body.LocationAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
