package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/virtualmandi/mandi-backend/pkg/db/models"
)

// ProfileDTO represents the profile payload returned to clients.
type ProfileDTO struct {
	UserID          uuid.UUID `json:"user_id"`
	Name            string    `json:"name"`
	Mobile          *string   `json:"mobile,omitempty"`
	Email           *string   `json:"email,omitempty"`
	LocationLat     *float64  `json:"location_lat,omitempty"`
	LocationLng     *float64  `json:"location_lng,omitempty"`
	LocationAddress *string   `json:"location_address,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FromModel builds a DTO from the persisted profile.
func FromModel(profile *models.Profile) *ProfileDTO {
	if profile == nil {
		return nil
	}
	return &ProfileDTO{
		UserID:          profile.UserID,
		Name:            profile.Name,
		Mobile:          profile.Mobile,
		Email:           profile.Email,
		LocationLat:     profile.LocationLat,
		LocationLng:     profile.LocationLng,
		LocationAddress: profile.LocationAddress,
		CreatedAt:       profile.CreatedAt,
		UpdatedAt:       profile.UpdatedAt,
	}
}
