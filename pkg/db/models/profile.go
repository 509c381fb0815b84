package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile represents the marketplace-facing identity record. Its primary key
// is the owning credential's identifier, so profile existence is the signal
// that an account finished onboarding.
type Profile struct {
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	Mobile          *string   `gorm:"column:mobile"`
	Email           *string   `gorm:"column:email"`
	LocationLat     *float64  `gorm:"column:location_lat"`
	LocationLng     *float64  `gorm:"column:location_lng"`
	LocationAddress *string   `gorm:"column:location_address"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Profile) TableName() string {
	return "profiles"
}
