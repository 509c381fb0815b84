package profiles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/virtualmandi/mandi-backend/pkg/db/models"
)

// Repository exposes profile persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a profiles repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new profile and returns the persisted model.
func (r *Repository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// FindByUserID loads the profile attached to a credential.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateFields writes the provided column map against the profile row.
// Only keys present in the map are touched.
func (r *Repository) UpdateFields(ctx context.Context, userID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Updates(fields).Error
}

// NameByUserID returns the display name for a user, or empty when absent.
func (r *Repository) NameByUserID(ctx context.Context, userID uuid.UUID) (string, error) {
	var name string
	err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Pluck("name", &name).Error
	if err != nil {
		return "", err
	}
	return name, nil
}
