package credentials

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/virtualmandi/mandi-backend/pkg/db/models"
)

// Repository exposes credential persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a credentials repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new credential and returns the persisted model.
func (r *Repository) Create(ctx context.Context, credential *models.Credential) (*models.Credential, error) {
	credential.Email = NormalizeEmail(credential.Email)
	if err := r.db.WithContext(ctx).Create(credential).Error; err != nil {
		return nil, err
	}
	return credential, nil
}

// FindByEmail retrieves the credential matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Credential, error) {
	var credential models.Credential
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&credential).Error; err != nil {
		return nil, err
	}
	return &credential, nil
}

// FindByID loads a credential by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	var credential models.Credential
	if err := r.db.WithContext(ctx).First(&credential, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &credential, nil
}

// UpdateLastLogin refreshes the credential's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Credential{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
