package roles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/virtualmandi/mandi-backend/pkg/db/models"
	"github.com/virtualmandi/mandi-backend/pkg/enums"
)

// Repository exposes the user/role binding. A binding is written once at
// sign-up and treated as immutable afterwards.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a roles repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Assign writes the role binding for a user.
func (r *Repository) Assign(ctx context.Context, userID uuid.UUID, role enums.UserRole) error {
	binding := models.UserRole{UserID: userID, Role: role}
	return r.db.WithContext(ctx).Create(&binding).Error
}

// FindByUserID returns the role bound to a user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (enums.UserRole, error) {
	var binding models.UserRole
	if err := r.db.WithContext(ctx).First(&binding, "user_id = ?", userID).Error; err != nil {
		return "", err
	}
	return binding.Role, nil
}
