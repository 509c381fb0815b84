package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/virtualmandi/mandi-backend/pkg/enums"
)

// UserRole binds an account to its marketplace side. The binding is written
// once at sign-up and never changed afterwards.
type UserRole struct {
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey"`
	Role      enums.UserRole `gorm:"column:role;type:text;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default pluralization.
func (UserRole) TableName() string {
	return "user_roles"
}
