package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin        = "ADMIN"
	RoleManager      = "MANAGER"
	RoleSupportAgent = "SUPPORT_AGENT"
)

// User represents the user model stored in the database.
// A user's primary tenant is fixed at creation.
type User struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	Email              string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name               string         `json:"name" gorm:"type:varchar(255)"`
	Password           string         `json:"-" gorm:"type:varchar(255)"`
	Role               string         `json:"role" gorm:"type:varchar(50);not null;default:'SUPPORT_AGENT'"`
	TenantID           uint           `json:"tenant_id" gorm:"index;not null"`
	MustChangePassword bool           `json:"must_change_password" gorm:"default:false"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`

	Tenant Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}
