package model

import (
	"time"

	"gorm.io/gorm"
)

// ManagerTenantAccess grants a MANAGER visibility into a tenant other than
// their home tenant. Unique per (manager, tenant) pair.
type ManagerTenantAccess struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"not null;uniqueIndex:ux_manager_tenant,priority:1"`
	TenantID  uint           `json:"tenant_id" gorm:"not null;uniqueIndex:ux_manager_tenant,priority:2"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	User   User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Tenant Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}
