package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document statuses. The only transitions are
// PROCESSING -> PROCESSED, PROCESSING -> FAILED and FAILED -> PROCESSING
// (a single retry). Nothing leaves PROCESSED except deletion.
const (
	DocStatusProcessing = "PROCESSING"
	DocStatusProcessed  = "PROCESSED"
	DocStatusFailed     = "FAILED"
)

// Document represents an uploaded file handed off to the external
// processor for text extraction. (Name, TenantID) uniqueness is enforced
// at the application level, not the schema level: re-uploading the same
// name updates the existing record instead of duplicating it.
type Document struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	TenantID uint   `json:"tenant_id" gorm:"index;not null"`
	UserID   uint   `json:"user_id" gorm:"index;not null"`
	Name     string `json:"name" gorm:"type:varchar(255);not null;index"`
	Type     string `json:"type" gorm:"type:varchar(50)"`
	// StorageKey is the opaque object-storage key; URL the permanent locator
	StorageKey string `json:"storage_key" gorm:"type:varchar(512)"`
	URL        string `json:"url" gorm:"type:varchar(1024)"`
	Status     string `json:"status" gorm:"type:varchar(20);not null;default:'PROCESSING';index"`
	// Metadata is a free-form bag: size, mime type, namespace, description,
	// processing-state sub-flags, retry bookkeeping, last error. The set of
	// keys grows over time; use docproc.Meta for typed access.
	Metadata  datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	DeletedAt gorm.DeletedAt    `json:"-" gorm:"index"`

	Tenant Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	User   User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
