package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification types emitted by the document lifecycle
const (
	NotificationDocumentUploaded         = "document_uploaded"
	NotificationDocumentProcessed        = "document_processed"
	NotificationDocumentProcessingFailed = "document_processing_failed"
)

// Notification is a tenant-scoped event record polled by clients.
type Notification struct {
	ID        uint              `json:"id" gorm:"primaryKey"`
	TenantID  uint              `json:"tenant_id" gorm:"index;not null"`
	UserID    uint              `json:"user_id" gorm:"index;not null"`
	Type      string            `json:"type" gorm:"type:varchar(50);not null;index"`
	Title     string            `json:"title" gorm:"type:varchar(255)"`
	Message   string            `json:"message" gorm:"type:text"`
	Metadata  datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	Read      bool              `json:"read" gorm:"default:false;index"`
	CreatedAt time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt time.Time         `json:"updated_at"`
	DeletedAt gorm.DeletedAt    `json:"-" gorm:"index"`
}
