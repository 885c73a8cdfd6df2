package model

import "time"

// DocumentChunk is one extracted text chunk delivered by the processor
// webhook when a document completes.
type DocumentChunk struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	DocumentID uint      `json:"document_id" gorm:"index;not null"`
	TenantID   uint      `json:"tenant_id" gorm:"index;not null"`
	ChunkIndex int       `json:"chunk_index" gorm:"not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"created_at"`

	Document Document `json:"document,omitempty" gorm:"foreignKey:DocumentID"`
}
