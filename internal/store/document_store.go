// Package store holds the gorm-backed implementations of the small
// persistence interfaces the domain packages depend on.
package store

import (
	"errors"

	"support-chat-service/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentStore is the gorm implementation of docproc.DocumentStore.
type DocumentStore struct {
	db *gorm.DB
}

// NewDocumentStore creates a document store.
func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// FindByNameAndTenant looks a document up by its application-level
// (name, tenant) identity. Returns (nil, nil) on a miss.
func (s *DocumentStore) FindByNameAndTenant(name string, tenantID uint) (*model.Document, error) {
	var doc model.Document
	err := s.db.Where("name = ? AND tenant_id = ?", name, tenantID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByID returns (nil, nil) on a miss.
func (s *DocumentStore) FindByID(id uint) (*model.Document, error) {
	var doc model.Document
	err := s.db.First(&doc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create inserts a new document record.
func (s *DocumentStore) Create(doc *model.Document) error {
	return s.db.Create(doc).Error
}

// Save persists the full document record.
func (s *DocumentStore) Save(doc *model.Document) error {
	return s.db.Save(doc).Error
}

// ClaimRetry flips a FAILED document back to PROCESSING and merges the
// retry stamp into its metadata in one guarded UPDATE. The WHERE clause
// carries the idempotency check, so only one of two racing claims can
// see RowsAffected == 1.
func (s *DocumentStore) ClaimRetry(id uint, stamp datatypes.JSONMap) (bool, error) {
	result := s.db.Model(&model.Document{}).
		Where("id = ? AND status = ? AND (metadata ->> 'retryAttempt') IS NULL", id, model.DocStatusFailed).
		Updates(map[string]interface{}{
			"status":   model.DocStatusProcessing,
			"metadata": gorm.Expr("COALESCE(metadata, '{}'::jsonb) || ?", stamp),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MergeMetadata merges patch into the document's jsonb metadata bag.
// Nothing else on the row is touched, so it is safe to call while the
// webhook may be advancing the document's status concurrently.
func (s *DocumentStore) MergeMetadata(id uint, patch datatypes.JSONMap) error {
	return s.db.Model(&model.Document{}).
		Where("id = ?", id).
		Update("metadata", gorm.Expr("COALESCE(metadata, '{}'::jsonb) || ?", patch)).Error
}

// CreateChunks inserts the extracted content chunks in one batch.
func (s *DocumentStore) CreateChunks(chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.db.Create(&chunks).Error
}
