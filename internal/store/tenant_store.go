package store

import (
	"errors"

	"support-chat-service/internal/model"

	"gorm.io/gorm"
)

// TenantStore is the gorm implementation of docproc.TenantStore.
type TenantStore struct {
	db *gorm.DB
}

// NewTenantStore creates a tenant store.
func NewTenantStore(db *gorm.DB) *TenantStore {
	return &TenantStore{db: db}
}

// FindByID returns (nil, nil) on a miss.
func (s *TenantStore) FindByID(id uint) (*model.Tenant, error) {
	var tenant model.Tenant
	err := s.db.First(&tenant, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}
