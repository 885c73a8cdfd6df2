package store

import (
	"support-chat-service/internal/model"

	"gorm.io/gorm"
)

// GrantStore is the gorm implementation of access.GrantChecker.
type GrantStore struct {
	db *gorm.DB
}

// NewGrantStore creates a grant store.
func NewGrantStore(db *gorm.DB) *GrantStore {
	return &GrantStore{db: db}
}

// HasGrant reports whether a ManagerTenantAccess row exists for the
// (manager, tenant) pair.
func (s *GrantStore) HasGrant(userID, tenantID uint) (bool, error) {
	var count int64
	err := s.db.Model(&model.ManagerTenantAccess{}).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
