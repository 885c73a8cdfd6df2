package store

import (
	"support-chat-service/internal/model"

	"gorm.io/gorm"
)

// NotificationStore is the gorm implementation of
// docproc.NotificationStore.
type NotificationStore struct {
	db *gorm.DB
}

// NewNotificationStore creates a notification store.
func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Create inserts a notification record.
func (s *NotificationStore) Create(n *model.Notification) error {
	return s.db.Create(n).Error
}
