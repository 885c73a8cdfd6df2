package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tenant is the isolation boundary of the system. Every document,
// conversation and notification belongs to exactly one tenant.
type Tenant struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Slug string `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name string `json:"name" gorm:"type:varchar(255);not null"`
	// Domain is the customer-facing domain this tenant serves
	Domain string `json:"domain" gorm:"type:varchar(255)"`
	// Settings holds feature flags and the namespace list used as
	// technical-domain tags on outbound workflow calls
	Settings  datatypes.JSONMap `json:"settings" gorm:"type:jsonb"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	DeletedAt gorm.DeletedAt    `json:"-" gorm:"index"`
}

// Namespaces returns the namespace list from tenant settings, if any.
func (t *Tenant) Namespaces() []string {
	raw, ok := t.Settings["namespaces"]
	if !ok {
		return nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
