package model

import (
	"time"

	"gorm.io/datatypes"
)

// Message roles
const (
	MessageRoleUser      = "USER"
	MessageRoleAssistant = "ASSISTANT"
	MessageRoleSystem    = "SYSTEM"
)

// Message is a single turn within a conversation. Messages are strictly
// ordered by creation time and immutable once written.
type Message struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	ConversationID uint   `json:"conversation_id" gorm:"index;not null"`
	TenantID       uint   `json:"tenant_id" gorm:"index;not null"`
	Role           string `json:"role" gorm:"type:varchar(20);not null"`
	Content        string `json:"content" gorm:"type:text;not null"`
	// Metadata carries assistant-turn extras such as component payloads
	// and the fallback flag
	Metadata  datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time         `json:"created_at" gorm:"index"`
}
