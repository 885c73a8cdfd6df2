package model

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is an ordered chat session between a user and the
// assistant, scoped to a tenant. Created lazily on first message.
type Conversation struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TenantID  uint           `json:"tenant_id" gorm:"index;not null"`
	UserID    uint           `json:"user_id" gorm:"index;not null"`
	Title     string         `json:"title" gorm:"type:varchar(60)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Messages []Message `json:"messages,omitempty" gorm:"foreignKey:ConversationID"`
}

// ConversationTitle derives a conversation title from its first message,
// truncated to 50 characters with an ellipsis.
func ConversationTitle(firstMessage string) string {
	const maxLen = 50
	runes := []rune(firstMessage)
	if len(runes) <= maxLen {
		return firstMessage
	}
	return string(runes[:maxLen]) + "..."
}
