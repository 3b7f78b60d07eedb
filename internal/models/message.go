package models

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message roles. A message is written once and never updated.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation
type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"index;size:36" json:"conversationId"`
	Role           string    `gorm:"size:16" json:"role"`
	Content        string    `gorm:"type:text" json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// BeforeCreate fills the message ID
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// SendMessageRequest starts or continues a chat. ConversationID empty
// means start a new conversation. Content validation happens in the
// service so the length bound and trim rules live in one place.
type SendMessageRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// MessageResponse is the client-facing message shape
type MessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToResponse converts a Message to its client-facing shape
func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// Preview truncates message content for conversation list annotations.
// Truncation is rune-aware so a multi-byte character is never split.
func (m *Message) Preview(max int) MessagePreview {
	content := m.Content
	if utf8.RuneCountInString(content) > max {
		content = string([]rune(content)[:max])
	}
	return MessagePreview{
		Content:   content,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
}
