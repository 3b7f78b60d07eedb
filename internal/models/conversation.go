package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is an ordered thread of messages belonging to one user.
// UserID never changes after creation.
type Conversation struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"index;size:36" json:"userId"`
	Title         string    `gorm:"size:200" json:"title"`
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BeforeCreate fills the ID and activity timestamp
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Title == "" {
		c.Title = "New Conversation"
	}
	if c.LastMessageAt.IsZero() {
		c.LastMessageAt = time.Now()
	}
	return nil
}

// MessagePreview is a truncated view of a conversation's latest message
type MessagePreview struct {
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// ConversationSummary is the list-view shape: a conversation plus its
// latest-message preview.
type ConversationSummary struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	LastMessageAt time.Time       `json:"lastMessageAt"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Preview       *MessagePreview `json:"preview"`
}

// ConversationDetail is the history index shape: a summary annotated with
// message count and search-match status.
type ConversationDetail struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	MessageCount   int64           `json:"messageCount"`
	LastMessageAt  time.Time       `json:"lastMessageAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	LastMessage    *MessagePreview `json:"lastMessage"`
	HasSearchMatch bool            `json:"-"`
}

// RenameConversationRequest renames a conversation
type RenameConversationRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
	Title          string `json:"title" binding:"required"`
}

// Pagination describes a page of results. HasMore holds the invariant
// skip + returned < totalCount.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	HasMore     bool  `json:"hasMore"`
}
