package service

import (
	"context"
	"errors"
	"strings"

	"aley/backend/internal/models"
	"aley/backend/pkg/cache"

	"gorm.io/gorm"
)

const (
	// previewMaxLen truncates last-message previews for list views
	previewMaxLen = 100

	titleMaxLen = 200

	defaultListLimit = 20
)

// ConversationService manages a user's conversation threads
type ConversationService struct {
	db       *gorm.DB
	previews *cache.PreviewCache
}

// NewConversationService creates a new conversation service
func NewConversationService(db *gorm.DB, previews *cache.PreviewCache) *ConversationService {
	return &ConversationService{db: db, previews: previews}
}

// findOwned loads a conversation only if it belongs to userID. A missing
// conversation and a foreign one both come back as ErrConversationNotFound.
func findOwned(ctx context.Context, db *gorm.DB, userID, conversationID string) (*models.Conversation, error) {
	var conversation models.Conversation
	result := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", conversationID, userID).
		First(&conversation)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, result.Error
	}
	return &conversation, nil
}

// newPagination computes the page descriptor. hasMore holds the invariant
// skip + returned < total.
func newPagination(page, limit, returned int, total int64) models.Pagination {
	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}
	skip := (page - 1) * limit
	return models.Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasMore:     int64(skip+returned) < total,
	}
}

func normalizePage(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}

// lastPreview returns the latest-message preview for a conversation,
// preferring the cache and falling back to the messages table.
func (s *ConversationService) lastPreview(ctx context.Context, conversationID string) (*models.MessagePreview, error) {
	if preview, ok := s.previews.GetPreview(ctx, conversationID); ok {
		return preview, nil
	}

	var last models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	preview := last.Preview(previewMaxLen)
	s.previews.SetPreview(ctx, conversationID, preview)
	return &preview, nil
}

// ListPage returns one page of the user's conversations, most recently
// active first, each annotated with a preview of its latest message.
func (s *ConversationService) ListPage(ctx context.Context, userID string, page, limit int) ([]models.ConversationSummary, models.Pagination, error) {
	page, limit = normalizePage(page, limit, defaultListLimit)

	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Conversation{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, models.Pagination{}, err
	}

	var conversations []models.Conversation
	if err := db.Where("user_id = ?", userID).
		Order("last_message_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&conversations).Error; err != nil {
		return nil, models.Pagination{}, err
	}

	summaries := make([]models.ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		preview, err := s.lastPreview(ctx, conv.ID)
		if err != nil {
			return nil, models.Pagination{}, err
		}
		summaries = append(summaries, models.ConversationSummary{
			ID:            conv.ID,
			Title:         conv.Title,
			LastMessageAt: conv.LastMessageAt,
			CreatedAt:     conv.CreatedAt,
			UpdatedAt:     conv.UpdatedAt,
			Preview:       preview,
		})
	}

	return summaries, newPagination(page, limit, len(conversations), total), nil
}

// Rename updates a conversation's title for its owner
func (s *ConversationService) Rename(ctx context.Context, userID, conversationID, title string) (*models.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	title = clipRunes(title, titleMaxLen)

	conversation, err := findOwned(ctx, s.db, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(conversation).Update("title", title).Error; err != nil {
		return nil, err
	}
	conversation.Title = title

	return conversation, nil
}

// Delete removes a conversation and all of its messages in one
// transaction, so no orphaned messages survive a partial failure.
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID string) error {
	conversation, err := findOwned(ctx, s.db, userID, conversationID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversation.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(conversation).Error
	})
	if err != nil {
		return err
	}

	s.previews.DropPreview(ctx, conversation.ID)

	return nil
}
