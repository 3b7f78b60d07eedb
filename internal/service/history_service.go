package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"aley/backend/internal/models"

	"gorm.io/gorm"
)

const defaultHistoryLimit = 50

// HistoryQuery carries the optional filters of a history request
type HistoryQuery struct {
	Search     string
	SortBy     string // newest (default) or oldest
	FilterDate string // YYYY-MM-DD, server-local day
	Page       int
	Limit      int
}

func (q HistoryQuery) sortOrder(column string) string {
	if q.SortBy == "oldest" {
		return column + " ASC"
	}
	return column + " DESC"
}

// dayRange resolves FilterDate to the half-open interval
// [day 00:00, day+1 00:00) in server-local time. ok is false when no
// (parseable) date was supplied.
func (q HistoryQuery) dayRange() (start, end time.Time, ok bool) {
	if q.FilterDate == "" {
		return time.Time{}, time.Time{}, false
	}
	day, err := time.ParseInLocation("2006-01-02", q.FilterDate, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return day, day.AddDate(0, 0, 1), true
}

// HistoryService serves the search/filter/pagination views over a user's
// chat history.
type HistoryService struct {
	db *gorm.DB
}

// NewHistoryService creates a new history service
func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

func searchPattern(term string) string {
	return "%" + strings.ToLower(term) + "%"
}

// Messages returns one page of a single conversation's messages, owner
// only, optionally text-searched and day-filtered.
func (s *HistoryService) Messages(ctx context.Context, userID, conversationID string, q HistoryQuery) (*models.ConversationHistory, error) {
	conversation, err := findOwned(ctx, s.db, userID, conversationID)
	if err != nil {
		return nil, err
	}

	page, limit := normalizePage(q.Page, q.Limit, defaultHistoryLimit)

	query := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ?", conversation.ID)
	if q.Search != "" {
		query = query.Where("LOWER(content) LIKE ?", searchPattern(q.Search))
	}
	if start, end, ok := q.dayRange(); ok {
		query = query.Where("created_at >= ? AND created_at < ?", start, end)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := query.
		Order(q.sortOrder("created_at")).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	responses := make([]models.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		responses = append(responses, msg.ToResponse())
	}

	return &models.ConversationHistory{
		ConversationID:    conversation.ID,
		ConversationTitle: conversation.Title,
		Messages:          responses,
		Pagination:        newPagination(page, limit, len(messages), total),
	}, nil
}

// Index returns one page of the user's conversations annotated with
// message counts and last-message previews. When a search term is given,
// conversations with no matching message are dropped from the page after
// it was fetched, and totalCount/totalPages are recomputed over the
// filtered page while hasMore still reflects the unfiltered walk. The
// returned page can therefore be shorter than limit even when more
// matches exist further on; callers rely on hasMore, not page length.
func (s *HistoryService) Index(ctx context.Context, userID string, q HistoryQuery) (*models.ConversationIndex, error) {
	page, limit := normalizePage(q.Page, q.Limit, defaultHistoryLimit)

	db := s.db.WithContext(ctx)

	query := db.Model(&models.Conversation{}).Where("user_id = ?", userID)
	if start, end, ok := q.dayRange(); ok {
		query = query.Where("last_message_at >= ? AND last_message_at < ?", start, end)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var conversations []models.Conversation
	if err := query.
		Order(q.sortOrder("last_message_at")).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&conversations).Error; err != nil {
		return nil, err
	}

	details := make([]models.ConversationDetail, 0, len(conversations))
	for _, conv := range conversations {
		detail, err := s.describe(ctx, conv, q.Search)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}

	filtered := details
	if q.Search != "" {
		filtered = make([]models.ConversationDetail, 0, len(details))
		for _, d := range details {
			if d.HasSearchMatch {
				filtered = append(filtered, d)
			}
		}
	}

	effectiveTotal := total
	if q.Search != "" {
		effectiveTotal = int64(len(filtered))
	}
	pagination := newPagination(page, limit, len(conversations), total)
	pagination.TotalCount = effectiveTotal
	pagination.TotalPages = int(effectiveTotal) / limit
	if int(effectiveTotal)%limit != 0 {
		pagination.TotalPages++
	}

	return &models.ConversationIndex{
		Conversations: filtered,
		Pagination:    pagination,
		Filters: models.HistoryFilters{
			Search:     optional(q.Search),
			SortBy:     orDefault(q.SortBy, "newest"),
			FilterDate: optional(q.FilterDate),
		},
	}, nil
}

func (s *HistoryService) describe(ctx context.Context, conv models.Conversation, search string) (models.ConversationDetail, error) {
	db := s.db.WithContext(ctx)

	var messageCount int64
	if err := db.Model(&models.Message{}).
		Where("conversation_id = ?", conv.ID).
		Count(&messageCount).Error; err != nil {
		return models.ConversationDetail{}, err
	}

	detail := models.ConversationDetail{
		ID:             conv.ID,
		Title:          conv.Title,
		MessageCount:   messageCount,
		LastMessageAt:  conv.LastMessageAt,
		CreatedAt:      conv.CreatedAt,
		HasSearchMatch: true,
	}

	var last models.Message
	err := db.Where("conversation_id = ?", conv.ID).
		Order("created_at DESC").
		First(&last).Error
	if err == nil {
		preview := last.Preview(previewMaxLen)
		detail.LastMessage = &preview
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ConversationDetail{}, err
	}

	if search != "" {
		var matches int64
		if err := db.Model(&models.Message{}).
			Where("conversation_id = ? AND LOWER(content) LIKE ?", conv.ID, searchPattern(search)).
			Count(&matches).Error; err != nil {
			return models.ConversationDetail{}, err
		}
		detail.HasSearchMatch = matches > 0
	}

	return detail, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
