package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"aley/backend/internal/llm"
	"aley/backend/internal/models"
	"aley/backend/pkg/cache"
	"aley/backend/pkg/logger"
	"aley/backend/pkg/resilience"

	"gorm.io/gorm"
)

const (
	maxMessageLen = 10000

	// newConversationTitleLen is how much of the first message becomes the
	// conversation title before the ellipsis.
	newConversationTitleLen = 50

	defaultContextWindow = 20

	bioFraming = "User bio/context (use this to personalize tone and relevance, do not repeat it back unless asked): "
)

// Stream event types multiplexed on the chat-send connection
const (
	EventUserMessage    = "userMessage"
	EventConversationID = "conversationId"
	EventStream         = "stream"
	EventComplete       = "complete"
	EventError          = "error"
)

// StreamEvent is one typed frame of a chat-send stream
type StreamEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// errClientGone marks a relay abort caused by a failed emit, so it is not
// held against the upstream.
var errClientGone = errors.New("client gone")

// Completer streams text fragments for a sequence of chat turns
type Completer interface {
	StreamCompletion(ctx context.Context, contents []llm.Content, onText func(string) error) error
}

// ChatService runs the chat-send pipeline: persist the user turn, relay a
// streamed completion, persist the assistant turn.
type ChatService struct {
	db            *gorm.DB
	completer     Completer
	breaker       *resilience.CircuitBreaker
	previews      *cache.PreviewCache
	log           *logger.Logger
	contextWindow int
}

// NewChatService creates a new chat service
func NewChatService(db *gorm.DB, completer Completer, breaker *resilience.CircuitBreaker, previews *cache.PreviewCache, log *logger.Logger, contextWindow int) *ChatService {
	if contextWindow <= 0 {
		contextWindow = defaultContextWindow
	}
	return &ChatService{
		db:            db,
		completer:     completer,
		breaker:       breaker,
		previews:      previews,
		log:           log,
		contextWindow: contextWindow,
	}
}

// Send runs one chat-send invocation. Failures before the first emitted
// event are returned as errors so the handler can answer with plain JSON.
// Once emit has been called the response is committed as a stream, so any
// later failure is delivered in-band as a single error event and Send
// returns nil; the user message persisted in step one stays persisted
// regardless. Returning an error from emit (caller gone) aborts the
// relay; ctx cancellation propagates to the upstream completion.
func (s *ChatService) Send(ctx context.Context, userID, message, conversationID string, emit func(StreamEvent) error) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > maxMessageLen {
		return ErrMessageTooLong
	}

	bio, err := s.userBio(ctx, userID)
	if err != nil {
		return err
	}

	conversation, err := s.resolveConversation(ctx, userID, message, conversationID)
	if err != nil {
		return err
	}

	userMessage := models.Message{
		ConversationID: conversation.ID,
		Role:           models.RoleUser,
		Content:        message,
	}
	if err := s.db.WithContext(ctx).Create(&userMessage).Error; err != nil {
		return err
	}

	contents, err := s.buildContext(ctx, conversation.ID, userMessage.ID, bio)
	if err != nil {
		return err
	}
	contents = append(contents, llm.Content{
		Role:  llm.RoleUser,
		Parts: []llm.Part{{Text: message}},
	})

	// With the breaker already open there is no point committing a stream
	// that can only carry an error event; let the handler answer 429.
	if s.breaker.State() == resilience.StateOpen {
		return resilience.ErrCircuitOpen
	}

	// The stream is committed from here on
	if err := emit(StreamEvent{Type: EventUserMessage, Data: userMessage.ToResponse()}); err != nil {
		return nil
	}
	if err := emit(StreamEvent{Type: EventConversationID, Data: conversation.ID}); err != nil {
		return nil
	}

	var full strings.Builder
	streamErr := s.breaker.Execute(func() error {
		err := s.completer.StreamCompletion(ctx, contents, func(fragment string) error {
			full.WriteString(fragment)
			if err := emit(StreamEvent{Type: EventStream, Data: fragment}); err != nil {
				return fmt.Errorf("%w: %v", errClientGone, err)
			}
			return nil
		})
		// A disconnecting client aborts the relay without saying anything
		// about the upstream; only genuine upstream errors count against
		// the breaker.
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, errClientGone)) {
			return resilience.Ignore(err)
		}
		return err
	})
	if streamErr != nil {
		s.log.Error("chat stream failed",
			"error", streamErr,
			"conversationId", conversation.ID,
		)
		emit(StreamEvent{Type: EventError, Data: streamErrorMessage(streamErr)})
		return nil
	}

	// The assistant turn and the activity bump land atomically
	assistantMessage := models.Message{
		ConversationID: conversation.ID,
		Role:           models.RoleAssistant,
		Content:        full.String(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&assistantMessage).Error; err != nil {
			return err
		}
		return tx.Model(conversation).Update("last_message_at", time.Now()).Error
	})
	if err != nil {
		s.log.Error("failed to persist assistant message", "error", err)
		emit(StreamEvent{Type: EventError, Data: "Failed to generate response"})
		return nil
	}

	s.previews.SetPreview(ctx, conversation.ID, assistantMessage.Preview(previewMaxLen))

	emit(StreamEvent{Type: EventComplete, Data: assistantMessage.ToResponse()})
	return nil
}

// userBio loads the sender's trimmed bio for the synthetic context turn.
// A missing user record just means no bio.
func (s *ChatService) userBio(ctx context.Context, userID string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("bio").Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(user.Bio), nil
}

// resolveConversation looks up an existing owned conversation, or creates
// one titled with the opening of the message.
func (s *ChatService) resolveConversation(ctx context.Context, userID, message, conversationID string) (*models.Conversation, error) {
	if conversationID != "" {
		return findOwned(ctx, s.db, userID, conversationID)
	}

	title := message
	if utf8.RuneCountInString(title) > newConversationTitleLen {
		title = string([]rune(title)[:newConversationTitleLen]) + "..."
	}

	conversation := models.Conversation{
		UserID:        userID,
		Title:         title,
		LastMessageAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&conversation).Error; err != nil {
		return nil, err
	}

	return &conversation, nil
}

// buildContext assembles the upstream turn list: an optional bio framing
// turn, then the most recent window of the conversation ascending by
// creation time, excluding the just-persisted user message.
func (s *ChatService) buildContext(ctx context.Context, conversationID, excludeID, bio string) ([]llm.Content, error) {
	var history []models.Message
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND id <> ?", conversationID, excludeID).
		Order("created_at DESC").
		Limit(s.contextWindow).
		Find(&history).Error; err != nil {
		return nil, err
	}

	contents := make([]llm.Content, 0, len(history)+2)
	if bio != "" {
		contents = append(contents, llm.Content{
			Role:  llm.RoleUser,
			Parts: []llm.Part{{Text: bioFraming + bio}},
		})
	}

	// history is newest-first; replay it oldest-first
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		role := llm.RoleModel
		if msg.Role == models.RoleUser {
			role = llm.RoleUser
		}
		contents = append(contents, llm.Content{
			Role:  role,
			Parts: []llm.Part{{Text: msg.Content}},
		})
	}

	return contents, nil
}

// streamErrorMessage converts an upstream failure into the human-readable
// reason carried by the in-band error event.
func streamErrorMessage(err error) string {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), llm.IsRateLimited(err):
		return "Service temporarily unavailable. Please try again later."
	case errors.Is(err, context.Canceled):
		return "Request cancelled"
	default:
		return "Failed to generate response"
	}
}
