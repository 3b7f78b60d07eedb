package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"aley/backend/internal/models"
	"aley/backend/internal/service"
	apperrors "aley/backend/pkg/errors"
	"aley/backend/pkg/logger"
	"aley/backend/pkg/middleware"
	"aley/backend/pkg/resilience"

	"github.com/gin-gonic/gin"
)

// ChatHandler serves the chat-send endpoint. The response is an SSE
// stream of typed events once the pipeline passes validation; before
// that, failures come back as plain JSON with an HTTP status.
type ChatHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *service.ChatService, logger *logger.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// Send handles POST /chat/send
func (h *ChatHandler) Send(c *gin.Context) {
	userID := middleware.UserID(c)

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("error binding JSON for chat send", "error", err.Error())
		c.Error(apperrors.NewInvalidInputError("Invalid request format"))
		return
	}

	started := false
	emit := func(event service.StreamEvent) error {
		if !started {
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Writer.WriteHeader(http.StatusOK)
			started = true
		}

		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	err := h.chat.Send(c.Request.Context(), userID, req.Message, req.ConversationID, emit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			c.Error(apperrors.NewInvalidInputError("Message content is required"))
		case errors.Is(err, service.ErrMessageTooLong):
			c.Error(apperrors.NewInvalidInputError("Message is too long (max 10,000 characters)"))
		case errors.Is(err, service.ErrConversationNotFound):
			c.Error(apperrors.NewNotFoundError("Conversation not found"))
		case errors.Is(err, resilience.ErrCircuitOpen):
			c.Error(apperrors.NewUpstreamUnavailableError("Service temporarily unavailable. Please try again later."))
		default:
			h.logger.Error("error processing chat send", "error", err.Error())
			c.Error(apperrors.NewInternalServerError("Failed to process message"))
		}
		return
	}
}
