package api

import (
	"errors"
	"net/http"
	"strconv"

	"aley/backend/internal/models"
	"aley/backend/internal/service"
	apperrors "aley/backend/pkg/errors"
	"aley/backend/pkg/logger"
	"aley/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// ConversationHandler serves the conversation list/rename/delete endpoints
type ConversationHandler struct {
	conversations *service.ConversationService
	logger        *logger.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations *service.ConversationService, logger *logger.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, logger: logger}
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// List returns one page of the caller's conversations, most recently
// active first.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	conversations, pagination, err := h.conversations.ListPage(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.logger.Error("error listing conversations", "error", err.Error())
		c.Error(apperrors.NewInternalServerError("Failed to fetch conversations"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"pagination":    pagination,
	})
}

// Rename updates a conversation's title
func (h *ConversationHandler) Rename(c *gin.Context) {
	userID := middleware.UserID(c)

	var req models.RenameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("error binding JSON for rename", "error", err.Error())
		c.Error(apperrors.NewInvalidInputError("Conversation ID and title are required"))
		return
	}

	conversation, err := h.conversations.Rename(c.Request.Context(), userID, req.ConversationID, req.Title)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyTitle):
			c.Error(apperrors.NewInvalidInputError("Title is required"))
		case errors.Is(err, service.ErrConversationNotFound):
			c.Error(apperrors.NewNotFoundError("Conversation not found"))
		default:
			h.logger.Error("error renaming conversation", "error", err.Error())
			c.Error(apperrors.NewInternalServerError("Failed to update conversation"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Conversation updated successfully",
		"conversation": gin.H{
			"id":            conversation.ID,
			"title":         conversation.Title,
			"lastMessageAt": conversation.LastMessageAt,
			"createdAt":     conversation.CreatedAt,
			"updatedAt":     conversation.UpdatedAt,
		},
	})
}

// Delete removes a conversation and all of its messages
func (h *ConversationHandler) Delete(c *gin.Context) {
	userID := middleware.UserID(c)

	conversationID := c.Query("id")
	if conversationID == "" {
		c.Error(apperrors.NewInvalidInputError("Conversation ID is required"))
		return
	}

	if err := h.conversations.Delete(c.Request.Context(), userID, conversationID); err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			c.Error(apperrors.NewNotFoundError("Conversation not found"))
		default:
			h.logger.Error("error deleting conversation", "error", err.Error())
			c.Error(apperrors.NewInternalServerError("Failed to delete conversation"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Conversation deleted successfully",
	})
}
