package api

import (
	"errors"
	"net/http"

	"aley/backend/internal/service"
	apperrors "aley/backend/pkg/errors"
	"aley/backend/pkg/logger"
	"aley/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// HistoryHandler serves the combined history endpoint: messages of a
// single conversation when conversationId is given, the conversation
// index otherwise.
type HistoryHandler struct {
	history *service.HistoryService
	logger  *logger.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history *service.HistoryService, logger *logger.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, logger: logger}
}

// Get handles GET /chat/history
func (h *HistoryHandler) Get(c *gin.Context) {
	userID := middleware.UserID(c)

	query := service.HistoryQuery{
		Search:     c.Query("search"),
		SortBy:     c.DefaultQuery("sortBy", "newest"),
		FilterDate: c.Query("filterDate"),
		Page:       queryInt(c, "page", 1),
		Limit:      queryInt(c, "limit", 50),
	}

	if conversationID := c.Query("conversationId"); conversationID != "" {
		history, err := h.history.Messages(c.Request.Context(), userID, conversationID, query)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrConversationNotFound):
				c.Error(apperrors.NewNotFoundError("Conversation not found"))
			default:
				h.logger.Error("error fetching conversation history", "error", err.Error())
				c.Error(apperrors.NewInternalServerError("Failed to fetch chat history"))
			}
			return
		}

		c.JSON(http.StatusOK, history)
		return
	}

	index, err := h.history.Index(c.Request.Context(), userID, query)
	if err != nil {
		h.logger.Error("error fetching history index", "error", err.Error())
		c.Error(apperrors.NewInternalServerError("Failed to fetch chat history"))
		return
	}

	c.JSON(http.StatusOK, index)
}
