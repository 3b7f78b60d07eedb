package api

import (
	"errors"
	"net/http"

	"aley/backend/internal/models"
	"aley/backend/internal/service"
	apperrors "aley/backend/pkg/errors"
	"aley/backend/pkg/logger"
	"aley/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// UserHandler serves the profile endpoints
type UserHandler struct {
	users  *service.UserService
	logger *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *service.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// GetProfile returns the authenticated user's profile with activity
// statistics.
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := middleware.UserID(c)

	user, stats, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.Error(apperrors.NewNotFoundError("User not found"))
		default:
			h.logger.Error("error fetching profile", "error", err.Error())
			c.Error(apperrors.NewInternalServerError("Failed to fetch profile"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       user.ToResponse(),
		"statistics": stats,
	})
}

// UpdateProfile applies a partial update to the authenticated user's
// profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := middleware.UserID(c)

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("error binding JSON for profile update", "error", err.Error())
		c.Error(apperrors.NewInvalidInputError("Invalid request format"))
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			c.Error(apperrors.NewInvalidInputError("Invalid email address"))
		case errors.Is(err, service.ErrEmailInUse):
			c.Error(apperrors.NewInvalidInputError("Email is already in use"))
		case errors.Is(err, service.ErrUserNotFound):
			c.Error(apperrors.NewNotFoundError("User not found"))
		default:
			h.logger.Error("error updating profile", "error", err.Error())
			c.Error(apperrors.NewInternalServerError("Failed to update profile"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user.ToResponse(),
	})
}
