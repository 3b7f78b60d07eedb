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

// AuthHandler handles signup, login and token verification
type AuthHandler struct {
	users  *service.UserService
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *service.UserService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// Signup handles user registration
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("error binding JSON for signup", "error", err.Error())
		c.Error(apperrors.NewInvalidInputError("Missing required fields"))
		return
	}

	user, token, err := h.users.CreateUser(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserAlreadyExists):
			c.Error(apperrors.NewInvalidInputError("User with this email already exists"))
		default:
			h.logger.Error("error creating user", "error", err.Error())
			c.Error(apperrors.NewInternalServerError("Failed to create user account"))
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"token":   token,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("error binding JSON for login", "error", err.Error())
		c.Error(apperrors.NewInvalidInputError("Missing required fields"))
		return
	}

	user, token, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.Error(apperrors.NewUnauthenticatedError("Invalid email or password"))
		default:
			h.logger.Error("error during login", "error", err.Error())
			c.Error(apperrors.NewInternalServerError("An error occurred during login"))
		}
		return
	}

	h.logger.Info("user logged in",
		"userID", user.ID,
		"email", user.Email,
	)

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

// Verify confirms the bearer token and echoes the embedded identity.
// Runs behind the auth middleware, so reaching here means the token held;
// no database round trip is made.
func (h *AuthHandler) Verify(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		c.Error(apperrors.NewUnauthenticatedError("Authentication required"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"user": gin.H{
			"id":    claims.UserID,
			"email": claims.Email,
			"name":  claims.Name,
		},
	})
}
