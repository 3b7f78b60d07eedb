package middleware

import (
	"strings"

	"aley/backend/pkg/errors"
	"aley/backend/pkg/jwt"
	"aley/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuth for downstream handlers
const (
	ContextClaims = "claims"
	ContextUserID = "userId"
)

// JWTAuth checks the Authorization header for a valid bearer token and adds
// the embedded identity to the gin context. A missing or malformed header is
// distinguished from a failed signature/expiry check.
func JWTAuth(jwtService *jwt.Service, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.Error(errors.NewUnauthenticatedError("No token provided"))
			c.Abort()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			log.Warn("invalid bearer token", "error", err.Error())
			c.Error(errors.NewInvalidTokenError("Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ContextClaims, claims)
		c.Set(ContextUserID, claims.UserID)

		c.Next()
	}
}

// UserID returns the authenticated user id from the context. The empty
// string means the route was not behind JWTAuth.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// Claims returns the full token claims from the context, or nil.
func Claims(c *gin.Context) *jwt.Claims {
	if v, ok := c.Get(ContextClaims); ok {
		if claims, ok := v.(*jwt.Claims); ok {
			return claims
		}
	}
	return nil
}
