package api

import (
	"net/http"
	"time"

	"aley/backend/pkg/cache"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler reports liveness plus the state of the backing stores
type HealthHandler struct {
	db       *gorm.DB
	previews *cache.PreviewCache
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, previews *cache.PreviewCache) *HealthHandler {
	return &HealthHandler{db: db, previews: previews}
}

// Check handles GET /api/health. Degraded dependencies flip the status
// to 503 so load balancers stop routing here.
func (h *HealthHandler) Check(c *gin.Context) {
	status := "ok"
	httpStatus := http.StatusOK
	components := gin.H{}

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		components["database"] = "unreachable"
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else {
		components["database"] = "ok"
	}

	if h.previews != nil {
		if err := h.previews.Ping(c.Request.Context()); err != nil {
			components["cache"] = "unreachable"
		} else {
			components["cache"] = "ok"
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":     status,
		"timestamp":  time.Now(),
		"components": components,
	})
}
