package router

import (
	"strings"

	"aley/backend/internal/api"
	"aley/backend/pkg/di"
	"aley/backend/pkg/errors"
	"aley/backend/pkg/logger"
	"aley/backend/pkg/middleware"
	"aley/backend/pkg/observability"
	"aley/backend/pkg/validator"

	"github.com/gin-gonic/gin"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	if container.Config.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger first so every request carries a request-scoped logger,
	// then error translation, then panic recovery.
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(corsMiddleware(container.Config.Security.AllowedOrigins))

	if schemaPath := container.Config.OpenAPI.SchemaPath; schemaPath != "" {
		openapiValidator, err := validator.NewOpenAPIValidator(schemaPath)
		if err != nil {
			container.Logger.Warn("request validation disabled",
				"schema", schemaPath,
				"error", err.Error(),
			)
		} else {
			engine.Use(openapiValidator.Middleware())
		}
	}

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	jwtAuth := middleware.JWTAuth(r.Container.JWTService, r.Logger)

	authHandler := api.NewAuthHandler(r.Container.UserService, r.Logger)
	userHandler := api.NewUserHandler(r.Container.UserService, r.Logger)
	conversationHandler := api.NewConversationHandler(r.Container.ConversationService, r.Logger)
	historyHandler := api.NewHistoryHandler(r.Container.HistoryService, r.Logger)
	chatHandler := api.NewChatHandler(r.Container.ChatService, r.Logger)
	healthHandler := api.NewHealthHandler(r.Container.DB, r.Container.Previews)

	r.Engine.GET("/metrics", observability.MetricsHandler())

	apiRoutes := r.Engine.Group("/api")
	{
		apiRoutes.GET("/health", healthHandler.Check)

		auth := apiRoutes.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.GET("/verify", jwtAuth, authHandler.Verify)
		}

		chat := apiRoutes.Group("/chat", jwtAuth)
		{
			chat.GET("/conversations", conversationHandler.List)
			chat.PATCH("/conversations", conversationHandler.Rename)
			chat.DELETE("/conversations", conversationHandler.Delete)
			chat.GET("/history", historyHandler.Get)
			chat.POST("/send", chatHandler.Send)
		}

		user := apiRoutes.Group("/user", jwtAuth)
		{
			user.GET("/profile", userHandler.GetProfile)
			user.PUT("/profile", userHandler.UpdateProfile)
		}
	}
}

// corsMiddleware allows the configured front-end origins
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && containsOrigin(allowedOrigins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func containsOrigin(origins []string, origin string) bool {
	for _, o := range origins {
		if strings.EqualFold(strings.TrimSpace(o), origin) {
			return true
		}
	}
	return false
}
