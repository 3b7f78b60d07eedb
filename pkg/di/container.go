package di

import (
	"aley/backend/internal/service"
	"aley/backend/pkg/cache"
	"aley/backend/pkg/config"
	"aley/backend/pkg/jwt"
	"aley/backend/pkg/logger"
	"aley/backend/pkg/resilience"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application. Everything is
// constructed once here and injected; no package reaches for globals.
type Container struct {
	DB       *gorm.DB
	Config   *config.Config
	Logger   *logger.Logger
	Previews *cache.PreviewCache
	Breaker  *resilience.CircuitBreaker

	JWTService          *jwt.Service
	UserService         *service.UserService
	ConversationService *service.ConversationService
	HistoryService      *service.HistoryService
	ChatService         *service.ChatService
}

// New creates a new dependency injection container. The completer is
// passed in so tests can substitute a fake upstream.
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger, completer service.Completer) *Container {
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)

	previews := cache.New(cfg.Cache.RedisAddr, cfg.Cache.PreviewTTL)
	breaker := resilience.New(resilience.DefaultConfig("llm"), log)

	userService := service.NewUserService(db, jwtService)
	conversationService := service.NewConversationService(db, previews)
	historyService := service.NewHistoryService(db)
	chatService := service.NewChatService(db, completer, breaker, previews, log, cfg.LLM.ContextWindow)

	return &Container{
		DB:       db,
		Config:   cfg,
		Logger:   log,
		Previews: previews,
		Breaker:  breaker,

		JWTService:          jwtService,
		UserService:         userService,
		ConversationService: conversationService,
		HistoryService:      historyService,
		ChatService:         chatService,
	}
}
