package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aley/backend/internal/llm"
	"aley/backend/internal/models"
	"aley/backend/pkg/config"
	"aley/backend/pkg/di"
	"aley/backend/pkg/logger"
	"aley/backend/pkg/observability"
	"aley/backend/pkg/router"
	"aley/backend/pkg/secrets"
)

func main() {
	cfg := config.New()

	log := logger.New(logger.Config{
		Level: cfg.Logging.Level,
		JSON:  cfg.Logging.Format == "json",
	})
	logger.SetGlobal(log)

	ctx := context.Background()

	// Secrets come from Vault when enabled, the environment otherwise
	secretsManager, err := secrets.NewVaultManager(log)
	if err != nil {
		log.Error("failed to initialize secrets manager", "error", err.Error())
		os.Exit(1)
	}
	cfg.JWT.Secret = secretsManager.GetSecretWithDefault(ctx, "JWT_SECRET", cfg.JWT.Secret)
	cfg.LLM.APIKey = secretsManager.GetSecretWithDefault(ctx, "GEMINI_API_KEY", cfg.LLM.APIKey)

	if cfg.LLM.APIKey == "" {
		log.Warn("GEMINI_API_KEY is not set, chat completions will fail until it is configured")
	}

	db, err := config.NewDB()
	if err != nil {
		log.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	if err := config.TestConnection(db); err != nil {
		log.Error("database is not reachable", "error", err.Error())
		os.Exit(1)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Message{}); err != nil {
		log.Error("failed to run migrations", "error", err.Error())
		os.Exit(1)
	}

	shutdownTracing, err := observability.SetupTracing("aley-backend")
	if err != nil {
		log.Warn("tracing disabled", "error", err.Error())
		shutdownTracing = func(context.Context) error { return nil }
	}
	if _, err := observability.SetupMetrics(); err != nil {
		log.Warn("metrics disabled", "error", err.Error())
	}

	completer := llm.NewClient(llm.Config{
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Model:           cfg.LLM.Model,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		Temperature:     cfg.LLM.Temperature,
		TopP:            cfg.LLM.TopP,
		TopK:            cfg.LLM.TopK,
		Timeout:         cfg.LLM.Timeout,
	})

	container := di.New(db, cfg, log, completer)

	if err := container.Previews.Ping(ctx); err != nil {
		log.Warn("preview cache unreachable, continuing without it", "error", err.Error())
	}

	r := router.New(container)
	r.SetupRoutes()

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		// No overall write timeout: chat-send streams stay open for the
		// duration of the upstream completion.
	}

	go func() {
		log.Info("server listening", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown failed", "error", err.Error())
	}

	log.Info("server stopped")
}
