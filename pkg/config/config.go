package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
	}

	// Database configuration
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
	}

	// JWT configuration
	JWT struct {
		Secret string
		Expiry time.Duration
	}

	// LLM upstream configuration
	LLM struct {
		APIKey          string
		BaseURL         string
		Model           string
		MaxOutputTokens int
		Temperature     float64
		TopP            float64
		TopK            int
		ContextWindow   int
		Timeout         time.Duration
	}

	// Cache settings
	Cache struct {
		Enabled    bool
		RedisAddr  string
		PreviewTTL time.Duration
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Security configuration
	Security struct {
		AllowedOrigins []string
	}

	// OpenAPI request validation
	OpenAPI struct {
		SchemaPath string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates the Config instance from environment variables.
// Uses a singleton so every caller observes the same configuration.
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		instance.Server.Port = getEnvString("PORT", "8080")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)

		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "aley")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)

		instance.JWT.Secret = getEnvString("JWT_SECRET", "")
		instance.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 7*24*time.Hour)

		instance.LLM.APIKey = getEnvString("GEMINI_API_KEY", "")
		instance.LLM.BaseURL = getEnvString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
		instance.LLM.Model = getEnvString("GEMINI_MODEL", "gemini-2.5-flash")
		instance.LLM.MaxOutputTokens = getEnvInt("LLM_MAX_OUTPUT_TOKENS", 2048)
		instance.LLM.Temperature = getEnvFloat("LLM_TEMPERATURE", 0.7)
		instance.LLM.TopP = getEnvFloat("LLM_TOP_P", 0.8)
		instance.LLM.TopK = getEnvInt("LLM_TOP_K", 40)
		instance.LLM.ContextWindow = getEnvInt("LLM_CONTEXT_WINDOW", 20)
		instance.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", 2*time.Minute)

		instance.Cache.RedisAddr = getEnvString("REDIS_URL", "")
		instance.Cache.Enabled = instance.Cache.RedisAddr != ""
		instance.Cache.PreviewTTL = getEnvDuration("CACHE_PREVIEW_TTL", 5*time.Minute)

		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		instance.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})

		instance.OpenAPI.SchemaPath = getEnvString("OPENAPI_SCHEMA_PATH", "api/openapi.yaml")
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
