package service

import (
	"fmt"
	"io"
	"testing"
	"time"

	"aley/backend/internal/models"
	"aley/backend/pkg/jwt"
	"aley/backend/pkg/logger"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Message{}))
	return db
}

func newTestJWT() *jwt.Service {
	return jwt.NewService("test-secret", time.Hour)
}

func newTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Name:     "Test User",
		Email:    email,
		Password: "password123",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestConversation(t *testing.T, db *gorm.DB, userID, title string, lastMessageAt time.Time) *models.Conversation {
	t.Helper()

	conv := &models.Conversation{
		UserID:        userID,
		Title:         title,
		LastMessageAt: lastMessageAt,
	}
	require.NoError(t, db.Create(conv).Error)
	return conv
}

func addTestMessage(t *testing.T, db *gorm.DB, conversationID, role, content string, createdAt time.Time) *models.Message {
	t.Helper()

	msg := &models.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      createdAt,
	}
	require.NoError(t, db.Create(msg).Error)
	return msg
}
