package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aley/backend/internal/llm"
	"aley/backend/internal/models"
	"aley/backend/internal/service"
	"aley/backend/pkg/config"
	"aley/backend/pkg/di"
	"aley/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeCompleter struct {
	fragments []string
	err       error
}

func (f *fakeCompleter) StreamCompletion(ctx context.Context, contents []llm.Content, onText func(string) error) error {
	if f.err != nil {
		return f.err
	}
	for _, fragment := range f.fragments {
		if err := onText(fragment); err != nil {
			return err
		}
	}
	return nil
}

func newTestRouter(t *testing.T, completer service.Completer) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Message{}))

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.JWT.Secret = "router-test-secret"
	cfg.JWT.Expiry = time.Hour
	cfg.LLM.ContextWindow = 20
	cfg.Logging.Level = "error"
	cfg.Security.AllowedOrigins = []string{"*"}

	log := logger.New(logger.Config{Level: "error", Output: io.Discard})

	container := di.New(db, cfg, log, completer)
	r := New(container)
	r.SetupRoutes()

	return r.Engine, db
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func signup(t *testing.T, engine *gin.Engine, name, email string) string {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name": name, "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["token"].(string)
}

func TestAuthFlow(t *testing.T) {
	engine, _ := newTestRouter(t, &fakeCompleter{})

	rec := doJSON(t, engine, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name": "Alice", "email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode(t, rec)
	assert.NotEmpty(t, created["token"])
	userID := created["user"].(map[string]any)["id"].(string)

	// Duplicate signup is rejected
	rec = doJSON(t, engine, http.MethodPost, "/api/auth/signup", "", gin.H{
		"name": "Clone", "email": "alice@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Login and verify round-trip the same identity
	rec = doJSON(t, engine, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode(t, rec)["token"].(string)

	rec = doJSON(t, engine, http.MethodGet, "/api/auth/verify", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	verified := decode(t, rec)
	assert.Equal(t, true, verified["valid"])
	assert.Equal(t, userID, verified["user"].(map[string]any)["id"])

	// Wrong password
	rec = doJSON(t, engine, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	engine, _ := newTestRouter(t, &fakeCompleter{})

	rec := doJSON(t, engine, http.MethodGet, "/api/chat/conversations", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTH_REQUIRED", decode(t, rec)["code"])

	rec = doJSON(t, engine, http.MethodGet, "/api/chat/conversations", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", decode(t, rec)["code"])
}

func TestOwnershipIsolation(t *testing.T) {
	engine, db := newTestRouter(t, &fakeCompleter{})

	aliceToken := signup(t, engine, "Alice", "alice@example.com")
	bobToken := signup(t, engine, "Bob", "bob@example.com")

	var alice models.User
	require.NoError(t, db.First(&alice, "email = ?", "alice@example.com").Error)
	conv := models.Conversation{UserID: alice.ID, Title: "Private", LastMessageAt: time.Now()}
	require.NoError(t, db.Create(&conv).Error)

	// Bob sees not-found everywhere, never Alice's data
	rec := doJSON(t, engine, http.MethodPatch, "/api/chat/conversations", bobToken, gin.H{
		"conversationId": conv.ID, "title": "Hijacked",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, engine, http.MethodDelete, "/api/chat/conversations?id="+conv.ID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, engine, http.MethodGet, "/api/chat/history?conversationId="+conv.ID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec)["code"])

	// The owner still can
	rec = doJSON(t, engine, http.MethodGet, "/api/chat/history?conversationId="+conv.ID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConversationLifecycle(t *testing.T) {
	engine, db := newTestRouter(t, &fakeCompleter{fragments: []string{"Hi ", "Alice"}})

	token := signup(t, engine, "Alice", "alice@example.com")

	// First send creates the conversation
	rec := doJSON(t, engine, http.MethodPost, "/api/chat/send", token, gin.H{"message": "Hello!"})
	require.Equal(t, http.StatusOK, rec.Code)

	var conv models.Conversation
	require.NoError(t, db.First(&conv).Error)

	// It shows up in the list with a preview of the assistant reply
	rec = doJSON(t, engine, http.MethodGet, "/api/chat/conversations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode(t, rec)
	conversations := listed["conversations"].([]any)
	require.Len(t, conversations, 1)
	preview := conversations[0].(map[string]any)["preview"].(map[string]any)
	assert.Equal(t, "Hi Alice", preview["content"])

	// Rename
	rec = doJSON(t, engine, http.MethodPatch, "/api/chat/conversations", token, gin.H{
		"conversationId": conv.ID, "title": "Greetings",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Whitespace title is rejected
	rec = doJSON(t, engine, http.MethodPatch, "/api/chat/conversations", token, gin.H{
		"conversationId": conv.ID, "title": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Delete cascades; history then reports not-found
	rec = doJSON(t, engine, http.MethodDelete, "/api/chat/conversations?id="+conv.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, engine, http.MethodGet, "/api/chat/history?conversationId="+conv.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var messageCount int64
	require.NoError(t, db.Model(&models.Message{}).Count(&messageCount).Error)
	assert.Zero(t, messageCount)
}

func parseStream(t *testing.T, body string) []service.StreamEvent {
	t.Helper()
	var events []service.StreamEvent
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev service.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func TestSendStreamsEvents(t *testing.T) {
	engine, _ := newTestRouter(t, &fakeCompleter{fragments: []string{"stream", "ed"}})

	token := signup(t, engine, "Alice", "alice@example.com")

	rec := doJSON(t, engine, http.MethodPost, "/api/chat/send", token, gin.H{"message": "Hello!"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := parseStream(t, rec.Body.String())
	require.Len(t, events, 5)
	assert.Equal(t, "userMessage", events[0].Type)
	assert.Equal(t, "conversationId", events[1].Type)
	assert.Equal(t, "stream", events[2].Type)
	assert.Equal(t, "stream", events[3].Type)
	assert.Equal(t, "complete", events[4].Type)

	userMessage := events[0].Data.(map[string]any)
	assert.Equal(t, "Hello!", userMessage["content"])
	assert.Equal(t, "user", userMessage["role"])

	complete := events[4].Data.(map[string]any)
	assert.Equal(t, "streamed", complete["content"])
	assert.Equal(t, "assistant", complete["role"])
}

func TestSendValidation(t *testing.T) {
	engine, db := newTestRouter(t, &fakeCompleter{})
	token := signup(t, engine, "Alice", "alice@example.com")

	rec := doJSON(t, engine, http.MethodPost, "/api/chat/send", token, gin.H{"message": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decode(t, rec)["code"])

	rec = doJSON(t, engine, http.MethodPost, "/api/chat/send", token, gin.H{
		"message": strings.Repeat("x", 10001),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Message is too long (max 10,000 characters)", decode(t, rec)["error"])

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSendUpstreamFailureIsInBand(t *testing.T) {
	engine, db := newTestRouter(t, &fakeCompleter{
		err: &llm.APIError{StatusCode: 500, Message: "upstream broke"},
	})
	token := signup(t, engine, "Alice", "alice@example.com")

	rec := doJSON(t, engine, http.MethodPost, "/api/chat/send", token, gin.H{"message": "Hello!"})

	// Headers were committed before the failure, so the status stays 200
	// and the failure arrives as an error event.
	require.Equal(t, http.StatusOK, rec.Code)
	events := parseStream(t, rec.Body.String())
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "error", last.Type)
	assert.Equal(t, "Failed to generate response", last.Data)

	// The user turn is durable even though the stream failed
	var messages []models.Message
	require.NoError(t, db.Find(&messages).Error)
	require.Len(t, messages, 1)
	assert.Equal(t, models.RoleUser, messages[0].Role)
}

func TestProfileFlow(t *testing.T) {
	engine, _ := newTestRouter(t, &fakeCompleter{fragments: []string{"ok"}})
	token := signup(t, engine, "Alice", "alice@example.com")

	// A send gives the profile some statistics
	rec := doJSON(t, engine, http.MethodPost, "/api/chat/send", token, gin.H{"message": "Hello!"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, engine, http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode(t, rec)
	stats := profile["statistics"].(map[string]any)
	assert.Equal(t, float64(1), stats["totalConversations"])
	assert.Equal(t, float64(2), stats["totalMessages"])

	// Partial update composes the display name and keeps defaults
	rec = doJSON(t, engine, http.MethodPut, "/api/user/profile", token, gin.H{
		"firstName": "Alice",
		"lastName":  "Doe",
		"bio":       "Chess enjoyer",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "Alice Doe", updated["name"])
	assert.Equal(t, "Chess enjoyer", updated["bio"])
	assert.Equal(t, true, updated["preferences"].(map[string]any)["notifications"])

	// Taking another user's email is rejected and nothing changes
	signup(t, engine, "Bob", "bob@example.com")
	rec = doJSON(t, engine, http.MethodPut, "/api/user/profile", token, gin.H{
		"email": "bob@example.com",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, engine, http.MethodGet, "/api/user/profile", token, nil)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
}

func TestHistoryIndexSearch(t *testing.T) {
	engine, _ := newTestRouter(t, &fakeCompleter{fragments: []string{"They are tall"}})
	token := signup(t, engine, "Alice", "alice@example.com")

	rec := doJSON(t, engine, http.MethodPost, "/api/chat/send", token, gin.H{"message": "Tell me about giraffes"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, engine, http.MethodPost, "/api/chat/send", token, gin.H{"message": "Unrelated topic"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, engine, http.MethodGet, "/api/chat/history?search=giraffe", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	index := decode(t, rec)
	conversations := index["conversations"].([]any)
	require.Len(t, conversations, 1)

	pagination := index["pagination"].(map[string]any)
	assert.Equal(t, float64(1), pagination["totalCount"])
}

func TestHealth(t *testing.T) {
	engine, _ := newTestRouter(t, &fakeCompleter{})

	rec := doJSON(t, engine, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	assert.Equal(t, "ok", payload["status"])
}
