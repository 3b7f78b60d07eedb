package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"aley/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPage_OrderingAndPagination(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nil)
	ctx := context.Background()
	user := createTestUser(t, db, "alice@example.com")

	base := time.Now().Add(-24 * time.Hour)
	for i := 0; i < 25; i++ {
		createTestConversation(t, db, user.ID, fmt.Sprintf("conv %d", i), base.Add(time.Duration(i)*time.Minute))
	}

	page1, pagination, err := svc.ListPage(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page1, 10)

	// Most recently active first
	assert.Equal(t, "conv 24", page1[0].Title)
	assert.Equal(t, "conv 15", page1[9].Title)

	assert.Equal(t, int64(25), pagination.TotalCount)
	assert.Equal(t, 3, pagination.TotalPages)
	assert.True(t, pagination.HasMore)

	// hasMore == skip + returned < totalCount on every page
	page3, pagination, err := svc.ListPage(ctx, user.ID, 3, 10)
	require.NoError(t, err)
	assert.Len(t, page3, 5)
	assert.False(t, pagination.HasMore)
	assert.Equal(t, 3, pagination.CurrentPage)
}

func TestListPage_PreviewTruncated(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nil)
	ctx := context.Background()
	user := createTestUser(t, db, "alice@example.com")

	now := time.Now()
	conv := createTestConversation(t, db, user.ID, "Chat", now)
	addTestMessage(t, db, conv.ID, models.RoleUser, "short question", now.Add(-time.Minute))
	addTestMessage(t, db, conv.ID, models.RoleAssistant, strings.Repeat("a", 150), now)

	page, _, err := svc.ListPage(ctx, user.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, page, 1)

	require.NotNil(t, page[0].Preview)
	assert.Equal(t, models.RoleAssistant, page[0].Preview.Role)
	assert.Len(t, page[0].Preview.Content, 100)
}

func TestListPage_EmptyConversationHasNilPreview(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nil)
	user := createTestUser(t, db, "alice@example.com")
	createTestConversation(t, db, user.ID, "Empty", time.Now())

	page, _, err := svc.ListPage(context.Background(), user.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Nil(t, page[0].Preview)
}

func TestRename(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nil)
	ctx := context.Background()
	user := createTestUser(t, db, "alice@example.com")
	conv := createTestConversation(t, db, user.ID, "Old title", time.Now())

	renamed, err := svc.Rename(ctx, user.ID, conv.ID, "  New title  ")
	require.NoError(t, err)
	assert.Equal(t, "New title", renamed.Title)

	var reloaded models.Conversation
	require.NoError(t, db.First(&reloaded, "id = ?", conv.ID).Error)
	assert.Equal(t, "New title", reloaded.Title)
}

func TestRename_WhitespaceTitle(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nil)
	user := createTestUser(t, db, "alice@example.com")
	conv := createTestConversation(t, db, user.ID, "Old title", time.Now())

	_, err := svc.Rename(context.Background(), user.ID, conv.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestRename_ForeignOwnerLooksMissing(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nil)
	ctx := context.Background()

	owner := createTestUser(t, db, "alice@example.com")
	intruder := createTestUser(t, db, "bob@example.com")
	conv := createTestConversation(t, db, owner.ID, "Private", time.Now())

	_, err := svc.Rename(ctx, intruder.ID, conv.ID, "Hijacked")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = svc.Rename(ctx, intruder.ID, "no-such-id", "Hijacked")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestDelete_Cascades(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nil)
	ctx := context.Background()
	user := createTestUser(t, db, "alice@example.com")

	now := time.Now()
	conv := createTestConversation(t, db, user.ID, "Doomed", now)
	addTestMessage(t, db, conv.ID, models.RoleUser, "hi", now)
	addTestMessage(t, db, conv.ID, models.RoleAssistant, "hello", now)

	keep := createTestConversation(t, db, user.ID, "Keep", now)
	addTestMessage(t, db, keep.ID, models.RoleUser, "stay", now)

	require.NoError(t, svc.Delete(ctx, user.ID, conv.ID))

	var messageCount int64
	require.NoError(t, db.Model(&models.Message{}).Where("conversation_id = ?", conv.ID).Count(&messageCount).Error)
	assert.Zero(t, messageCount)

	// A subsequent history fetch reports the conversation as missing
	history := NewHistoryService(db)
	_, err := history.Messages(ctx, user.ID, conv.ID, HistoryQuery{})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	// Unrelated conversations are untouched
	require.NoError(t, db.Model(&models.Message{}).Where("conversation_id = ?", keep.ID).Count(&messageCount).Error)
	assert.Equal(t, int64(1), messageCount)
}

func TestDelete_ForeignOwnerLooksMissing(t *testing.T) {
	db := newTestDB(t)
	svc := NewConversationService(db, nil)

	owner := createTestUser(t, db, "alice@example.com")
	intruder := createTestUser(t, db, "bob@example.com")
	conv := createTestConversation(t, db, owner.ID, "Private", time.Now())

	err := svc.Delete(context.Background(), intruder.ID, conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
