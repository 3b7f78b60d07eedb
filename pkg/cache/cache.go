package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"aley/backend/internal/models"
)

// PreviewCache caches conversation last-message previews in Redis so the
// conversation list does not hit the messages table once per row. All
// methods are nil-safe: a nil *PreviewCache behaves as a permanent miss,
// which keeps the store layers free of enabled/disabled branching.
type PreviewCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a preview cache backed by the given Redis address.
// Returns nil when addr is empty (caching disabled).
func New(addr string, ttl time.Duration) *PreviewCache {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	return &PreviewCache{
		client: client,
		ttl:    ttl,
	}
}

func previewKey(conversationID string) string {
	return "conv:preview:" + conversationID
}

// GetPreview returns the cached preview for a conversation, or ok=false on
// a miss or any Redis failure (a broken cache must never fail a request).
func (c *PreviewCache) GetPreview(ctx context.Context, conversationID string) (*models.MessagePreview, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, previewKey(conversationID)).Result()
	if err != nil {
		return nil, false
	}

	var preview models.MessagePreview
	if err := json.Unmarshal([]byte(raw), &preview); err != nil {
		return nil, false
	}

	return &preview, true
}

// SetPreview stores the preview for a conversation. Errors are dropped;
// the next read simply misses.
func (c *PreviewCache) SetPreview(ctx context.Context, conversationID string, preview models.MessagePreview) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(preview)
	if err != nil {
		return
	}

	c.client.Set(ctx, previewKey(conversationID), raw, c.ttl)
}

// DropPreview removes the cached preview, used on conversation delete.
func (c *PreviewCache) DropPreview(ctx context.Context, conversationID string) {
	if c == nil {
		return
	}

	c.client.Del(ctx, previewKey(conversationID))
}

// Ping verifies the Redis connection at startup
func (c *PreviewCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
