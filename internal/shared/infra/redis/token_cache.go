package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cornjacket/commerce-events/internal/client/ims"
	"github.com/cornjacket/commerce-events/internal/shared/domain/clock"
)

// TokenCache stores IMS access tokens until they expire.
type TokenCache struct {
	client goredis.UniversalClient
	prefix string
}

// NewTokenCache creates a TokenCache with keys under prefix.
func NewTokenCache(client goredis.UniversalClient, prefix string) *TokenCache {
	return &TokenCache{client: client, prefix: prefix}
}

// Get returns nil, nil on a cache miss.
func (c *TokenCache) Get(ctx context.Context, key string) (*ims.Token, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token ims.Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}

// Set stores token with a TTL matching its expiry. Expired tokens are not stored.
func (c *TokenCache) Set(ctx context.Context, key string, token *ims.Token) error {
	ttl := token.ExpiresAt.Sub(clock.Now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl.Truncate(time.Millisecond)).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}
