package ims

import (
	"context"
	"sync"
)

// MemoryCache is an in-process TokenCache.
type MemoryCache struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{tokens: make(map[string]*Token)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Token, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens[key], nil
}

func (c *MemoryCache) Set(_ context.Context, key string, token *Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = token
	return nil
}
