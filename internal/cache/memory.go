// Package cache keeps recently computed result records so a returning test
// taker can re-display a result without touching the session store.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/TJerry3s/SCI-90test/internal/domain"
)

// Default sizing for the in-process tier.
const (
	DefaultMemorySize = 1000
	DefaultMemoryTTL  = 15 * time.Minute
)

// MemoryCache is a bounded in-process cache with per-entry expiry.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.ResultRecord]
}

// NewMemoryCache creates a memory cache. Non-positive size or ttl fall back
// to the defaults.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *domain.ResultRecord](size, nil, ttl),
	}
}

// Get returns the cached result for token.
func (c *MemoryCache) Get(_ context.Context, token string) (*domain.ResultRecord, bool, error) {
	result, ok := c.lru.Get(token)
	return result, ok, nil
}

// Set stores result under token.
func (c *MemoryCache) Set(_ context.Context, token string, result *domain.ResultRecord) error {
	if result == nil {
		return nil
	}
	c.lru.Add(token, result)
	return nil
}

// Delete evicts token.
func (c *MemoryCache) Delete(_ context.Context, token string) error {
	c.lru.Remove(token)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

var _ domain.ResultCache = (*MemoryCache)(nil)
