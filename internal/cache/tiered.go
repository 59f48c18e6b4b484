package cache

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/TJerry3s/SCI-90test/internal/domain"
)

// TieredCache checks the memory tier before the shared tier and back-fills
// memory on a shared hit. Shared tier failures are logged and treated as misses.
type TieredCache struct {
	memory *MemoryCache
	shared domain.ResultCache
	log    *logrus.Logger
}

// NewTieredCache creates a tiered cache. shared may be nil, in which case
// only the memory tier is used.
func NewTieredCache(memory *MemoryCache, shared domain.ResultCache, logger *logrus.Logger) *TieredCache {
	return &TieredCache{
		memory: memory,
		shared: shared,
		log:    logger,
	}
}

// Get looks up token in memory, then in the shared tier.
func (c *TieredCache) Get(ctx context.Context, token string) (*domain.ResultRecord, bool, error) {
	if result, ok, _ := c.memory.Get(ctx, token); ok {
		c.log.WithFields(logrus.Fields{
			"token":      token,
			"cache_tier": "memory",
		}).Debug("Cache hit")
		return result, true, nil
	}
	if c.shared == nil {
		return nil, false, nil
	}

	result, ok, err := c.shared.Get(ctx, token)
	if err != nil {
		c.log.WithError(err).WithField("token", token).Warn("Shared cache lookup failed")
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}

	c.log.WithFields(logrus.Fields{
		"token":      token,
		"cache_tier": "shared",
	}).Debug("Cache hit")
	_ = c.memory.Set(ctx, token, result)
	return result, true, nil
}

// Set writes token to both tiers.
func (c *TieredCache) Set(ctx context.Context, token string, result *domain.ResultRecord) error {
	_ = c.memory.Set(ctx, token, result)
	if c.shared == nil {
		return nil
	}
	if err := c.shared.Set(ctx, token, result); err != nil {
		c.log.WithError(err).WithField("token", token).Warn("Shared cache write failed")
	}
	return nil
}

// Delete evicts token from both tiers.
func (c *TieredCache) Delete(ctx context.Context, token string) error {
	_ = c.memory.Delete(ctx, token)
	if c.shared == nil {
		return nil
	}
	if err := c.shared.Delete(ctx, token); err != nil {
		c.log.WithError(err).WithField("token", token).Warn("Shared cache delete failed")
	}
	return nil
}

var _ domain.ResultCache = (*TieredCache)(nil)
