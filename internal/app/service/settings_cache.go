package service

import (
	"context"
	"errors"
	"fmt"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"
	"shuffle_arena/internal/domain/repository"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SettingsCache holds the event settings for at most ttl before reading the
// store again. Writers call Invalidate so their own change is visible on the
// next Get.
type SettingsCache struct {
	repo     repository.SettingsRepository
	clock    clockwork.Clock
	ttl      time.Duration
	defaults model.EventSettings

	mu        sync.Mutex
	value     model.EventSettings
	fetchedAt time.Time
	valid     bool
}

func NewSettingsCache(repo repository.SettingsRepository, clock clockwork.Clock, ttl time.Duration, defaults model.EventSettings) *SettingsCache {
	return &SettingsCache{repo: repo, clock: clock, ttl: ttl, defaults: defaults}
}

// Get returns the cached settings, falling back to the defaults when none
// have been stored.
func (c *SettingsCache) Get(ctx context.Context) (model.EventSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.valid && now.Sub(c.fetchedAt) < c.ttl {
		return c.value, nil
	}

	stored, err := c.repo.GetSettings(ctx)
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.value = c.defaults
	case err != nil:
		return model.EventSettings{}, fmt.Errorf("load event settings: %w", err)
	default:
		c.value = *stored
	}
	c.fetchedAt = now
	c.valid = true
	return c.value, nil
}

func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
