// Package settings serves the configuration overlay through a short TTL
// cache so read paths do not hit the document store on every request.
package settings

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hostkita/panelstore/internal/models"
	"github.com/hostkita/panelstore/internal/pricing"
	"github.com/hostkita/panelstore/internal/repository"
)

// Loader is the slice of the repository the cache needs.
type Loader interface {
	Load(ctx context.Context) (*repository.Document, error)
}

// Cache is a TTL-cached view of the persisted settings. Load failures fall
// back to the last good value, or to static defaults when nothing has been
// fetched yet; settings reads never surface errors.
type Cache struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	cached    models.Settings
	haveValue bool
	fetchedAt time.Time
}

// NewCache creates a settings cache with the given TTL.
func NewCache(loader Loader, ttl time.Duration) *Cache {
	return &Cache{
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the current settings, refreshing from the store when the
// cached copy is older than the TTL.
func (c *Cache) Get(ctx context.Context) models.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.haveValue && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.cached
	}

	doc, err := c.loader.Load(ctx)
	if err != nil {
		log.Printf("[settings] Load failed, serving %s: %v", c.fallbackName(), err)
		return c.fallback()
	}

	c.cached = doc.Settings
	c.haveValue = true
	c.fetchedAt = c.now()
	return c.cached
}

// Invalidate drops the cached copy so the next Get refreshes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.haveValue = false
}

func (c *Cache) fallback() models.Settings {
	if c.haveValue {
		return c.cached
	}
	return Defaults()
}

func (c *Cache) fallbackName() string {
	if c.haveValue {
		return "stale copy"
	}
	return "defaults"
}

// Defaults returns the static settings used before anything is persisted.
func Defaults() models.Settings {
	return models.Settings{
		Prices: pricing.DefaultPrices(),
	}
}
