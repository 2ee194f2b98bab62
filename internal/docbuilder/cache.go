package docbuilder

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/pkgdocs/internal/storage"
)

// LocalCache remembers packages attempted by this process. It only grows and
// is never persisted.
type LocalCache struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewLocalCache returns an empty cache.
func NewLocalCache() *LocalCache {
	return &LocalCache{ids: make(map[string]struct{})}
}

// Contains reports whether id was attempted.
func (c *LocalCache) Contains(id storage.PackageID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[id.String()]
	return ok
}

// Add records id.
func (c *LocalCache) Add(id storage.PackageID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[id.String()] = struct{}{}
}

// Len returns the number of recorded identities.
func (c *LocalCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

// DurableCache answers whether the persistence layer already knows a package.
type DurableCache interface {
	Contains(ctx context.Context, id storage.PackageID) (bool, error)
}

// Caches are the two skip caches consulted before every build.
type Caches struct {
	Local *LocalCache
	// Durable defaults to the release rows of the attempt's storage session.
	Durable DurableCache
}

// releaseCache asks the open session for a release row.
type releaseCache struct {
	conn storage.Conn
}

func (r releaseCache) Contains(ctx context.Context, id storage.PackageID) (bool, error) {
	return r.conn.ReleaseExists(ctx, id)
}
