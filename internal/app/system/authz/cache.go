// internal/app/system/authz/cache.go
package authz

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IdentityCache memoizes caller identities by user ID.
// Entries never expire; they are dropped only by Invalidate or Clear.
type IdentityCache struct {
	mu      sync.RWMutex
	entries map[primitive.ObjectID]Identity
	gen     uint64
}

// NewIdentityCache returns an empty cache.
func NewIdentityCache() *IdentityCache {
	return &IdentityCache{entries: make(map[primitive.ObjectID]Identity)}
}

// Get returns the cached identity for id.
func (c *IdentityCache) Get(id primitive.ObjectID) (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ident, ok := c.entries[id]
	return ident, ok
}

// Generation returns a counter that moves on every Invalidate and Clear.
// Read it before fetching an identity and pass it to Set.
func (c *IdentityCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Set stores ident under its ID unless the cache was invalidated or cleared
// since gen was read. It reports whether ident was stored.
func (c *IdentityCache) Set(ident Identity, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.entries[ident.ID] = ident
	return true
}

// Invalidate drops the entry for id.
func (c *IdentityCache) Invalidate(id primitive.ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.gen++
}

// Clear drops every entry.
func (c *IdentityCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[primitive.ObjectID]Identity)
	c.gen++
}
