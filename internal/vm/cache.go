package vm

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the shared-program cache.
const DefaultCacheSize = 4096

// Cache interns compiled programs by structural fingerprint so every
// cell with the same formula shape evaluates the same *Program.
type Cache struct {
	lru    *lru.Cache[uint64, *Program]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache builds a cache holding up to size programs; size <= 0 uses
// the default.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, _ := lru.New[uint64, *Program](size)
	return &Cache{lru: l}
}

// Intern returns the shared instance for p's fingerprint, storing p
// when it is the first of its shape.
func (c *Cache) Intern(p *Program) *Program {
	key := p.Fingerprint()
	if have, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return have
	}
	c.misses.Add(1)
	c.lru.Add(key, p)
	return p
}

// Stats reports cache telemetry: hit and miss counts and the number
// of distinct programs currently held.
func (c *Cache) Stats() (hits, misses uint64, programs int) {
	return c.hits.Load(), c.misses.Load(), c.lru.Len()
}

// Purge drops every cached program.
func (c *Cache) Purge() {
	c.lru.Purge()
}
