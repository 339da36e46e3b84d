package model

import (
	"sync"

	"github.com/Faultbox/hungryfish/pkg/scenegraph"
)

type cacheEntry struct {
	handle uint32
	typ    scenegraph.TextureType
}

// TextureCache maps texture identities to uploaded handles for one model.
// It is safe for concurrent use, and Resolve loads each identity at most once.
type TextureCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	order   []string
	hits    int
	misses  int
}

// NewTextureCache creates an empty cache.
func NewTextureCache() *TextureCache {
	return &TextureCache{
		entries: make(map[string]cacheEntry),
	}
}

// Lookup returns the handle stored for identity.
func (c *TextureCache) Lookup(identity string) (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(identity)
}

func (c *TextureCache) lookupLocked(identity string) (uint32, bool) {
	e, ok := c.entries[identity]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return e.handle, ok
}

// Store records a handle. An existing entry for identity is kept.
func (c *TextureCache) Store(identity string, handle uint32, typ scenegraph.TextureType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeLocked(identity, handle, typ)
}

func (c *TextureCache) storeLocked(identity string, handle uint32, typ scenegraph.TextureType) {
	if _, ok := c.entries[identity]; ok {
		return
	}
	c.entries[identity] = cacheEntry{handle: handle, typ: typ}
	c.order = append(c.order, identity)
}

// Resolve returns the cached handle for identity, calling load on a miss and
// caching its result. hit reports whether load was skipped. Failed loads are
// not cached.
func (c *TextureCache) Resolve(identity string, typ scenegraph.TextureType, load func() (uint32, error)) (handle uint32, hit bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.lookupLocked(identity); ok {
		return h, true, nil
	}
	h, err := load()
	if err != nil {
		return 0, false, err
	}
	c.storeLocked(identity, h, typ)
	return h, false, nil
}

// Len returns the number of cached textures.
func (c *TextureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns lookup hits and misses since creation.
func (c *TextureCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Handles returns every cached handle in insertion order.
func (c *TextureCache) Handles() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint32, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id].handle)
	}
	return out
}

// Type returns the slot type the identity was first loaded for.
func (c *TextureCache) Type(identity string) (scenegraph.TextureType, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[identity]
	return e.typ, ok
}

// Clear drops every entry and resets the stats.
func (c *TextureCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.order = nil
	c.hits, c.misses = 0, 0
}
