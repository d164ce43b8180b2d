package imgport

import (
	"sync"

	"github.com/gogpu/imgport/cache"
)

// ResizeCache memoizes resized copies of one master image, keyed by size.
//
// Entries are only valid for the master they were computed from: replacing
// the master (SetMaster) or calling InvalidateAll drops every entry. Apart
// from that there is no eviction unless a limit was given, so the cache
// holds one entry per distinct size requested since the last change.
//
// ResizeCache is safe for concurrent use.
type ResizeCache struct {
	mu      sync.Mutex
	master  *Image
	entries *cache.Cache[Size, *Image]
}

// NewResizeCache creates an empty cache. limit bounds the number of sizes
// kept (least recently used first out); 0 means unlimited.
func NewResizeCache(limit int) *ResizeCache {
	return &ResizeCache{entries: cache.New[Size, *Image](limit)}
}

// SetMaster makes img the image entries are derived from. A different
// master invalidates the cache.
func (c *ResizeCache) SetMaster(img *Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.master == img {
		return
	}
	c.master = img
	c.entries.Clear()
}

// Master returns the current master image.
func (c *ResizeCache) Master() *Image {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.master
}

// Get returns the cached image for size.
func (c *ResizeCache) Get(size Size) (*Image, bool) {
	return c.entries.Get(size)
}

// Put stores img as the copy for size, replacing any previous entry.
func (c *ResizeCache) Put(size Size, img *Image) {
	c.entries.Set(size, img)
}

// getFor is Get restricted to entries derived from master.
func (c *ResizeCache) getFor(master *Image, size Size) (*Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if master != c.master {
		return nil, false
	}
	return c.entries.Get(size)
}

// putFor stores img only if master is still current, so a resample that
// raced with a data change never poisons the cache. Reports whether it stored.
func (c *ResizeCache) putFor(master *Image, size Size, img *Image) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if master != c.master {
		return false
	}
	c.entries.Set(size, img)
	return true
}

// InvalidateAll drops every entry; the master is kept.
func (c *ResizeCache) InvalidateAll() {
	c.entries.Clear()
}

// Prune drops entries whose size is not in keep and returns how many went.
func (c *ResizeCache) Prune(keep []Size) int {
	valid := make(map[Size]struct{}, len(keep))
	for _, s := range keep {
		valid[s] = struct{}{}
	}
	return c.entries.DeleteFunc(func(s Size, _ *Image) bool {
		_, ok := valid[s]
		return !ok
	})
}

// Sizes returns the cached sizes, most recently used first.
func (c *ResizeCache) Sizes() []Size {
	return c.entries.Keys()
}

// Len returns the number of cached sizes.
func (c *ResizeCache) Len() int {
	return c.entries.Len()
}

// Stats returns hit/miss statistics.
func (c *ResizeCache) Stats() cache.Stats {
	return c.entries.Stats()
}
