package application

import (
	"sync"
	"time"

	"github.com/example/lab-resource-manager/internal/domain"
)

const futureListKey = "future"

// listCache keeps recent reservation listings so API reads do not hit every
// calendar on each request. Writes through the service invalidate it; edits
// made directly on the calendars show up once an entry expires.
type listCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]listCacheEntry
}

type listCacheEntry struct {
	usages    []domain.ResourceUsage
	expiresAt time.Time
}

func newListCache(ttl time.Duration, maxEntries int, now func() time.Time) *listCache {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &listCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]listCacheEntry),
	}
}

func ownerListKey(owner domain.EmailAddress) string {
	return "owner:" + owner.String()
}

func (c *listCache) Get(key string) ([]domain.ResourceUsage, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneUsages(entry.usages), true
}

func (c *listCache) Store(key string, usages []domain.ResourceUsage) {
	if c == nil {
		return
	}
	cloned := cloneUsages(usages)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = listCacheEntry{usages: cloned, expiresAt: expiry}
}

func (c *listCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]listCacheEntry)
	c.mu.Unlock()
}

func (c *listCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *listCache) evictOneLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey, oldest = key, entry.expiresAt
		}
	}
	delete(c.entries, oldestKey)
}

func cloneUsages(usages []domain.ResourceUsage) []domain.ResourceUsage {
	if len(usages) == 0 {
		return nil
	}
	out := make([]domain.ResourceUsage, len(usages))
	copy(out, usages)
	return out
}
