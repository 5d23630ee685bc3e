package bot

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const adminCacheTTL = 5 * time.Minute

// adminCache keeps the administrator set of each chat for a bounded time.
// Entries expire after the TTL and are dropped eagerly when a chat-member
// update arrives, so a stale set never outlives a membership change for long.
// Concurrent refreshes of the same chat collapse into one API call.
type adminCache struct {
	ttl   time.Duration
	fetch func(ctx context.Context, chatID int64) (map[int64]struct{}, error)
	now   func() time.Time

	sf      singleflight.Group
	mu      sync.RWMutex
	entries map[int64]adminCacheEntry
}

type adminCacheEntry struct {
	ids       map[int64]struct{}
	fetchedAt time.Time
}

func newAdminCache(ttl time.Duration, fetch func(ctx context.Context, chatID int64) (map[int64]struct{}, error)) *adminCache {
	return &adminCache{
		ttl:     ttl,
		fetch:   fetch,
		now:     time.Now,
		entries: map[int64]adminCacheEntry{},
	}
}

func (c *adminCache) adminIDs(ctx context.Context, chatID int64) (map[int64]struct{}, error) {
	c.mu.RLock()
	entry, ok := c.entries[chatID]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.ids, nil
	}

	v, err, _ := c.sf.Do(strconv.FormatInt(chatID, 10), func() (interface{}, error) {
		ids, err := c.fetch(ctx, chatID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[chatID] = adminCacheEntry{
			ids:       ids,
			fetchedAt: c.now(),
		}
		c.mu.Unlock()
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[int64]struct{}), nil
}

func (c *adminCache) invalidate(chatID int64) {
	c.mu.Lock()
	delete(c.entries, chatID)
	c.mu.Unlock()
}
