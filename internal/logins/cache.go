package logins

import (
	"sync"
	"time"
)

// RecentCache remembers when each user last logged in. It is bounded: when
// full, the oldest entry is dropped to make room.
type RecentCache struct {
	mu       sync.Mutex
	seen     map[string]time.Time
	capacity int
}

// NewRecentCache creates a cache holding at most capacity users
func NewRecentCache(capacity int) *RecentCache {
	if capacity <= 0 {
		capacity = 10000
	}
	return &RecentCache{
		seen:     make(map[string]time.Time),
		capacity: capacity,
	}
}

// Within returns the last login of userID if it happened less than window
// before now
func (c *RecentCache) Within(userID string, now time.Time, window time.Duration) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.seen[userID]
	if !ok || now.Sub(last) >= window {
		return time.Time{}, false
	}
	return last, true
}

// Mark records a login of userID at t
func (c *RecentCache) Mark(userID string, t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[userID]; !ok && len(c.seen) >= c.capacity {
		c.dropOldest()
	}
	c.seen[userID] = t
}

// Evict removes entries older than cutoff and returns how many were removed
func (c *RecentCache) Evict(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for userID, t := range c.seen {
		if t.Before(cutoff) {
			delete(c.seen, userID)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached users
func (c *RecentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *RecentCache) dropOldest() {
	var oldestID string
	var oldest time.Time
	for userID, t := range c.seen {
		if oldestID == "" || t.Before(oldest) {
			oldestID, oldest = userID, t
		}
	}
	delete(c.seen, oldestID)
}
