package token

import (
	"sync"
	"time"

	"qwenauth/internal/clock"
)

const (
	// CacheValidity bounds how long a resolved token is served from memory
	// before the sources are consulted again.
	CacheValidity = 5 * time.Minute

	// RefreshLeadTime is how long before expiry a refresh is attempted.
	RefreshLeadTime = 5 * time.Minute
)

// Entry is a snapshot of the cache.
type Entry struct {
	Token       string
	Expiry      time.Time
	LastRefresh time.Time
	ResourceURL string
}

// Cache holds the last resolved access token. When a token is set it was
// valid as of LastRefresh.
type Cache struct {
	mu    sync.Mutex
	clock clock.Clock
	entry Entry
	// gen counts invalidations.
	gen   uint64
}

// NewCache creates an empty cache. A nil clock means the wall clock.
func NewCache(clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Cache{clock: clk}
}

// Fresh returns the cached token if it has not expired and was resolved
// less than CacheValidity ago. A token without a known expiry is never
// served from the cache.
func (c *Cache) Fresh() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	e := c.entry
	if e.Token == "" || !now.Before(e.Expiry) || now.Sub(e.LastRefresh) >= CacheValidity {
		return "", false
	}
	return e.Token, true
}

// Set stores a resolved token and stamps it with the current time.
func (c *Cache) Set(token string, expiry time.Time, resourceURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = Entry{
		Token:       token,
		Expiry:      expiry,
		LastRefresh: c.clock.Now(),
		ResourceURL: resourceURL,
	}
}

// SetIfGeneration stores a resolved token only if the cache has not been
// invalidated since gen was read.
func (c *Cache) SetIfGeneration(gen uint64, token string, expiry time.Time, resourceURL string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.entry = Entry{
		Token:       token,
		Expiry:      expiry,
		LastRefresh: c.clock.Now(),
		ResourceURL: resourceURL,
	}
	return true
}

// Invalidate empties the cache and starts a new generation.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = Entry{}
	c.gen++
}

// Generation returns the number of invalidations so far.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Snapshot returns a copy of the current entry.
func (c *Cache) Snapshot() Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry
}
