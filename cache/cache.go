// Package cache keeps recent extraction responses in memory so repeated
// requests for the same page within max_age skip the page load.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/jsonpick/models"
)

// entry holds a cached response with its creation timestamp.
type entry struct {
	response  models.ExtractResponse
	createdAt time.Time
}

// Cache is an in-memory cache of extraction responses.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	done       chan struct{}
	stopOnce   sync.Once
}

// New creates a Cache holding at most maxEntries responses. A background
// goroutine evicts entries older than ttl every ttl/12 until Stop.
func New(maxEntries int, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		done:       make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Key identifies a cached extraction by page URL, awaited selector and
// fetch mode.
func Key(req *models.ExtractRequest) string {
	mode := req.FetchMode
	if mode == "" {
		mode = "auto"
	}
	h := sha256.New()
	for _, part := range []string{req.URL, req.WaitFor, mode} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Cacheable reports whether responses to req may be cached. Anything that
// makes the page specific to one caller rules caching out: provided HTML,
// the caller's own browser, cookies and extra headers.
func Cacheable(req *models.ExtractRequest) bool {
	return req.MaxAge > 0 &&
		req.HTML == "" &&
		req.CDPURL == "" &&
		len(req.Cookies) == 0 &&
		len(req.Headers) == 0
}

// Get retrieves a copy of the cached response if it exists and is younger
// than maxAgeMs milliseconds.
func (c *Cache) Get(key string, maxAgeMs int) (models.ExtractResponse, bool) {
	if maxAgeMs <= 0 {
		return models.ExtractResponse{}, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return models.ExtractResponse{}, false
	}
	return e.response, true
}

// Set stores a copy of resp. If the cache is at capacity, a random entry
// is evicted to make room.
func (c *Cache) Set(key string, resp models.ExtractResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		// Map iteration order is random.
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{response: resp, createdAt: time.Now()}
}

// Len returns the number of cached responses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop terminates the cleanup goroutine.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.ttl / 12)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictOlderThan(time.Now().Add(-c.ttl))
		}
	}
}

func (c *Cache) evictOlderThan(cutoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}
