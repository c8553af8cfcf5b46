package cache

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultTTL matches the shared-cache lifetime advertised to clients.
	DefaultTTL = 30 * time.Second

	defaultCapacity   = 100
	defaultEvictCount = 20
)

type entry struct {
	svg       []byte
	createdAt time.Time
}

// ResponseCache deduplicates rendering work within a TTL window. It is not
// a memoizing lock: two concurrent misses on the same key will both render
// and the later Put wins. Staleness is bounded by the TTL and memory by a
// batch low-water-mark sweep rather than strict LRU.
type ResponseCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	capacity   int
	evictCount int

	now func() time.Time
}

func NewResponseCache() *ResponseCache {
	return &ResponseCache{
		entries:    map[string]entry{},
		ttl:        DefaultTTL,
		capacity:   defaultCapacity,
		evictCount: defaultEvictCount,
		now:        time.Now,
	}
}

// Key builds a deterministic cache key over every parameter that affects
// rendering output.
func Key(uid, theme string, showOffline, interchange bool, backgroundColor string, skipDark, profanity bool, mode string) string {
	joined := fmt.Sprintf("%s:%s:%t:%t:%s:%t:%t:%s",
		uid, theme, showOffline, interchange, backgroundColor, skipDark, profanity, mode)
	return fmt.Sprintf("view:%d", xxhash.Sum64String(joined))
}

// GetOrRender returns the cached bytes for key if they are younger than the
// TTL, otherwise invokes render and stores its output. Render errors are
// passed through uncached. The second return reports a cache hit.
func (c *ResponseCache) GetOrRender(key string, render func() ([]byte, error)) ([]byte, bool, error) {
	if svg, ok := c.Get(key); ok {
		return svg, true, nil
	}

	svg, err := render()
	if err != nil {
		return nil, false, err
	}

	c.Put(key, svg)
	return svg, false, nil
}

func (c *ResponseCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.createdAt) >= c.ttl {
		return nil, false
	}
	return e.svg, true
}

func (c *ResponseCache) Put(key string, svg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{svg: svg, createdAt: c.now()}
	if len(c.entries) > c.capacity {
		c.evictOldest()
	}
}

// evictOldest removes entries with the smallest creation time until the
// cache is back at its low-water mark. Caller must hold the lock.
func (c *ResponseCache) evictOldest() {
	target := c.capacity - c.evictCount
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].createdAt.Before(c.entries[keys[j]].createdAt)
	})
	for _, key := range keys {
		if len(c.entries) <= target {
			break
		}
		delete(c.entries, key)
	}
	slog.With(slog.Int("remaining", len(c.entries))).Debug("Swept response cache")
}

// Sweep drops entries past the TTL. Reads already treat them as absent so
// this just reclaims memory between renders.
func (c *ResponseCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, e := range c.entries {
		if now.Sub(e.createdAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
}

// Len reports the current entry count.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
