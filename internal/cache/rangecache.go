// Package cache implements the time-range-aware activity cache. It
// keeps exact-fingerprint entries under a bounded insertion-order
// budget, plus one privileged all-time superset entry that can serve
// any narrower date-bounded query by filtering in memory.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/runlens/runlens/internal/activities"
	"github.com/runlens/runlens/internal/observability"
)

const (
	// DefaultTTL is how long an entry serves reads before a lookup
	// lazily discards it.
	DefaultTTL = 24 * time.Hour

	// DefaultMaxEntries bounds the exact-match entries. The superset
	// entry does not count against it.
	DefaultMaxEntries = 50
)

type entry struct {
	records  []activities.Activity
	storedAt time.Time
}

// Cache is safe for concurrent use. Lookups never fail; a degraded
// cache just reports misses.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	order      []string // fingerprints in insertion order, oldest first
	superset   *entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     *slog.Logger
}

func New(ttl time.Duration, maxEntries int, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		logger:     logger,
	}
}

// Get returns records satisfying q. An exact fingerprint match wins;
// otherwise a fresh all-time superset serves any date-bounded query by
// filtering in memory. Returned slices are filtered for q and safe for
// the caller to keep.
func (c *Cache) Get(q activities.Query) ([]activities.Activity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := q.Fingerprint()
	if e, ok := c.entries[key]; ok {
		if c.fresh(e) {
			observability.CacheLookups.WithLabelValues("hit").Inc()
			return q.Filter(e.records), true
		}
		c.evict(key)
		observability.CacheLookups.WithLabelValues("expired").Inc()
	}

	if c.superset != nil {
		if c.fresh(*c.superset) {
			observability.CacheLookups.WithLabelValues("superset_hit").Inc()
			c.logger.Debug("serving query from all-time superset", "query", key)
			return q.Filter(c.superset.records), true
		}
		c.superset = nil
		observability.CacheLookups.WithLabelValues("expired").Inc()
	}

	observability.CacheLookups.WithLabelValues("miss").Inc()
	return nil, false
}

// Set stores the raw upstream result for q. All-time results are
// additionally retained as the privileged superset. Oldest-inserted
// exact entries are evicted past the budget.
func (c *Cache) Set(q activities.Query, records []activities.Activity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := q.Fingerprint()
	e := entry{records: records, storedAt: c.now()}

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = e

	if q.AllTime() {
		c.superset = &e
	}

	for len(c.entries) > c.maxEntries {
		oldest := c.order[0]
		c.evict(oldest)
		c.logger.Debug("evicted oldest cache entry", "query", oldest)
	}
}

// Clear drops every entry, the superset included.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.order = nil
	c.superset = nil
}

// Len reports the number of exact-match entries currently held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) fresh(e entry) bool {
	return c.now().Sub(e.storedAt) < c.ttl
}

// evict removes one fingerprint from the map and the order list.
// Caller holds the lock.
func (c *Cache) evict(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
