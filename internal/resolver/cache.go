package resolver

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"gihan9a/entityschema/internal/metrics"
	"gihan9a/entityschema/internal/schema"
	"gihan9a/entityschema/pkg/schemapatch"
	"gihan9a/entityschema/pkg/version"
)

// Cache memoises resolutions for one baseline and patch list.
//
// Every target between two consecutive patch versions selects the same
// prefix of the sorted patch list, so entries are keyed by the length of that
// prefix rather than by the requested version. Callers always receive their
// own deep copy.
//
// Cache is safe for concurrent use. Concurrent misses on the same key share a
// single computation. Failed resolutions are not cached.
type Cache struct {
	baseline schema.Node
	sorted   []schemapatch.Patch

	mu      sync.RWMutex
	entries map[int]schema.Node
	flight  singleflight.Group

	hits   int64
	misses int64
}

// NewCache takes ownership of neither argument; both must stay unmodified
// while the cache is in use.
func NewCache(baseline schema.Node, patches []schemapatch.Patch) *Cache {
	sorted := append([]schemapatch.Patch(nil), patches...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version.Less(sorted[j].Version)
	})
	return &Cache{
		baseline: baseline,
		sorted:   sorted,
		entries:  make(map[int]schema.Node),
	}
}

// prefix returns how many sorted patches apply at target.
func (c *Cache) prefix(target version.Tag) int {
	return sort.Search(len(c.sorted), func(i int) bool {
		return c.sorted[i].Version.Compare(target) > 0
	})
}

// Resolve returns the effective schema at target, computing it at most once
// per distinct patch prefix.
func (c *Cache) Resolve(target version.Tag) (schema.Node, error) {
	if target.IsZero() {
		return nil, &version.InvalidVersionError{Reason: "empty target version"}
	}
	n := c.prefix(target)

	c.mu.RLock()
	doc, ok := c.entries[n]
	c.mu.RUnlock()
	if ok {
		atomic.AddInt64(&c.hits, 1)
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return schema.Clone(doc), nil
	}
	atomic.AddInt64(&c.misses, 1)
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := c.flight.Do(strconv.Itoa(n), func() (any, error) {
		c.mu.RLock()
		doc, ok := c.entries[n]
		c.mu.RUnlock()
		if ok {
			return doc, nil
		}
		start := time.Now()
		doc, err := Apply(schema.Clone(c.baseline), c.sorted[:n])
		metrics.ResolveDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.Resolutions.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.Resolutions.WithLabelValues("ok").Inc()
		c.mu.Lock()
		c.entries[n] = doc
		c.mu.Unlock()
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return schema.Clone(v.(schema.Node)), nil
}

// ResolveString parses target and resolves it.
func (c *Cache) ResolveString(target string) (schema.Node, error) {
	tag, err := version.Parse(target)
	if err != nil {
		return nil, err
	}
	return c.Resolve(tag)
}

// Reset drops every cached entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[int]schema.Node)
	c.mu.Unlock()
}

// Stats reports hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) String() string {
	hits, misses := c.Stats()
	return fmt.Sprintf("resolver cache: %d entries, %d hits, %d misses", c.Len(), hits, misses)
}
