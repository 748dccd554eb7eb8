// Package cache provides the two-tier response cache: an in-process memory
// map backed by an optional durable store, with in-flight request
// coalescing and stale-entry fallback.
package cache

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Entry is a cached raw response with its write time and TTL. Entries past
// their TTL are kept around deliberately; they are the fallback when a
// refresh fails.
type Entry struct {
	Data     []byte
	StoredAt time.Time
	TTL      time.Duration
}

// Expired reports whether the entry's age exceeds its own TTL.
func (e Entry) Expired() bool {
	return time.Since(e.StoredAt) > e.TTL
}

// Store is the durable tier. Implementations return (nil, nil) on a miss.
type Store interface {
	Get(key string) (*Entry, error)
	Set(key string, entry Entry) error
	Delete(key string) error
	Clear() error
	DeleteExpired() (int, error)
	Len() (int, error)
}

// ResponseCache caches raw response bytes keyed by request signature.
// Memory is authoritative for the current process; the durable store warms
// it after a restart. All mutation happens behind the mutex, and the
// in-flight group guarantees at most one running fetch per key.
type ResponseCache struct {
	mu       sync.RWMutex
	memory   map[string]Entry
	store    Store
	inflight singleflight.Group
	log      logrus.FieldLogger
}

// NewResponseCache creates a cache over an optional durable store (nil
// disables the durable tier).
func NewResponseCache(store Store, log logrus.FieldLogger) *ResponseCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ResponseCache{
		memory: make(map[string]Entry),
		store:  store,
		log:    log,
	}
}

// Get returns the entry for key, expired or not; freshness is the caller's
// check. A durable-tier hit is promoted into memory so subsequent reads
// skip disk entirely.
func (c *ResponseCache) Get(key string) *Entry {
	c.mu.RLock()
	entry, ok := c.memory[key]
	c.mu.RUnlock()
	if ok {
		return &entry
	}

	if c.store == nil {
		return nil
	}
	stored, err := c.store.Get(key)
	if err != nil {
		c.log.WithField("key", key).WithError(err).Warn("durable cache read failed")
		return nil
	}
	if stored == nil {
		return nil
	}

	c.mu.Lock()
	// Another goroutine may have written a fresher entry meanwhile;
	// memory stays authoritative.
	if current, ok := c.memory[key]; ok {
		c.mu.Unlock()
		return &current
	}
	c.memory[key] = *stored
	c.mu.Unlock()
	return stored
}

// Set writes the entry to memory and, best-effort, to the durable store. A
// failed durable write is logged and swallowed; memory remains
// authoritative for this process lifetime.
func (c *ResponseCache) Set(key string, data []byte, ttl time.Duration) {
	entry := Entry{Data: bytes.Clone(data), StoredAt: time.Now(), TTL: ttl}

	c.mu.Lock()
	c.memory[key] = entry
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.Set(key, entry); err != nil {
		c.log.WithField("key", key).WithError(err).Warn("durable cache write failed")
	}
}

// GetOrFetch returns fresh cached bytes for key, or fetches them. Any
// number of concurrent callers for the same key share a single underlying
// fetch. On fetch failure an expired entry, when present, is served instead
// of the error; stale data beats no data. A cancelled waiter gets its
// context error without cancelling the fetch for the other waiters.
func (c *ResponseCache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	stale := c.Get(key)
	if stale != nil && !stale.Expired() {
		return stale.Data, nil
	}

	ch := c.inflight.DoChan(key, func() (any, error) {
		data, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.Set(key, data, ttl)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if stale != nil {
				c.log.WithFields(logrus.Fields{
					"key": key,
					"age": time.Since(stale.StoredAt).String(),
				}).WithError(res.Err).Warn("fetch failed, serving stale cache entry")
				return stale.Data, nil
			}
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// ClearAll removes every entry from both tiers.
func (c *ResponseCache) ClearAll() error {
	c.mu.Lock()
	c.memory = make(map[string]Entry)
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	return c.store.Clear()
}

// ClearExpired removes entries past their own TTL from both tiers and
// returns how many were dropped.
func (c *ResponseCache) ClearExpired() (int, error) {
	removed := 0
	c.mu.Lock()
	for key, entry := range c.memory {
		if entry.Expired() {
			delete(c.memory, key)
			removed++
		}
	}
	c.mu.Unlock()

	if c.store == nil {
		return removed, nil
	}
	n, err := c.store.DeleteExpired()
	return removed + n, err
}

// MemoryLen reports the number of entries in the memory tier.
func (c *ResponseCache) MemoryLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}

// StoreLen reports the number of entries in the durable tier.
func (c *ResponseCache) StoreLen() (int, error) {
	if c.store == nil {
		return 0, nil
	}
	return c.store.Len()
}
