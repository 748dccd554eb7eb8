package cache

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/dgraph-io/badger/v3"
)

const keyPrefix = "fxcache:"

// BadgerStore is the durable cache tier, backed by BadgerDB. Entries carry
// their own write time and TTL rather than using Badger's native expiry,
// which would delete entries and lose the stale-fallback pool.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a durable store over an open Badger database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// storedEntry is the on-disk representation of a cache entry.
type storedEntry struct {
	Data     []byte        `json:"data"`
	StoredAt time.Time     `json:"stored_at"`
	TTL      time.Duration `json:"ttl"`
}

// storageKey sanitizes a cache key for durable storage. Cache keys are
// derived from arbitrary query strings, so path-unsafe bytes are replaced;
// an FNV suffix of the raw key keeps sanitized keys collision-free.
func storageKey(key string) []byte {
	sanitized := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		b := key[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9',
			b == '.', b == '-', b == '_':
			sanitized = append(sanitized, b)
		default:
			sanitized = append(sanitized, '_')
		}
	}
	h := fnv.New64a()
	h.Write([]byte(key))
	return []byte(fmt.Sprintf("%s%s-%016x", keyPrefix, sanitized, h.Sum64()))
}

// Get loads the entry for key, or (nil, nil) when absent.
func (s *BadgerStore) Get(key string) (*Entry, error) {
	var stored storedEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storageKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cache entry: %w", err)
	}
	return &Entry{Data: stored.Data, StoredAt: stored.StoredAt, TTL: stored.TTL}, nil
}

// Set persists the entry under the sanitized key.
func (s *BadgerStore) Set(key string, entry Entry) error {
	data, err := json.Marshal(storedEntry{Data: entry.Data, StoredAt: entry.StoredAt, TTL: entry.TTL})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storageKey(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *BadgerStore) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(storageKey(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear removes every cache entry from the store.
func (s *BadgerStore) Clear() error {
	keys, err := s.collectKeys(nil)
	if err != nil {
		return err
	}
	return s.deleteKeys(keys)
}

// DeleteExpired removes entries whose age exceeds their own stored TTL and
// returns how many were dropped.
func (s *BadgerStore) DeleteExpired() (int, error) {
	now := time.Now()
	expired, err := s.collectKeys(func(stored storedEntry) bool {
		return now.Sub(stored.StoredAt) > stored.TTL
	})
	if err != nil {
		return 0, err
	}
	if err := s.deleteKeys(expired); err != nil {
		return 0, err
	}
	return len(expired), nil
}

// Len reports the number of cache entries in the store.
func (s *BadgerStore) Len() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return count, nil
}

// collectKeys gathers entry keys matching the filter (nil matches all).
func (s *BadgerStore) collectKeys(match func(storedEntry) bool) ([][]byte, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.PrefetchValues = match != nil
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if match != nil {
				var stored storedEntry
				err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &stored)
				})
				if err != nil || !match(stored) {
					continue
				}
			}
			keys = append(keys, item.KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan cache entries: %w", err)
	}
	return keys, nil
}

func (s *BadgerStore) deleteKeys(keys [][]byte) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache entries: %w", err)
	}
	return nil
}
