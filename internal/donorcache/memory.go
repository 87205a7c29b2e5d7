package donorcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

type memEntry struct {
	groups   Groups
	bytes    int64
	storedAt time.Time
}

// MemoryStore is an in-process LRU store bounded by entry count, aggregate
// estimated size and per-entry age. Expired entries read as misses and are
// purged on the next Set. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, memEntry]
	bytes    int64
	maxBytes int64
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore builds a MemoryStore holding at most maxEntries entries
// and maxBytes estimated bytes, each valid for ttl.
func NewMemoryStore(maxEntries int, maxBytes int64, ttl time.Duration) (*MemoryStore, error) {
	s := &MemoryStore{maxBytes: maxBytes, ttl: ttl, now: time.Now}
	lru, err := simplelru.NewLRU[string, memEntry](maxEntries, func(_ string, e memEntry) {
		s.bytes -= e.bytes
	})
	if err != nil {
		return nil, fmt.Errorf("donor cache: %w", err)
	}
	s.lru = lru
	return s, nil
}

// Get returns the live entry for key and marks it recently used.
func (s *MemoryStore) Get(_ context.Context, key string) (Groups, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if s.expired(e) {
		s.lru.Remove(key)
		return nil, false, nil
	}
	return e.groups, true, nil
}

// Set inserts or replaces key, then evicts least-recently-used entries until
// the size bound holds. An entry larger than the whole bound is not stored.
func (s *MemoryStore) Set(_ context.Context, key string, g Groups) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()

	e := memEntry{groups: g, bytes: g.size(), storedAt: s.now()}
	if e.bytes > s.maxBytes {
		s.lru.Remove(key)
		return nil
	}
	s.lru.Remove(key)
	s.lru.Add(key, e)
	s.bytes += e.bytes

	for s.bytes > s.maxBytes {
		if _, _, ok := s.lru.RemoveOldest(); !ok {
			break
		}
	}
	return nil
}

// Len returns the number of entries held, including expired ones not yet purged.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Bytes returns the aggregate estimated size of held entries.
func (s *MemoryStore) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

func (s *MemoryStore) expired(e memEntry) bool {
	return s.ttl > 0 && s.now().Sub(e.storedAt) > s.ttl
}

func (s *MemoryStore) purgeExpired() {
	for _, k := range s.lru.Keys() {
		if e, ok := s.lru.Peek(k); ok && s.expired(e) {
			s.lru.Remove(k)
		}
	}
}
