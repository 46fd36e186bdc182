package blobstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryBlob struct {
	value   []byte
	expires time.Time
}

// MemoryStore is a process-local Store for tests and single-instance runs.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string]memoryBlob
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memoryBlob), now: time.Now}
}

// MemoryOpener hands out one MemoryStore per container name.
func MemoryOpener() Opener {
	var mu sync.Mutex
	containers := make(map[string]*MemoryStore)
	return func(ctx context.Context, container string) (Store, error) {
		mu.Lock()
		defer mu.Unlock()
		s, ok := containers[container]
		if !ok {
			s = NewMemoryStore()
			containers[container] = s
		}
		return s, nil
	}
}

func (s *MemoryStore) lookup(key string) (memoryBlob, bool) {
	b, ok := s.blobs[key]
	if ok && !b.expires.IsZero() && !s.now().Before(b.expires) {
		delete(s.blobs, key)
		return memoryBlob{}, false
	}
	return b, ok
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b.value...), nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	return s.PutTTL(ctx, key, value, 0)
}

func (s *MemoryStore) PutTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := memoryBlob{value: append([]byte(nil), value...)}
	if ttl > 0 {
		b.expires = s.now().Add(ttl)
	}
	s.blobs[key] = b
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); !ok {
		return ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.blobs {
		if _, ok := s.lookup(k); ok && strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
