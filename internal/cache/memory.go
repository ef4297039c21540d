package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory TTL cache
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore создаёт кэш. Фоновая очистка работает, пока жив ctx.
func NewMemoryStore(ctx context.Context, cleanupEvery time.Duration) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
	if cleanupEvery > 0 {
		go s.cleanup(ctx, cleanupEvery)
	}
	return s
}

// Get возвращает значение, если оно не истекло.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.items[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// Set сохраняет значение с TTL.
func (s *MemoryStore) Set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = memoryEntry{data: value, expiresAt: s.now().Add(ttl)}
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
}

// Len возвращает число записей, включая ещё не вычищенные истёкшие.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryStore) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purgeExpired()
		}
	}
}

func (s *MemoryStore) purgeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.items {
		if !now.Before(entry.expiresAt) {
			delete(s.items, key)
		}
	}
}
