package cache

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = time.Minute

// MemoryCache keeps tokens in process. Entries vanish on restart, so it suits
// a single instance or tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) live(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// NewMemoryCache creates a memory token store and starts its sweeper
func NewMemoryCache() *MemoryCache {
	m := &MemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go m.sweep(sweepInterval)
	return m
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// a non-positive ttl means the value is already gone
	if ttl <= 0 {
		delete(m.entries, key)
		return nil
	}
	m.entries[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

func (m *MemoryCache) GetDel(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	delete(m.entries, key)
	if !e.live(m.now()) {
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	return ok && e.live(m.now()), nil
}

func (m *MemoryCache) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored entries, expired ones included until swept
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryCache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.purge()
		case <-m.stop:
			return
		}
	}
}

// purge drops expired entries
func (m *MemoryCache) purge() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, e := range m.entries {
		if !e.live(now) {
			delete(m.entries, key)
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (m *MemoryCache) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}
