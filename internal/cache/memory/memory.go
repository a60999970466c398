// Package memory is an in-process cache used when no redis address is
// configured. Locks taken through it only hold within a single instance.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aniladanir/lead-funnel/internal/cache"
)

type item struct {
	val       string
	expiresAt time.Time
}

type MemoryCache struct {
	mtx   sync.Mutex
	items map[string]item
	now   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]item),
		now:   time.Now,
	}
}

func (m *MemoryCache) Set(_ context.Context, key, val string, ttl time.Duration) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.items[key] = m.newItem(val, ttl)
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	it, ok := m.lookup(key)
	if !ok {
		return "", cache.ErrMiss
	}
	return it.val, nil
}

func (m *MemoryCache) SetNX(_ context.Context, key, val string, ttl time.Duration) (bool, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.items[key] = m.newItem(val, ttl)
	return true, nil
}

func (m *MemoryCache) Del(_ context.Context, key string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	delete(m.items, key)
	return nil
}

func (m *MemoryCache) Ping(context.Context) error {
	return nil
}

func (m *MemoryCache) newItem(val string, ttl time.Duration) item {
	it := item{val: val}
	if ttl > 0 {
		it.expiresAt = m.now().Add(ttl)
	}
	return it
}

// lookup must be called with mtx held; expired keys are dropped on access.
func (m *MemoryCache) lookup(key string) (item, bool) {
	it, ok := m.items[key]
	if !ok {
		return item{}, false
	}
	if !it.expiresAt.IsZero() && !m.now().Before(it.expiresAt) {
		delete(m.items, key)
		return item{}, false
	}
	return it, true
}
