package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/clock"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
)

type memoryItem struct {
	stats     models.UserStats
	expiresAt time.Time
}

// Memory is an in-process StatsCache. Expired items are dropped lazily on read.
type Memory struct {
	mu    sync.Mutex
	items map[Key]memoryItem
	ttl   time.Duration
	clock clock.Clock
}

func NewMemory(ttl time.Duration, c clock.Clock) *Memory {
	return &Memory{
		items: make(map[Key]memoryItem),
		ttl:   ttl,
		clock: c,
	}
}

func (m *Memory) Get(_ context.Context, key Key) (*models.UserStats, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !m.clock.Now().Before(item.expiresAt) {
		delete(m.items, key)
		return nil, false, nil
	}
	stats := item.stats
	return &stats, true, nil
}

func (m *Memory) Set(_ context.Context, key Key, stats *models.UserStats) error {
	if m.ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = memoryItem{stats: *stats, expiresAt: m.clock.Now().Add(m.ttl)}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.items {
		if key.UserID == userID {
			delete(m.items, key)
		}
	}
	return nil
}
