package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/teamflow/internal/clock"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = &models.UserStats{TotalSeconds: 5400, TotalIdle: 120, AvgActivity: 72.5, TotalEntries: 3}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "teamflow:stats:7:week:2024-02-26", Key{UserID: 7, Period: models.PeriodWeek, From: "2024-02-26"}.String())
}

func TestMemory_RangeStartSeparatesKeys(t *testing.T) {
	m := NewMemory(time.Hour, clock.System())
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, Key{UserID: 1, Period: models.PeriodToday, From: "2024-03-01"}, sample))

	_, ok, err := m.Get(ctx, Key{UserID: 1, Period: models.PeriodToday, From: "2024-03-02"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	c := clock.NewManual(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	m := NewMemory(5*time.Minute, c)
	ctx := context.Background()
	key := Key{UserID: 1, Period: models.PeriodToday}

	require.NoError(t, m.Set(ctx, key, sample))

	got, ok, err := m.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, *sample, *got)

	c.Advance(5 * time.Minute)
	_, ok, err = m.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_InvalidateDropsAllPeriods(t *testing.T) {
	m := NewMemory(time.Minute, clock.System())
	ctx := context.Background()

	for _, p := range models.Periods {
		require.NoError(t, m.Set(ctx, Key{UserID: 1, Period: p}, sample))
	}
	require.NoError(t, m.Set(ctx, Key{UserID: 1, Period: models.PeriodWeek, From: "2024-02-26"}, sample))
	require.NoError(t, m.Set(ctx, Key{UserID: 2, Period: models.PeriodToday}, sample))

	require.NoError(t, m.Invalidate(ctx, 1))

	_, ok, _ := m.Get(ctx, Key{UserID: 1, Period: models.PeriodWeek, From: "2024-02-26"})
	assert.False(t, ok)

	for _, p := range models.Periods {
		_, ok, _ := m.Get(ctx, Key{UserID: 1, Period: p})
		assert.False(t, ok, p)
	}
	_, ok, _ = m.Get(ctx, Key{UserID: 2, Period: models.PeriodToday})
	assert.True(t, ok)
}

func TestMemory_ZeroTTLDisables(t *testing.T) {
	m := NewMemory(0, clock.System())
	ctx := context.Background()
	key := Key{UserID: 1, Period: models.PeriodToday}

	require.NoError(t, m.Set(ctx, key, sample))
	_, ok, _ := m.Get(ctx, key)
	assert.False(t, ok)
}

func TestMemory_ReturnsCopy(t *testing.T) {
	m := NewMemory(time.Minute, clock.System())
	ctx := context.Background()
	key := Key{UserID: 1, Period: models.PeriodToday}
	require.NoError(t, m.Set(ctx, key, sample))

	got, _, _ := m.Get(ctx, key)
	got.TotalSeconds = 0

	again, _, _ := m.Get(ctx, key)
	assert.Equal(t, int64(5400), again.TotalSeconds)
}

func newRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, ttl), mr
}

func TestRedis_SetGet(t *testing.T) {
	r, mr := newRedis(t, 5*time.Minute)
	ctx := context.Background()
	key := Key{UserID: 7, Period: models.PeriodMonth}

	_, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Set(ctx, key, sample))
	assert.Equal(t, 5*time.Minute, mr.TTL(key.String()))

	got, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, *sample, *got)

	mr.FastForward(5 * time.Minute)
	_, ok, err = r.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_Invalidate(t *testing.T) {
	r, mr := newRedis(t, time.Minute)
	ctx := context.Background()

	for _, p := range models.Periods {
		require.NoError(t, r.Set(ctx, Key{UserID: 3, Period: p, From: "2024-03-01"}, sample))
	}
	yesterday := Key{UserID: 3, Period: models.PeriodToday, From: "2024-02-29"}
	other := Key{UserID: 31, Period: models.PeriodToday, From: "2024-03-01"}
	require.NoError(t, r.Set(ctx, yesterday, sample))
	require.NoError(t, r.Set(ctx, other, sample))

	require.NoError(t, r.Invalidate(ctx, 3))

	for _, p := range models.Periods {
		assert.False(t, mr.Exists(Key{UserID: 3, Period: p, From: "2024-03-01"}.String()))
	}
	assert.False(t, mr.Exists(yesterday.String()))
	assert.True(t, mr.Exists(other.String()))

	require.NoError(t, r.Invalidate(ctx, 3), "nothing left to drop")
}

func TestRedis_CorruptValue(t *testing.T) {
	r, mr := newRedis(t, time.Minute)
	key := Key{UserID: 1, Period: models.PeriodToday}
	require.NoError(t, mr.Set(key.String(), "not json"))

	_, _, err := r.Get(context.Background(), key)
	assert.ErrorContains(t, err, "unmarshal")
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	client2, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client2.Close()
}
