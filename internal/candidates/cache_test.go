package candidates

import (
	"context"
	"testing"
	"time"

	"candidate-portal/internal/common/kv"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, store kv.Store, clock *fakeClock) *Cache {
	return NewCache(store, "cache:candidates", time.Minute, 24*time.Hour, clock.Now, logger.NewTestLogger(t))
}

func TestCache_FreshWithinTTL(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, kv.NewMemoryStore(), clock)
	ctx := context.Background()

	_, ok := c.Fresh(ctx)
	assert.False(t, ok)

	c.Put(ctx, []models.Candidate{{ID: "1"}})

	clock.Advance(10 * time.Second)
	got, ok := c.Fresh(ctx)
	require.True(t, ok)
	assert.Equal(t, "1", got[0].ID)

	clock.Advance(50 * time.Second)
	_, ok = c.Fresh(ctx)
	assert.False(t, ok, "expired at TTL")

	got, ok = c.Any(ctx)
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestCache_SurvivesRestart(t *testing.T) {
	clock := newFakeClock()
	store := kv.NewMemoryStore()
	ctx := context.Background()

	newTestCache(t, store, clock).Put(ctx, []models.Candidate{{ID: "9", Headline: "CTO"}})

	restarted := newTestCache(t, store, clock)
	clock.Advance(48 * time.Hour)

	_, fresh := restarted.Fresh(ctx)
	assert.False(t, fresh)

	got, ok := restarted.Any(ctx)
	require.True(t, ok)
	assert.Equal(t, "CTO", got[0].Headline)
}

func TestCache_Clear(t *testing.T) {
	clock := newFakeClock()
	store := kv.NewMemoryStore()
	c := newTestCache(t, store, clock)
	ctx := context.Background()

	c.Put(ctx, []models.Candidate{{ID: "1"}})
	c.Clear(ctx)

	_, ok := c.Any(ctx)
	assert.False(t, ok)
	_, persisted, _ := store.Get(ctx, "cache:candidates")
	assert.False(t, persisted)
}

func TestCache_CorruptEntryIgnored(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "cache:candidates", "not json"))

	c := newTestCache(t, store, newFakeClock())
	_, ok := c.Any(context.Background())
	assert.False(t, ok)
}
