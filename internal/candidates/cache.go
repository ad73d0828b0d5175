package candidates

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"candidate-portal/internal/common/kv"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/models"
)

// Cache keeps the last good candidate list in memory and mirrors it into
// the KV store so it survives restarts. Entries are replaced wholesale.
type Cache struct {
	mu         sync.RWMutex
	mem        *models.CachedCandidateSet
	store      kv.Store
	key        string
	ttl        time.Duration
	staleAfter time.Duration
	now        func() time.Time
	logger     logger.Logger
}

func NewCache(store kv.Store, key string, ttl, staleAfter time.Duration, now func() time.Time, log logger.Logger) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		store:      store,
		key:        key,
		ttl:        ttl,
		staleAfter: staleAfter,
		now:        now,
		logger:     log.WithFields(map[string]interface{}{"component": "candidate-cache"}),
	}
}

// Put replaces the cached set and stamps it with the current time.
func (c *Cache) Put(ctx context.Context, candidates []models.Candidate) {
	set := &models.CachedCandidateSet{
		Candidates: append([]models.Candidate(nil), candidates...),
		CachedAt:   c.now(),
	}

	c.mu.Lock()
	c.mem = set
	c.mu.Unlock()

	data, err := json.Marshal(set)
	if err != nil {
		c.logger.Error("Failed to encode cache entry", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := c.store.Set(ctx, c.key, string(data)); err != nil {
		c.logger.Warn("Failed to persist cache entry", map[string]interface{}{"error": err.Error()})
	}
}

// Fresh returns the cached list only while it is within the TTL.
func (c *Cache) Fresh(ctx context.Context) ([]models.Candidate, bool) {
	set, ok := c.entry(ctx)
	if !ok || set.Age(c.now()) >= c.ttl {
		return nil, false
	}
	return set.Candidates, true
}

// Any returns the cached list regardless of age, warning when it is older
// than the stale threshold.
func (c *Cache) Any(ctx context.Context) ([]models.Candidate, bool) {
	set, ok := c.entry(ctx)
	if !ok {
		return nil, false
	}
	if age := set.Age(c.now()); age > c.staleAfter {
		c.logger.Warn("Serving old cached candidate data", map[string]interface{}{
			"cachedAt": set.CachedAt.Format(time.RFC3339),
			"ageHours": int(age.Hours()),
		})
	}
	return set.Candidates, true
}

// Clear drops both the memory and persisted entries.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.mem = nil
	c.mu.Unlock()

	if err := c.store.Remove(ctx, c.key); err != nil {
		c.logger.Warn("Failed to remove persisted cache entry", map[string]interface{}{"error": err.Error()})
	}
}

// entry prefers memory and hydrates it from the store after a restart.
func (c *Cache) entry(ctx context.Context) (*models.CachedCandidateSet, bool) {
	c.mu.RLock()
	set := c.mem
	c.mu.RUnlock()
	if set != nil {
		return set, true
	}

	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		c.logger.Warn("Failed to read persisted cache entry", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var persisted models.CachedCandidateSet
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		c.logger.Warn("Discarding corrupt cache entry", map[string]interface{}{"error": err.Error()})
		return nil, false
	}

	c.mu.Lock()
	if c.mem == nil {
		c.mem = &persisted
	}
	set = c.mem
	c.mu.Unlock()
	return set, true
}
