package candidates

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"candidate-portal/internal/common/kv"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/common/metrics"
	"candidate-portal/internal/sheets"
)

// GateConfig tunes the auth gate. Durations are already converted.
type GateConfig struct {
	APIKeyKey      string
	StateKey       string
	MinInterval    time.Duration
	LoadRetries    int
	LoadBaseDelay  time.Duration
	InitTimeout    time.Duration
	StateMaxAge    time.Duration
	NoticeCooldown time.Duration
}

type authState struct {
	Initialized bool      `json:"initialized"`
	CheckedAt   time.Time `json:"checkedAt"`
}

// Gate owns the remote store session. EnsureAuthorized never returns an
// error; every failure degrades to false and a log line.
type Gate struct {
	cfg      GateConfig
	store    kv.Store
	factory  sheets.Factory
	failures *FailureTracker
	limiter  *Limiter
	notices  *logger.Throttle
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	inProgress atomic.Bool
	resets     atomic.Int64

	mu          sync.RWMutex
	client      sheets.Client
	initialized bool
	ready       bool
	last        bool
}

func NewGate(cfg GateConfig, store kv.Store, factory sheets.Factory, failures *FailureTracker, notifier Notifier, log logger.Logger, now func() time.Time, sleep func(context.Context, time.Duration) error) *Gate {
	if now == nil {
		now = time.Now
	}
	if sleep == nil {
		sleep = sleepContext
	}
	return &Gate{
		cfg:      cfg,
		store:    store,
		factory:  factory,
		failures: failures,
		limiter:  NewLimiter(cfg.MinInterval, now),
		notices:  logger.NewThrottle(cfg.NoticeCooldown),
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "auth-gate"}),
		now:      now,
		sleep:    sleep,
	}
}

// EnsureAuthorized returns true when a ready remote client is available.
func (g *Gate) EnsureAuthorized(ctx context.Context) bool {
	apiKey, ok := g.apiKey(ctx)
	if !ok {
		if g.notices.Allow("missing-api-key") {
			g.notifier.Notify(Notice{Level: NoticeWarning, Message: "Spreadsheet API key is missing; showing saved or demo data"})
		}
		g.setLast(false)
		return false
	}

	g.mu.RLock()
	authorized := g.initialized && g.ready && g.client != nil
	g.mu.RUnlock()
	if authorized {
		return true
	}

	if g.limiter.ShouldThrottle() {
		return g.Last()
	}

	if !g.inProgress.CompareAndSwap(false, true) {
		g.logger.Debug("Authorization already in progress", nil)
		return g.Last()
	}
	defer g.inProgress.Store(false)

	result := g.initialize(ctx, apiKey)
	if !result && ctx.Err() != nil {
		return false
	}
	g.setLast(result)
	return result
}

func (g *Gate) initialize(ctx context.Context, apiKey string) bool {
	trusted := g.trustedState(ctx)

	client, err := g.loadClient(ctx, apiKey)
	if err != nil {
		if g.abandoned(ctx) {
			return false
		}
		g.logger.Warn("Failed to create spreadsheet client", map[string]interface{}{"error": err.Error()})
		g.persist(ctx, false)
		return false
	}

	if !trusted {
		initCtx, cancel := context.WithTimeout(ctx, g.cfg.InitTimeout)
		err = client.IsReady(initCtx)
		cancel()
		if err != nil {
			if g.abandoned(ctx) {
				return false
			}
			g.logger.Warn("Spreadsheet API not reachable", map[string]interface{}{"error": err.Error()})
			g.persist(ctx, false)
			return false
		}
	}

	g.mu.Lock()
	g.client = client
	g.initialized = true
	g.ready = true
	g.mu.Unlock()

	if !trusted {
		g.persist(ctx, true)
	}
	g.failures.Reset()
	g.logger.Info("Spreadsheet session authorized", map[string]interface{}{"restored": trusted})
	return true
}

// abandoned reports a caller that cancelled mid-initialize. The session
// state is left as it was.
func (g *Gate) abandoned(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	g.logger.Debug("Authorization abandoned by caller", map[string]interface{}{"error": ctx.Err().Error()})
	return true
}

// loadClient builds the client with incremental backoff between attempts.
func (g *Gate) loadClient(ctx context.Context, apiKey string) (sheets.Client, error) {
	attempts := g.cfg.LoadRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := g.factory(ctx, apiKey)
		if err == nil {
			return client, nil
		}
		lastErr = err
		g.logger.Debug("Client load attempt failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
		if attempt < attempts {
			if err := g.sleep(ctx, time.Duration(attempt)*g.cfg.LoadBaseDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// trustedState reports whether a persisted initialized flag is young enough
// to skip the readiness probe.
func (g *Gate) trustedState(ctx context.Context) bool {
	raw, ok, err := g.store.Get(ctx, g.cfg.StateKey)
	if err != nil || !ok {
		return false
	}
	var st authState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return false
	}
	return st.Initialized && g.now().Sub(st.CheckedAt) < g.cfg.StateMaxAge
}

func (g *Gate) persist(ctx context.Context, initialized bool) {
	data, _ := json.Marshal(authState{Initialized: initialized, CheckedAt: g.now()})
	if err := g.store.Set(ctx, g.cfg.StateKey, string(data)); err != nil {
		g.logger.Warn("Failed to persist auth state", map[string]interface{}{"error": err.Error()})
	}
}

func (g *Gate) apiKey(ctx context.Context) (string, bool) {
	key, ok, err := g.store.Get(ctx, g.cfg.APIKeyKey)
	if err != nil {
		g.logger.Warn("Failed to read API key", map[string]interface{}{"error": err.Error()})
		return "", false
	}
	return key, ok && key != ""
}

// Client returns the authorized client or nil.
func (g *Gate) Client() sheets.Client {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.initialized || !g.ready {
		return nil
	}
	return g.client
}

// Reset clears the session in memory and in the store.
func (g *Gate) Reset(ctx context.Context) {
	g.mu.Lock()
	g.client = nil
	g.initialized = false
	g.ready = false
	g.last = false
	g.mu.Unlock()

	g.limiter.Reset()
	g.resets.Add(1)
	metrics.AuthGateAuthorized.Set(0)

	if err := g.store.Remove(ctx, g.cfg.StateKey); err != nil {
		g.logger.Warn("Failed to clear persisted auth state", map[string]interface{}{"error": err.Error()})
	}
	g.logger.Info("Spreadsheet session reset", nil)
}

// Resets returns how many times the session has been reset.
func (g *Gate) Resets() int64 {
	return g.resets.Load()
}

// Last returns the most recent authorization result.
func (g *Gate) Last() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.last
}

func (g *Gate) setLast(v bool) {
	g.mu.Lock()
	g.last = v
	g.mu.Unlock()
	if v {
		metrics.AuthGateAuthorized.Set(1)
	} else {
		metrics.AuthGateAuthorized.Set(0)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
