// Package candidates is the candidate data-access layer: it reads the
// primary spreadsheet store through an auth gate, rate limiter and retry
// loop, and falls back to the secondary store, the cache and finally demo
// data so reads always produce a usable list.
package candidates

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"candidate-portal/internal/common/config"
	"candidate-portal/internal/common/connectivity"
	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/kv"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/common/metrics"
	"candidate-portal/internal/common/observability"
	"candidate-portal/internal/common/validation"
	"candidate-portal/internal/models"
	"candidate-portal/internal/queue"
	"candidate-portal/internal/sheets"
	"candidate-portal/internal/supabase"

	"golang.org/x/sync/singleflight"
)

const (
	cacheKey       = "cache:candidates"
	authStateKey   = "auth:state"
	pendingAddsKey = "candidates:pending_adds"
)

const writeCredentialsHint = "Only read access is configured. Set sheets.credentials_file " +
	"(SHEETS_CREDENTIALS_FILE) to a service account with edit access to the spreadsheet to add candidates."

var errOffline = stderrors.New("no network connectivity")

// Indexer receives every successfully refreshed candidate list.
type Indexer interface {
	Index(ctx context.Context, candidates []models.Candidate) error
}

type AddOutcome string

const (
	AddAppended AddOutcome = "appended"
	AddQueued   AddOutcome = "queued"
)

// FetchResult is a candidate list together with where it came from and the
// notice shown to the viewer, if any.
type FetchResult struct {
	Candidates []models.Candidate `json:"candidates"`
	Source     models.DataSource  `json:"source"`
	Notice     string             `json:"notice,omitempty"`
}

// Dependencies are the collaborators a Service is built from. Writer,
// Secondary and Indexer are optional.
type Dependencies struct {
	Store     kv.Store
	Factory   sheets.Factory
	Writer    sheets.Client
	Secondary supabase.Store
	Signal    connectivity.Signal
	Indexer   Indexer
	Notifier  Notifier
	Logger    logger.Logger
	Obs       *observability.Observability
}

type Option func(*Service)

// WithClock overrides the time source for the cache, limiters and gate.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSleep overrides how backoff delays are waited out.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(s *Service) { s.sleep = fn }
}

// Service is the candidate data service. One instance owns the session,
// cache slot and counters for the process.
type Service struct {
	sheetsCfg config.SheetsConfig
	res       config.ResilienceConfig

	gate         *Gate
	cache        *Cache
	failures     *FailureTracker
	fetchLimiter *Limiter
	pending      *queue.Durable[models.Candidate]

	writer    sheets.Client
	secondary supabase.Store
	signal    connectivity.Signal
	indexer   Indexer
	notifier  Notifier
	notices   *logger.Throttle
	logger    logger.Logger
	obs       *observability.Observability

	group        singleflight.Group
	flushMu      sync.Mutex
	sessionReset atomic.Bool

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func NewService(sheetsCfg config.SheetsConfig, res config.ResilienceConfig, deps Dependencies, opts ...Option) *Service {
	base := deps.Logger
	if base == nil {
		base = logger.NewNoOpLogger()
	}
	log := base.WithFields(map[string]interface{}{"component": "candidate-service"})

	s := &Service{
		sheetsCfg: sheetsCfg,
		res:       res,
		writer:    deps.Writer,
		secondary: deps.Secondary,
		signal:    deps.Signal,
		indexer:   deps.Indexer,
		notifier:  deps.Notifier,
		logger:    log,
		obs:       deps.Obs,
		now:       time.Now,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.signal == nil {
		s.signal = connectivity.NewStatic(true)
	}
	if s.notifier == nil {
		s.notifier = logNotifier{logger: log}
	}

	s.failures = NewFailureTracker(res.FailureThreshold)
	s.fetchLimiter = NewLimiter(config.GetDuration(res.FetchMinInterval), s.now)
	s.notices = logger.NewThrottle(config.GetDuration(res.NoticeCooldown))
	s.cache = NewCache(deps.Store, cacheKey,
		config.GetDuration(res.FreshTTL), config.GetDuration(res.StaleWarnAfter), s.now, base)
	s.pending = queue.NewDurable[models.Candidate](deps.Store, pendingAddsKey)
	s.gate = NewGate(GateConfig{
		APIKeyKey:      sheetsCfg.APIKeyStoreKey,
		StateKey:       authStateKey,
		MinInterval:    config.GetDuration(res.AuthMinInterval),
		LoadRetries:    res.AuthLoadRetries,
		LoadBaseDelay:  config.GetDuration(res.AuthLoadBaseDelay),
		InitTimeout:    config.GetDuration(res.AuthInitTimeout),
		StateMaxAge:    config.GetDuration(res.AuthStateMaxAge),
		NoticeCooldown: config.GetDuration(res.NoticeCooldown),
	}, deps.Store, deps.Factory, s.failures, s.notifier, base, s.now, s.sleep)

	return s
}

// Start restores queued adds and flushes them whenever connectivity returns.
func (s *Service) Start(ctx context.Context) error {
	if err := s.pending.Load(ctx); err != nil {
		return fmt.Errorf("restore pending adds: %w", err)
	}
	s.signal.OnRestored(func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if n := s.FlushPending(flushCtx); n > 0 {
			s.logger.Info("Flushed queued candidate adds", map[string]interface{}{"count": n})
		}
	})
	return nil
}

// Gate exposes the auth gate for health reporting.
func (s *Service) Gate() *Gate {
	return s.gate
}

// FetchAll returns the best available candidate list. It never fails.
func (s *Service) FetchAll(ctx context.Context) []models.Candidate {
	return s.Load(ctx).Candidates
}

// Load is FetchAll with provenance. Concurrent callers share one load, which
// runs detached from their cancellation so a caller that gives up neither
// counts as a remote failure nor cuts the load short for the others.
func (s *Service) Load(ctx context.Context) *FetchResult {
	v, _, _ := s.group.Do("all", func() (interface{}, error) {
		loadCtx, cancel := s.loadContext(ctx)
		defer cancel()
		return s.load(loadCtx), nil
	})
	return v.(*FetchResult)
}

// loadContext keeps the caller's values but not its cancellation. The load is
// bounded by LoadTimeout instead.
func (s *Service) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if d := config.GetDuration(s.res.LoadTimeout); d > 0 {
		return context.WithTimeout(detached, d)
	}
	return context.WithCancel(detached)
}

func (s *Service) load(ctx context.Context) (result *FetchResult) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered while loading candidates", map[string]interface{}{"panic": fmt.Sprint(r)})
			result = &FetchResult{
				Candidates: DemoCandidates(),
				Source:     models.SourceMock,
				Notice:     "Something went wrong, showing demo data",
			}
		}
		metrics.CandidateFetches.WithLabelValues(string(result.Source)).Inc()
		s.obs.RecordFetch(ctx, string(result.Source), s.now().Sub(start))
	}()

	if cached, ok := s.cache.Fresh(ctx); ok {
		return &FetchResult{Candidates: cached, Source: models.SourceCache}
	}

	if s.fetchLimiter.ShouldThrottle() {
		s.logger.Debug("Candidate fetch throttled", nil)
		return s.localFallback(ctx, "")
	}

	if err := s.sheetsCfg.Validate(); err != nil {
		msg := apperrors.UserMessage(err)
		if s.notices.Allow("config-missing") {
			s.logger.Warn("Candidate store not configured", map[string]interface{}{"error": err.Error()})
			s.notifier.Notify(Notice{Level: NoticeWarning, Message: msg})
		}
		return s.localFallback(ctx, msg)
	}

	if !s.signal.Online() {
		return s.offlineFallback(ctx)
	}

	if s.failures.Exceeded() {
		s.resetSessionOnce(ctx)
	}

	if !s.gate.EnsureAuthorized(ctx) {
		return s.authFailed(ctx)
	}
	client := s.gate.Client()
	if client == nil {
		return s.authFailed(ctx)
	}

	readStart := s.now()
	rows, err := s.readWithRetry(ctx, client)
	metrics.RemoteReadDuration.Observe(s.now().Sub(readStart).Seconds())
	if err != nil {
		return s.handleFailure(ctx, err)
	}

	list, mapErrs := MapRows(rows)
	if len(mapErrs) > 0 {
		metrics.SkippedRows.Add(float64(len(mapErrs)))
		s.logger.Warn("Skipped malformed candidate rows", map[string]interface{}{
			"skipped": len(mapErrs),
			"valid":   len(list),
			"first":   mapErrs[0].Error(),
		})
	}

	s.failures.Reset()
	s.sessionReset.Store(false)
	metrics.ConsecutiveFailures.Set(0)

	s.cache.Put(ctx, list)
	s.index(ctx, list)

	return &FetchResult{Candidates: list, Source: models.SourceRemote}
}

// readWithRetry doubles the delay after each failed attempt and stops early
// on errors that retrying cannot fix.
func (s *Service) readWithRetry(ctx context.Context, client sheets.Client) ([][]string, error) {
	attempts := s.res.FetchRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := config.GetDuration(s.res.FetchBaseDelay)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		rows, err := client.Read(ctx, s.sheetsCfg.Range)
		if err == nil {
			return rows, nil
		}
		lastErr = err

		if se, ok := apperrors.AsStandard(err); ok && !se.Retryable {
			break
		}
		if attempt == attempts {
			break
		}

		s.logger.Debug("Retrying candidate read", map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
		if err := s.sleep(ctx, delay); err != nil {
			break
		}
		delay *= 2
	}
	return nil, lastErr
}

func (s *Service) authFailed(ctx context.Context) *FetchResult {
	authErr := apperrors.NewAuthFailedError("spreadsheet session not authorized", nil)
	s.recordFailure(ctx, authErr, false)
	return s.fallback(ctx, apperrors.UserMessage(authErr))
}

func (s *Service) handleFailure(ctx context.Context, err error) *FetchResult {
	se := apperrors.Classify(err, s.signal.Online())
	s.recordFailure(ctx, se, true)
	return s.fallback(ctx, apperrors.UserMessage(se))
}

// recordFailure counts the failure and notifies until the threshold is
// reached. Remote read failures that cross the threshold reset the session.
func (s *Service) recordFailure(ctx context.Context, se *apperrors.StandardError, resetOnThreshold bool) {
	metrics.CandidateFetchFailures.WithLabelValues(apperrors.KindOf(se)).Inc()

	suppressed := s.failures.Exceeded()
	n := s.failures.Increment()
	metrics.ConsecutiveFailures.Set(float64(n))
	if !s.failures.Exceeded() {
		s.sessionReset.Store(false)
	}

	s.logger.Warn("Candidate fetch failed", map[string]interface{}{
		"errorCode":           string(se.Code),
		"subKind":             string(se.SubKind),
		"details":             se.Details,
		"consecutiveFailures": n,
	})
	if !suppressed {
		s.notifier.Notify(Notice{Level: NoticeWarning, Message: apperrors.UserMessage(se)})
	}

	if resetOnThreshold && s.failures.Exceeded() {
		s.resetSessionOnce(ctx)
	}
}

// resetSessionOnce resets the gate at most once per threshold crossing. The
// flag clears on success or once the count drops back under the threshold.
func (s *Service) resetSessionOnce(ctx context.Context) {
	if s.sessionReset.CompareAndSwap(false, true) {
		s.logger.Info("Failure threshold reached, resetting spreadsheet session", map[string]interface{}{
			"consecutiveFailures": s.failures.Count(),
		})
		s.gate.Reset(ctx)
	}
}

// fallback tries the secondary store, then the cache, then demo data.
func (s *Service) fallback(ctx context.Context, notice string) *FetchResult {
	if s.secondary != nil && s.signal.Online() {
		list, err := s.secondary.Select(ctx)
		if err != nil {
			s.logger.Warn("Secondary store unavailable", map[string]interface{}{"error": err.Error()})
		} else if list = normalizeIDs(list); len(list) > 0 {
			return &FetchResult{Candidates: list, Source: models.SourceSecondary, Notice: notice}
		}
	}
	return s.localFallback(ctx, notice)
}

func (s *Service) localFallback(ctx context.Context, notice string) *FetchResult {
	if cached, ok := s.cache.Any(ctx); ok {
		return &FetchResult{Candidates: cached, Source: models.SourceCache, Notice: notice}
	}
	return &FetchResult{Candidates: DemoCandidates(), Source: models.SourceMock, Notice: notice}
}

func (s *Service) offlineFallback(ctx context.Context) *FetchResult {
	if cached, ok := s.cache.Any(ctx); ok {
		msg := "You are offline, using cached data"
		if s.notices.Allow("offline-cache") {
			s.notifier.Notify(Notice{Level: NoticeInfo, Message: msg})
		}
		return &FetchResult{Candidates: cached, Source: models.SourceCache, Notice: msg}
	}
	msg := "You are offline, using demo data"
	if s.notices.Allow("offline-demo") {
		s.notifier.Notify(Notice{Level: NoticeWarning, Message: msg})
	}
	return &FetchResult{Candidates: DemoCandidates(), Source: models.SourceMock, Notice: msg}
}

func (s *Service) index(ctx context.Context, list []models.Candidate) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Index(ctx, list); err != nil {
		s.logger.Warn("Failed to index candidates", map[string]interface{}{"error": err.Error()})
	}
}

// FetchByID finds one candidate. The id is normalized the same way as row
// ids; sentinel ids never match. Absence is reported with ok=false.
func (s *Service) FetchByID(ctx context.Context, id string) (models.Candidate, bool) {
	want := NormalizeID(id)
	if IsSentinelID(want) {
		return models.Candidate{}, false
	}

	if cached, ok := s.cache.Fresh(ctx); ok {
		if c, found := findByID(cached, want); found {
			return c, true
		}
	}

	rows, err := s.remoteRows(ctx)
	if err == nil {
		if c, found := scanRows(rows, want); found {
			return c, true
		}
	} else {
		s.logger.Debug("Remote lookup unavailable", map[string]interface{}{"id": want, "error": err.Error()})
		if cached, ok := s.cache.Any(ctx); ok {
			if c, found := findByID(cached, want); found {
				return c, true
			}
		}
	}

	return findByID(DemoCandidates(), want)
}

// remoteRows reads the full sheet. There is no server-side filter, so a
// lookup costs one full read.
func (s *Service) remoteRows(ctx context.Context) ([][]string, error) {
	if err := s.sheetsCfg.Validate(); err != nil {
		return nil, err
	}
	if !s.signal.Online() {
		return nil, apperrors.NewNetworkError(errOffline)
	}
	if !s.gate.EnsureAuthorized(ctx) {
		return nil, apperrors.NewAuthFailedError("spreadsheet session not authorized", nil)
	}
	client := s.gate.Client()
	if client == nil {
		return nil, apperrors.NewAuthFailedError("spreadsheet session not authorized", nil)
	}
	return s.readWithRetry(ctx, client)
}

func scanRows(rows [][]string, want string) (models.Candidate, bool) {
	for _, row := range rows {
		if len(row) == 0 || NormalizeID(row[colID]) != want {
			continue
		}
		c, err := RowToCandidate(row)
		if err != nil {
			continue
		}
		return c, true
	}
	return models.Candidate{}, false
}

func findByID(list []models.Candidate, want string) (models.Candidate, bool) {
	for _, c := range list {
		if NormalizeID(c.ID) == want {
			return c, true
		}
	}
	return models.Candidate{}, false
}

// Add appends one candidate row. It requires write credentials; while
// offline the add is queued and flushed when connectivity returns.
func (s *Service) Add(ctx context.Context, c models.Candidate) (AddOutcome, error) {
	c.ID = NormalizeID(c.ID)
	if c.Sectors == nil {
		c.Sectors = []string{}
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}

	if res := validation.Validate(validation.CandidateSchema, c); !res.Valid {
		return "", res.Err()
	}
	if IsSentinelID(c.ID) {
		return "", apperrors.NewValidationFailedError(fmt.Sprintf("id %q is reserved", c.ID))
	}
	if s.writer == nil {
		return "", apperrors.NewConfigMissingError("sheets.credentials_file", writeCredentialsHint)
	}

	if !s.signal.Online() {
		return s.queueAdd(ctx, c), nil
	}

	if err := s.appendCandidate(ctx, c); err != nil {
		se := apperrors.Classify(err, s.signal.Online())
		if se.Code == apperrors.ErrCodeNetwork {
			return s.queueAdd(ctx, c), nil
		}
		s.logger.Error("Failed to add candidate", map[string]interface{}{
			"candidateId": c.ID,
			"errorCode":   string(se.Code),
			"details":     se.Details,
		})
		return "", se
	}

	s.logger.Info("Candidate added", map[string]interface{}{"candidateId": c.ID})
	return AddAppended, nil
}

func (s *Service) appendCandidate(ctx context.Context, c models.Candidate) error {
	if err := s.writer.Append(ctx, s.sheetsCfg.AppendRange, [][]string{CandidateToRow(c)}); err != nil {
		return err
	}
	if s.secondary != nil {
		if err := s.secondary.Upsert(ctx, c); err != nil {
			s.logger.Warn("Failed to mirror candidate to secondary store", map[string]interface{}{
				"candidateId": c.ID,
				"error":       err.Error(),
			})
		}
	}
	s.cache.Clear(ctx)
	return nil
}

func (s *Service) queueAdd(ctx context.Context, c models.Candidate) AddOutcome {
	if err := s.pending.Push(ctx, c); err != nil {
		s.logger.Warn("Queued add kept in memory only", map[string]interface{}{
			"candidateId": c.ID,
			"error":       err.Error(),
		})
	}
	s.notifier.Notify(Notice{Level: NoticeInfo, Message: "You are offline; the candidate will be saved when the connection returns"})
	return AddQueued
}

// FlushPending appends queued adds in order and stops at the first failure.
func (s *Service) FlushPending(ctx context.Context) int {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if s.writer == nil {
		return 0
	}

	flushed := 0
	for {
		c, ok := s.pending.Peek()
		if !ok {
			return flushed
		}
		if err := s.appendCandidate(ctx, c); err != nil {
			s.logger.Warn("Queued add still failing", map[string]interface{}{
				"candidateId": c.ID,
				"remaining":   s.pending.Len(),
				"error":       err.Error(),
			})
			return flushed
		}
		if err := s.pending.Pop(ctx); err != nil {
			s.logger.Warn("Failed to persist pending add queue", map[string]interface{}{"error": err.Error()})
		}
		flushed++
	}
}

// Remove deletes a candidate from the secondary store.
func (s *Service) Remove(ctx context.Context, id string) error {
	if s.secondary == nil {
		return apperrors.NewConfigMissingError("database.supabase", "enable the secondary store to delete candidates")
	}
	want := NormalizeID(id)
	if IsSentinelID(want) {
		return apperrors.NewNotFoundError("candidate", id)
	}
	if err := s.secondary.Delete(ctx, want); err != nil {
		return err
	}
	s.cache.Clear(ctx)
	return nil
}

// ResetSession clears the session, cache and failure count.
func (s *Service) ResetSession(ctx context.Context) {
	s.gate.Reset(ctx)
	s.cache.Clear(ctx)
	s.failures.Reset()
	s.sessionReset.Store(false)
	metrics.ConsecutiveFailures.Set(0)
}

type Health struct {
	Online              bool `json:"online"`
	Authorized          bool `json:"authorized"`
	ConsecutiveFailures int  `json:"consecutiveFailures"`
	PendingAdds         int  `json:"pendingAdds"`
}

func (s *Service) Health() Health {
	return Health{
		Online:              s.signal.Online(),
		Authorized:          s.gate.Client() != nil,
		ConsecutiveFailures: s.failures.Count(),
		PendingAdds:         s.pending.Len(),
	}
}

// Failures exposes the failure tracker.
func (s *Service) Failures() *FailureTracker {
	return s.failures
}
