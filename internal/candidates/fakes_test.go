package candidates

import (
	"context"
	"sync"
	"testing"
	"time"

	"candidate-portal/internal/common/config"
	"candidate-portal/internal/common/connectivity"
	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/kv"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/models"
	"candidate-portal/internal/sheets"

	"github.com/stretchr/testify/require"
)

// fakeSheets is a scripted sheets.Client. Queued read errors are consumed
// one per Read call; a nil entry lets that call succeed.
type fakeSheets struct {
	mu         sync.Mutex
	rows       [][]string
	readErrs   []error
	appendErrs []error
	readyErr   error

	reads      int
	appends    int
	readyCalls int
	appended   [][]string
}

func (f *fakeSheets) Read(ctx context.Context, _ string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewNetworkError(err)
	}
	if len(f.readErrs) > 0 {
		err := f.readErrs[0]
		f.readErrs = f.readErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.rows, nil
}

func (f *fakeSheets) Append(_ context.Context, _ string, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	if len(f.appendErrs) > 0 {
		err := f.appendErrs[0]
		f.appendErrs = f.appendErrs[1:]
		if err != nil {
			return err
		}
	}
	f.appended = append(f.appended, rows...)
	return nil
}

func (f *fakeSheets) IsReady(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyCalls++
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.readyErr
}

func (f *fakeSheets) failReads(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErrs = append(f.readErrs, errs...)
}

func (f *fakeSheets) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// fakeFactory hands out the same client, optionally failing first.
type fakeFactory struct {
	mu     sync.Mutex
	client *fakeSheets
	errs   []error
	calls  int
}

func (f *fakeFactory) build(_ context.Context, _ string) (sheets.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.client, nil
}

const (
	waitFor   = 2 * time.Second
	pollEvery = 10 * time.Millisecond
)

type fakeSecondary struct {
	mu        sync.Mutex
	list      []models.Candidate
	selectErr error
	upserted  []models.Candidate
	deleted   []string
}

func (f *fakeSecondary) Select(_ context.Context) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list, f.selectErr
}

func (f *fakeSecondary) Upsert(_ context.Context, c models.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, c)
	return nil
}

func (f *fakeSecondary) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func testResilience() config.ResilienceConfig {
	return config.ResilienceConfig{
		FreshTTL:          60000,
		StaleWarnAfter:    24 * 60 * 60 * 1000,
		FetchMinInterval:  500,
		AuthMinInterval:   2000,
		FailureThreshold:  3,
		FetchRetries:      3,
		FetchBaseDelay:    1000,
		AuthLoadRetries:   3,
		AuthLoadBaseDelay: 1000,
		AuthInitTimeout:   10000,
		AuthStateMaxAge:   30 * 60 * 1000,
		NoticeCooldown:    5 * 60 * 1000,
		LoadTimeout:       30000,
	}
}

func testSheetsConfig() config.SheetsConfig {
	return config.SheetsConfig{
		SpreadsheetID:  "sheet-123",
		Range:          "Candidates!A2:L",
		AppendRange:    "Candidates!A:L",
		APIKeyStoreKey: "config:sheets_api_key",
	}
}

type harness struct {
	svc      *Service
	store    *kv.MemoryStore
	remote   *fakeSheets
	writer   *fakeSheets
	factory  *fakeFactory
	clock    *fakeClock
	signal   *connectivity.Static
	notices  *noticeRecorder
	sleeps   *sleepRecorder
	sheetCfg config.SheetsConfig
	deps     Dependencies
}

type harnessOption func(h *harness)

func withoutAPIKey() harnessOption {
	return func(h *harness) { h.sheetCfg.APIKeyStoreKey = "missing:key" }
}

func withSheetsConfig(cfg config.SheetsConfig) harnessOption {
	return func(h *harness) { h.sheetCfg = cfg }
}

func withWriter() harnessOption {
	return func(h *harness) {
		h.writer = &fakeSheets{}
		h.deps.Writer = h.writer
	}
}

func withDeps(fn func(*Dependencies)) harnessOption {
	return func(h *harness) { fn(&h.deps) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	remote := &fakeSheets{}
	h := &harness{
		store:    kv.NewMemoryStore(),
		remote:   remote,
		factory:  &fakeFactory{client: remote},
		clock:    newFakeClock(),
		signal:   connectivity.NewStatic(true),
		notices:  &noticeRecorder{},
		sleeps:   &sleepRecorder{},
		sheetCfg: testSheetsConfig(),
	}
	require.NoError(t, h.store.Set(context.Background(), "config:sheets_api_key", "test-key"))

	h.deps = Dependencies{
		Store:    h.store,
		Factory:  h.factory.build,
		Signal:   h.signal,
		Notifier: h.notices,
		Logger:   logger.NewTestLogger(t),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.svc = NewService(h.sheetCfg, testResilience(), h.deps,
		WithClock(h.clock.Now), WithSleep(h.sleeps.sleep))
	return h
}

// tick moves past both the fetch and auth minimum intervals.
func (h *harness) tick() {
	h.clock.Advance(3 * time.Second)
}

// expire moves past the fresh TTL as well.
func (h *harness) expire() {
	h.clock.Advance(2 * time.Minute)
}

func sheetRow(id, headline string) []string {
	return []string{id, headline, "Tech", "Go", "", "Technology", "CTO", "", "Remote", "flexible", "", ""}
}
