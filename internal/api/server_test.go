package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"candidate-portal/internal/candidates"
	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/models"
	"candidate-portal/internal/search"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==========================
// Mocks
// ==========================

type MockCandidates struct {
	mock.Mock
}

func (m *MockCandidates) Load(ctx context.Context) *candidates.FetchResult {
	return m.Called(ctx).Get(0).(*candidates.FetchResult)
}

func (m *MockCandidates) FetchByID(ctx context.Context, id string) (models.Candidate, bool) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Candidate), args.Bool(1)
}

func (m *MockCandidates) Add(ctx context.Context, c models.Candidate) (candidates.AddOutcome, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(candidates.AddOutcome), args.Error(1)
}

func (m *MockCandidates) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCandidates) ResetSession(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockCandidates) Health() candidates.Health {
	return m.Called().Get(0).(candidates.Health)
}

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, q search.Query) *search.Result {
	return m.Called(ctx, q).Get(0).(*search.Result)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, t models.EventType, data map[string]interface{}) models.TrackedEvent {
	return m.Called(ctx, t, data).Get(0).(models.TrackedEvent)
}

type MockResume struct {
	mock.Mock
}

func (m *MockResume) RequestResume(ctx context.Context, req models.ResumeRequest) (*models.ResumeRequestResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ResumeRequestResult), args.Error(1)
}

// ==========================
// Helpers
// ==========================

type fixture struct {
	svc      *MockCandidates
	searcher *MockSearcher
	recorder *MockRecorder
	resume   *MockResume
	router   *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		svc:      new(MockCandidates),
		searcher: new(MockSearcher),
		recorder: new(MockRecorder),
		resume:   new(MockResume),
	}
	f.router = NewRouter(Deps{
		Candidates: f.svc,
		Search:     f.searcher,
		Activity:   f.recorder,
		Resume:     f.resume,
		Version:    "test",
	}, logger.NewTestLogger(t))
	return f
}

func (f *fixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ==========================
// Candidates
// ==========================

func TestListCandidates(t *testing.T) {
	f := newFixture(t)
	f.svc.On("Load", mock.Anything).Return(&candidates.FetchResult{
		Candidates: []models.Candidate{{ID: "A1", Headline: "CFO"}},
		Source:     models.SourceCache,
		Notice:     "Showing saved data",
	})

	w := f.do(http.MethodGet, "/api/candidates", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDKey))
	resp := decode(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "cache", data["source"])
	assert.Equal(t, "Showing saved data", data["notice"])
	assert.Len(t, data["candidates"], 1)
}

func TestGetCandidate(t *testing.T) {
	f := newFixture(t)
	f.svc.On("FetchByID", mock.Anything, "A1").Return(models.Candidate{ID: "A1"}, true)
	f.svc.On("FetchByID", mock.Anything, "ZZ").Return(models.Candidate{}, false)

	w := f.do(http.MethodGet, "/api/candidates/A1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/candidates/ZZ", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, string(apperrors.ErrCodeNotFound), resp.Error.Code)
}

func TestAddCandidate(t *testing.T) {
	tests := []struct {
		name       string
		outcome    candidates.AddOutcome
		err        error
		wantStatus int
	}{
		{name: "appended", outcome: candidates.AddAppended, wantStatus: http.StatusCreated},
		{name: "queued while offline", outcome: candidates.AddQueued, wantStatus: http.StatusAccepted},
		{name: "invalid", err: apperrors.NewValidationFailedError("headline required"), wantStatus: http.StatusBadRequest},
		{name: "no write credentials", err: apperrors.NewConfigMissingError("sheets.credentials_file", ""), wantStatus: http.StatusServiceUnavailable},
		{name: "remote rejected", err: apperrors.NewRemoteAPIError(apperrors.SubKindPermissionDenied, errors.New("403")), wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.svc.On("Add", mock.Anything, mock.AnythingOfType("models.Candidate")).Return(tt.outcome, tt.err)

			w := f.do(http.MethodPost, "/api/candidates", map[string]interface{}{"id": " b7 ", "headline": "CTO"})

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.err == nil {
				data := decode(t, w).Data.(map[string]interface{})
				assert.Equal(t, "b7", data["id"])
				assert.Equal(t, string(tt.outcome), data["outcome"])
			}
		})
	}
}

func TestAddCandidate_MalformedBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/candidates", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.svc.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestRemoveCandidate(t *testing.T) {
	f := newFixture(t)
	f.svc.On("Remove", mock.Anything, "A1").Return(nil)
	f.svc.On("Remove", mock.Anything, "A2").Return(apperrors.NewConfigMissingError("database.supabase", ""))

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/candidates/A1", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodDelete, "/api/candidates/A2", nil).Code)
}

// ==========================
// Search, activity, resume
// ==========================

func TestSearch_BindsQuery(t *testing.T) {
	f := newFixture(t)
	want := search.Query{Text: "fintech cfo", Sector: "Finance", Size: 5}
	f.searcher.On("Search", mock.Anything, want).Return(&search.Result{Total: 0, Engine: "local"})

	w := f.do(http.MethodGet, "/api/search?q=fintech+cfo&sector=Finance&size=5", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	f.searcher.AssertExpectations(t)
}

func TestSearch_BadSize(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/search?size=lots", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordActivity(t *testing.T) {
	f := newFixture(t)
	data := map[string]interface{}{"candidateId": "A1"}
	f.recorder.On("Record", mock.Anything, models.EventView, data).
		Return(models.TrackedEvent{ID: "e1", Type: models.EventView})

	w := f.do(http.MethodPost, "/api/activity", map[string]interface{}{"type": "view", "data": data})
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = f.do(http.MethodPost, "/api/activity", map[string]interface{}{"type": "share"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.recorder.AssertNumberOfCalls(t, "Record", 1)
}

func TestRecordActivity_Disabled(t *testing.T) {
	router := NewRouter(Deps{Candidates: new(MockCandidates), Search: new(MockSearcher)}, logger.NewTestLogger(t))
	req := httptest.NewRequest(http.MethodPost, "/api/activity", bytes.NewBufferString(`{"type":"view"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestResume(t *testing.T) {
	f := newFixture(t)
	ok := models.ResumeRequest{CandidateID: "A1", RecipientEmail: "viewer@client.com"}
	f.resume.On("RequestResume", mock.Anything, ok).Return(&models.ResumeRequestResult{RequestID: "r1", Status: "sent"}, nil)
	missing := models.ResumeRequest{CandidateID: "ZZ", RecipientEmail: "viewer@client.com"}
	f.resume.On("RequestResume", mock.Anything, missing).Return(nil, apperrors.NewNotFoundError("candidate", "ZZ"))

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/resume-requests", ok).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/resume-requests", missing).Code)
}

// ==========================
// Operational routes
// ==========================

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)
	f.svc.On("Health").Return(candidates.Health{Online: false, ConsecutiveFailures: 2}).Once()
	f.svc.On("Health").Return(candidates.Health{Online: false}).Once()
	f.svc.On("Health").Return(candidates.Health{Online: true, Authorized: true}).Once()

	w := f.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Service.ConsecutiveFailures)
	assert.Equal(t, "test", body.Version)

	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/ready", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/ready", nil).Code)
}

func TestResetSession(t *testing.T) {
	f := newFixture(t)
	f.svc.On("ResetSession", mock.Anything).Return()

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/api/admin/reset-session", nil).Code)
	f.svc.AssertCalled(t, "ResetSession", mock.Anything)
}

func TestRecovery_Panic(t *testing.T) {
	f := newFixture(t)
	f.svc.On("Load", mock.Anything).Run(func(mock.Arguments) { panic("boom") })

	w := f.do(http.MethodGet, "/api/candidates", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeInternal), decode(t, w).Error.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, statusFor(apperrors.ErrCodeThrottled))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(apperrors.ErrCodeTimeout))
	assert.Equal(t, http.StatusInternalServerError, statusFor(apperrors.ErrCodeInternal))
}
