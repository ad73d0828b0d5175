package fetchbyid

import (
	"context"
	"testing"
	"time"

	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFinder struct {
	mock.Mock
}

func (m *MockFinder) FetchByID(ctx context.Context, id string) (models.Candidate, bool) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Candidate), args.Bool(1)
}

func newTestHandler(t *testing.T, f Finder) *Handler {
	return NewHandler(&Config{Timeout: time.Second}, f, nil, nil, logger.NewTestLogger(t))
}

func TestHandler_Execute_Found(t *testing.T) {
	f := new(MockFinder)
	f.On("FetchByID", mock.Anything, "A1").Return(models.Candidate{ID: "A1", Headline: "CFO"}, true)

	out, err := newTestHandler(t, f).Execute(context.Background(), &Input{CandidateID: "A1"})

	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "CFO", out.Candidate.Headline)
}

func TestHandler_Execute_Absent(t *testing.T) {
	f := new(MockFinder)
	f.On("FetchByID", mock.Anything, "FALSE").Return(models.Candidate{}, false)

	out, err := newTestHandler(t, f).Execute(context.Background(), &Input{CandidateID: "FALSE"})

	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Nil(t, out.Candidate)
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		wantID    string
		wantErr   bool
	}{
		{"valid", `{"candidateId":"A1"}`, "A1", false},
		{"missing id", `{"other":1}`, "", true},
		{"blank id", `{"candidateId":"  "}`, "", true},
		{"bad json", `{`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := parseInput(tt.variables)
			if tt.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, in.CandidateID)
		})
	}
}
