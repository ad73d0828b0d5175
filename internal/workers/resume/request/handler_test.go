package resumerequest

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) RequestResume(ctx context.Context, req models.ResumeRequest) (*models.ResumeRequestResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ResumeRequestResult), args.Error(1)
}

func TestHandler_Execute(t *testing.T) {
	svc := new(MockRequester)
	req := models.ResumeRequest{CandidateID: "A1", RecipientEmail: "viewer@client.com"}
	svc.On("RequestResume", mock.Anything, req).Return(&models.ResumeRequestResult{RequestID: "r1", Status: "sent"}, nil)

	h := NewHandler(&Config{Timeout: time.Second}, svc, nil, nil, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &req)

	require.NoError(t, err)
	assert.Equal(t, "sent", out.Status)
	svc.AssertExpectations(t)
}

func TestHandler_Execute_Error(t *testing.T) {
	svc := new(MockRequester)
	svc.On("RequestResume", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewNotificationSendFailedError("email", errors.New("throttled")))

	h := NewHandler(&Config{Timeout: time.Second}, svc, nil, nil, logger.NewTestLogger(t))
	_, err := h.Execute(context.Background(), &models.ResumeRequest{CandidateID: "A1"})

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotificationSendFailed))
}
