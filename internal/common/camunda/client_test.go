package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"candidate-portal/internal/common/config"
	apperrors "candidate-portal/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return &Client{config: &ClientConfig{
		RetryConfig: &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}}
}

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	c := testClient()
	calls := 0
	err := c.ExecuteWithRetry(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return nil
	}, "publish")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithRetry_GivesUp(t *testing.T) {
	c := testClient()
	calls := 0
	err := c.ExecuteWithRetry(context.Background(), func(context.Context) error {
		calls++
		return errors.New("connection reset by peer")
	}, "publish")

	assert.Equal(t, 3, calls)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNetwork))
}

func TestSendOnce(t *testing.T) {
	var _ Retrier = (*Client)(nil)

	calls := 0
	err := SendOnce.ExecuteWithRetry(context.Background(), func(context.Context) error {
		calls++
		return errors.New("unavailable")
	}, "complete job")

	assert.EqualError(t, err, "unavailable")
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetry_PermanentErrorNotRetried(t *testing.T) {
	c := testClient()
	calls := 0
	err := c.ExecuteWithRetry(context.Background(), func(context.Context) error {
		calls++
		return errors.New("process definition not found")
	}, "create instance")

	assert.Equal(t, 1, calls)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestMapZeebeError(t *testing.T) {
	c := testClient()
	tests := []struct {
		msg  string
		want apperrors.ErrorCode
	}{
		{"context deadline exceeded", apperrors.ErrCodeTimeout},
		{"gateway unreachable", apperrors.ErrCodeNetwork},
		{"job not found", apperrors.ErrCodeNotFound},
		{"Unauthenticated: bad token", apperrors.ErrCodeAuthFailed},
		{"something odd", apperrors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := c.mapZeebeError(errors.New(tt.msg), "op", 0)
			assert.True(t, apperrors.HasCode(err, tt.want), "got %v", err)
		})
	}
}

func TestClientConfigFrom(t *testing.T) {
	cc := ClientConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 5000})
	assert.Equal(t, "zeebe:26500", cc.GatewayAddress)
	assert.True(t, cc.UsePlaintextConnection)
	assert.Equal(t, 5*time.Second, cc.ConnectionTimeout)

	cc = ClientConfigFrom(config.CamundaConfig{TLS: true})
	assert.False(t, cc.UsePlaintextConnection)
}
