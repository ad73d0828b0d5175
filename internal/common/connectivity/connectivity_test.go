package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"candidate-portal/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_FiresOnRestoreOnly(t *testing.T) {
	s := NewStatic(true)
	var calls atomic.Int32
	done := make(chan struct{}, 4)
	s.OnRestored(func() {
		calls.Add(1)
		done <- struct{}{}
	})

	s.Set(true)
	s.Set(false)
	assert.False(t, s.Online())

	s.Set(true)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener not called on restore")
	}
	assert.True(t, s.Online())
	assert.Equal(t, int32(1), calls.Load())
}

func TestMonitor_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))

	m := NewMonitor(srv.URL, time.Second, logger.NewTestLogger(t))
	restored := make(chan struct{}, 1)
	m.OnRestored(func() { restored <- struct{}{} })

	assert.True(t, m.Probe(context.Background()), "any HTTP status counts as online")

	srv.Close()
	assert.False(t, m.Probe(context.Background()))
	assert.False(t, m.Online())

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv2.Close()
	m.url = srv2.URL

	require.True(t, m.Probe(context.Background()))
	select {
	case <-restored:
	case <-time.After(time.Second):
		t.Fatal("restore listener not called")
	}
}

func TestMonitor_StartRejectsBadSpec(t *testing.T) {
	m := NewMonitor("http://127.0.0.1:0", time.Second, logger.NewNoOpLogger())
	assert.Error(t, m.Start("not a schedule"))
	m.Stop()
}
