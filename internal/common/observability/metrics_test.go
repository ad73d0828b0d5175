package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_Lifecycle(t *testing.T) {
	o, err := New("candidate-portal-test")
	require.NoError(t, err)

	ctx, span := o.StartSpan(context.Background(), "fetch")
	assert.True(t, span.SpanContext().IsValid())
	o.RecordFetch(ctx, "remote", 120*time.Millisecond)
	o.RecordJobDuration(ctx, "candidate-fetch-all", time.Second, "completed")
	span.End()

	assert.NoError(t, o.Shutdown(context.Background()))
}

func TestObservability_NilSafe(t *testing.T) {
	var o *Observability

	ctx, span := o.StartSpan(context.Background(), "noop")
	defer span.End()
	o.RecordFetch(ctx, "cache", time.Millisecond)
	o.RecordJobDuration(ctx, "candidate-add", time.Millisecond, "failed")
	assert.NoError(t, o.Shutdown(ctx))
}
