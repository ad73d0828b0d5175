// Package activity records viewer interactions (agreement, view, download,
// print) into a durable queue and drains it to a sink in the background.
// Recording never blocks on the sink and never fails.
package activity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"candidate-portal/internal/common/connectivity"
	"candidate-portal/internal/common/kv"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/common/metrics"
	"candidate-portal/internal/models"
	"candidate-portal/internal/queue"

	"github.com/google/uuid"
)

// Sink delivers one event. An error leaves the event queued.
type Sink interface {
	Deliver(ctx context.Context, e models.TrackedEvent) error
}

// Authorizer gates delivery for sinks that write through the remote store
// session.
type Authorizer interface {
	EnsureAuthorized(ctx context.Context) bool
}

type Option func(*Tracker)

func WithAuthorizer(a Authorizer) Option {
	return func(t *Tracker) { t.auth = a }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithDrainTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.drainTimeout = d }
}

type Tracker struct {
	queue        *queue.Durable[models.TrackedEvent]
	sink         Sink
	signal       connectivity.Signal
	auth         Authorizer
	logger       logger.Logger
	now          func() time.Time
	drainTimeout time.Duration

	draining atomic.Bool
	closed   atomic.Bool
	wg       sync.WaitGroup
}

func NewTracker(store kv.Store, queueKey string, sink Sink, signal connectivity.Signal, log logger.Logger, opts ...Option) *Tracker {
	if signal == nil {
		signal = connectivity.NewStatic(true)
	}
	t := &Tracker{
		queue:        queue.NewDurable[models.TrackedEvent](store, queueKey),
		sink:         sink,
		signal:       signal,
		logger:       log.WithFields(map[string]interface{}{"component": "activity-tracker"}),
		now:          time.Now,
		drainTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start restores events left over from a previous run and drains whenever
// connectivity returns.
func (t *Tracker) Start(ctx context.Context) {
	if err := t.queue.Load(ctx); err != nil {
		t.logger.Warn("Failed to restore activity queue", map[string]interface{}{"error": err.Error()})
	}
	metrics.ActivityQueueDepth.Set(float64(t.queue.Len()))

	t.signal.OnRestored(t.DrainAsync)
	t.DrainAsync()
}

// Record enqueues an event and kicks off a background drain. Unknown event
// types are dropped with a log line.
func (t *Tracker) Record(ctx context.Context, eventType models.EventType, data map[string]interface{}) models.TrackedEvent {
	e := models.TrackedEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Data:      data,
		Timestamp: t.now().UTC().Format(time.RFC3339),
	}
	if e.Data == nil {
		e.Data = map[string]interface{}{}
	}

	if !eventType.Valid() {
		t.logger.Warn("Dropping activity with unknown type", map[string]interface{}{"type": string(eventType)})
		return e
	}
	if t.closed.Load() {
		t.logger.Warn("Activity tracker closed, event dropped", map[string]interface{}{"type": string(eventType)})
		return e
	}

	if err := t.queue.Push(ctx, e); err != nil {
		t.logger.Warn("Activity event not persisted", map[string]interface{}{
			"eventId": e.ID,
			"error":   err.Error(),
		})
	}
	metrics.ActivityQueueDepth.Set(float64(t.queue.Len()))

	t.DrainAsync()
	return e
}

// DrainAsync starts a drain unless one is running or the tracker is offline.
func (t *Tracker) DrainAsync() {
	if t.closed.Load() || !t.signal.Online() {
		return
	}
	if !t.draining.CompareAndSwap(false, true) {
		return
	}

	t.wg.Add(1)
	go t.runDrains()
}

func (t *Tracker) runDrains() {
	defer t.wg.Done()
	for {
		ctx, cancel := context.WithTimeout(context.Background(), t.drainTimeout)
		_, emptied := t.drain(ctx)
		cancel()
		if !t.release(emptied) {
			return
		}
	}
}

// release clears the drain flag. It returns true, holding the flag again,
// when a Record pushed after the pass last looked at the queue. A pass that
// stopped early is not repeated.
func (t *Tracker) release(emptied bool) bool {
	t.draining.Store(false)
	if !emptied || t.closed.Load() || !t.signal.Online() || t.queue.Len() == 0 {
		return false
	}
	return t.draining.CompareAndSwap(false, true)
}

// Drain delivers queued events in order and stops at the first failure.
// It returns how many were delivered.
func (t *Tracker) Drain(ctx context.Context) int {
	delivered, _ := t.drain(ctx)
	return delivered
}

// drain also reports whether it stopped because the queue ran empty.
func (t *Tracker) drain(ctx context.Context) (delivered int, emptied bool) {
	if t.sink == nil {
		return 0, false
	}
	if t.auth != nil && !t.auth.EnsureAuthorized(ctx) {
		t.logger.Debug("Activity drain skipped, store not authorized", nil)
		return 0, false
	}

	for t.signal.Online() {
		e, ok := t.queue.Peek()
		if !ok {
			emptied = true
			break
		}
		if err := t.sink.Deliver(ctx, e); err != nil {
			metrics.ActivityDelivered.WithLabelValues("failed").Inc()
			t.logger.Warn("Activity delivery failed", map[string]interface{}{
				"eventId": e.ID,
				"type":    string(e.Type),
				"pending": t.queue.Len(),
				"error":   err.Error(),
			})
			break
		}
		metrics.ActivityDelivered.WithLabelValues("delivered").Inc()
		if err := t.queue.Pop(ctx); err != nil {
			t.logger.Warn("Failed to persist activity queue", map[string]interface{}{"error": err.Error()})
		}
		delivered++
	}

	metrics.ActivityQueueDepth.Set(float64(t.queue.Len()))
	if delivered > 0 {
		t.logger.Debug("Activity events delivered", map[string]interface{}{"count": delivered})
	}
	return delivered, emptied
}

// Pending returns the queued events in order.
func (t *Tracker) Pending() []models.TrackedEvent {
	return t.queue.Snapshot()
}

// Wait blocks until in-flight drains finish.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Close stops accepting events and waits for running drains.
func (t *Tracker) Close() {
	t.closed.Store(true)
	t.wg.Wait()
}
