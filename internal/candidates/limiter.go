package candidates

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum interval between operations using a token
// bucket of size one.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	lim      *rate.Limiter
	now      func() time.Time
}

func NewLimiter(interval time.Duration, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		interval: interval,
		lim:      newBucket(interval),
		now:      now,
	}
}

func newBucket(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// ShouldThrottle consumes the token when available and reports true when
// the previous allowed call was less than the interval ago.
func (l *Limiter) ShouldThrottle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.lim.AllowN(l.now(), 1)
}

// Reset refills the bucket.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lim = newBucket(l.interval)
}

// FailureTracker counts consecutive remote failures.
type FailureTracker struct {
	count     atomic.Int64
	threshold int64
}

func NewFailureTracker(threshold int) *FailureTracker {
	if threshold < 1 {
		threshold = 1
	}
	return &FailureTracker{threshold: int64(threshold)}
}

// Increment adds one failure and returns the new count.
func (f *FailureTracker) Increment() int {
	return int(f.count.Add(1))
}

func (f *FailureTracker) Reset() {
	f.count.Store(0)
}

func (f *FailureTracker) Count() int {
	return int(f.count.Load())
}

func (f *FailureTracker) Exceeded() bool {
	return f.count.Load() >= f.threshold
}
