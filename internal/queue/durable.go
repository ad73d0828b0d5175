// Package queue provides a FIFO that survives restarts by mirroring its
// contents into a kv.Store after every mutation.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"candidate-portal/internal/common/kv"
)

type Durable[T any] struct {
	mu     sync.Mutex
	store  kv.Store
	key    string
	items  []T
	loaded bool
}

func NewDurable[T any](store kv.Store, key string) *Durable[T] {
	return &Durable[T]{store: store, key: key}
}

// Load restores persisted items. It is a no-op after the first success.
func (q *Durable[T]) Load(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadLocked(ctx)
}

func (q *Durable[T]) loadLocked(ctx context.Context) error {
	if q.loaded {
		return nil
	}
	raw, ok, err := q.store.Get(ctx, q.key)
	if err != nil {
		return fmt.Errorf("load queue %s: %w", q.key, err)
	}
	if ok && raw != "" {
		var items []T
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return fmt.Errorf("decode queue %s: %w", q.key, err)
		}
		q.items = append(items, q.items...)
	}
	q.loaded = true
	return nil
}

// Push appends item. The item is kept in memory even when persisting fails.
func (q *Durable[T]) Push(ctx context.Context, item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.loadLocked(ctx); err != nil {
		q.items = append(q.items, item)
		return err
	}
	q.items = append(q.items, item)
	return q.persistLocked(ctx)
}

// Peek returns the head without removing it.
func (q *Durable[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	return q.items[0], true
}

// Pop removes the head.
func (q *Durable[T]) Pop(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	q.items = q.items[1:]
	return q.persistLocked(ctx)
}

func (q *Durable[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the queued items in order.
func (q *Durable[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Durable[T]) persistLocked(ctx context.Context) error {
	if len(q.items) == 0 {
		return q.store.Remove(ctx, q.key)
	}
	data, err := json.Marshal(q.items)
	if err != nil {
		return fmt.Errorf("encode queue %s: %w", q.key, err)
	}
	return q.store.Set(ctx, q.key, string(data))
}
