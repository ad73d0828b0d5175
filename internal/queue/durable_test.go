package queue

import (
	"context"
	"errors"
	"testing"

	"candidate-portal/internal/common/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID string `json:"id"`
}

type failingStore struct {
	kv.Store
}

func (failingStore) Set(context.Context, string, string) error { return errors.New("disk full") }

func TestDurable_FIFOAndPersistence(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	q := NewDurable[item](store, "q")
	require.NoError(t, q.Push(ctx, item{"a"}))
	require.NoError(t, q.Push(ctx, item{"b"}))

	restored := NewDurable[item](store, "q")
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, []item{{"a"}, {"b"}}, restored.Snapshot())

	head, ok := restored.Peek()
	require.True(t, ok)
	assert.Equal(t, "a", head.ID)

	require.NoError(t, restored.Pop(ctx))
	require.NoError(t, restored.Pop(ctx))
	assert.Equal(t, 0, restored.Len())

	_, present, _ := store.Get(ctx, "q")
	assert.False(t, present, "empty queue removes its key")
}

func TestDurable_PushKeepsItemWhenPersistFails(t *testing.T) {
	q := NewDurable[item](failingStore{kv.NewMemoryStore()}, "q")
	err := q.Push(context.Background(), item{"a"})
	assert.Error(t, err)
	assert.Equal(t, 1, q.Len())
}

func TestDurable_LoadCorrupt(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "q", "{not json"))
	q := NewDurable[item](store, "q")
	assert.Error(t, q.Load(context.Background()))
}
