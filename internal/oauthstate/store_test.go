package oauthstate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time      { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func newMemory() (*MemoryStore, *clock) {
	c := &clock{t: time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = c.now
	return s, c
}

func TestMemoryStore_SingleUse(t *testing.T) {
	s, _ := newMemory()
	ctx := context.Background()
	seller := uuid.New()

	require.NoError(t, s.Put(ctx, "st", seller, DefaultTTL))

	got, ok, err := s.TakeOnce(ctx, "st")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, seller, got)

	_, ok, err = s.TakeOnce(ctx, "st")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Expired(t *testing.T) {
	s, c := newMemory()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "st", uuid.New(), DefaultTTL))
	c.add(DefaultTTL)

	_, ok, err := s.TakeOnce(ctx, "st")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len(), "expired state is still consumed")
}

func TestMemoryStore_Unknown(t *testing.T) {
	s, _ := newMemory()
	_, ok, err := s.TakeOnce(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Purge(t *testing.T) {
	s, c := newMemory()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "old", uuid.New(), time.Minute))
	require.NoError(t, s.Put(ctx, "new", uuid.New(), DefaultTTL))
	c.add(2 * time.Minute)

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_ConcurrentTake(t *testing.T) {
	s, _ := newMemory()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "race", uuid.New(), DefaultTTL))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := s.TakeOnce(ctx, "race"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestRunJanitor_StopsOnCancel(t *testing.T) {
	s, _ := newMemory()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunJanitor(ctx, s, time.Millisecond, zap.NewNop()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
