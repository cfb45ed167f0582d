package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"livey-backend/internal/models"
)

// blockingSyncer holds every job until release is closed.
type blockingSyncer struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
	stubSyncer
}

func (b *blockingSyncer) SyncOrder(ctx context.Context, o *models.Order) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.stubSyncer.SyncOrder(ctx, o)
}

func TestDispatcher_RunsJobs(t *testing.T) {
	syncer := &stubSyncer{}
	d := NewDispatcher(syncer, 2, 8, time.Second, zap.NewNop())
	d.Start()

	for i := 0; i < 5; i++ {
		assert.True(t, d.Enqueue(models.Order{ID: uuid.New()}))
	}
	d.Stop()

	assert.Equal(t, 5, syncer.count())
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	syncer := &blockingSyncer{release: make(chan struct{}), started: make(chan struct{})}
	d := NewDispatcher(syncer, 1, 1, time.Second, zap.NewNop())
	d.Start()

	require.True(t, d.Enqueue(models.Order{ID: uuid.New()}))
	<-syncer.started

	assert.True(t, d.Enqueue(models.Order{ID: uuid.New()}), "one slot in the buffer")
	assert.False(t, d.Enqueue(models.Order{ID: uuid.New()}), "queue full")

	close(syncer.release)
	d.Stop()
	assert.Equal(t, 2, syncer.count())
}

func TestDispatcher_RejectsAfterStop(t *testing.T) {
	d := NewDispatcher(&stubSyncer{}, 1, 4, time.Second, zap.NewNop())
	d.Start()
	d.Stop()
	d.Stop()

	assert.False(t, d.Enqueue(models.Order{ID: uuid.New()}))
}

func TestDispatcher_JobHasDeadline(t *testing.T) {
	var (
		got         time.Duration
		hasDeadline bool
	)
	syncer := syncFunc(func(ctx context.Context, _ *models.Order) error {
		var deadline time.Time
		deadline, hasDeadline = ctx.Deadline()
		got = time.Until(deadline)
		return nil
	})
	d := NewDispatcher(syncer, 1, 1, 3*time.Second, zap.NewNop())
	d.Start()
	d.Enqueue(models.Order{ID: uuid.New()})
	d.Stop()

	require.True(t, hasDeadline)
	assert.InDelta(t, float64(3*time.Second), float64(got), float64(time.Second))
}

func TestDispatcher_SurvivesPanickingJob(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	syncer := syncFunc(func(context.Context, *models.Order) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			panic("boom")
		}
		return nil
	})
	d := NewDispatcher(syncer, 1, 4, time.Second, zap.NewNop())
	d.Start()
	d.Enqueue(models.Order{ID: uuid.New()})
	d.Enqueue(models.Order{ID: uuid.New()})
	d.Stop()

	assert.Equal(t, 2, calls)
}

func TestDispatcher_RunDrainsOnCancel(t *testing.T) {
	syncer := &stubSyncer{}
	d := NewDispatcher(syncer, 1, 4, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return d.Enqueue(models.Order{ID: uuid.New()}) }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, syncer.count())
}

type syncFunc func(ctx context.Context, o *models.Order) error

func (f syncFunc) SyncOrder(ctx context.Context, o *models.Order) error { return f(ctx, o) }
