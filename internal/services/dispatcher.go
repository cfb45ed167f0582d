package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"livey-backend/internal/models"
)

// Dispatcher runs sheet sync off the request path on a fixed pool of workers.
// A full queue drops the job; the order stays unsynced and the retry sweep
// picks it up later.
type Dispatcher struct {
	syncer  Syncer
	jobs    chan models.Order
	workers int
	timeout time.Duration
	log     *zap.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(syncer Syncer, workers, queueSize int, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		syncer:  syncer,
		jobs:    make(chan models.Order, queueSize),
		workers: workers,
		timeout: timeout,
		log:     log,
	}
}

func (d *Dispatcher) Enqueue(o models.Order) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.jobs <- o:
		return true
	default:
		d.log.Warn("sync queue full, leaving order for retry sweep",
			zap.String("order_id", o.ID.String()), zap.String("order_number", o.OrderNumber))
		return false
	}
}

// Start launches the workers. It is a no-op after the first call.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

// Run starts the workers and stops them, draining queued jobs, when ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.Start()
	<-ctx.Done()
	d.Stop()
	return nil
}

// Stop rejects new jobs and waits for queued ones to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for o := range d.jobs {
		d.run(o)
	}
}

func (d *Dispatcher) run(o models.Order) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("sync job panicked", zap.String("order_id", o.ID.String()), zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.syncer.SyncOrder(ctx, &o); err != nil {
		d.log.Warn("background sheets sync failed",
			zap.String("order_id", o.ID.String()),
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
	}
}
