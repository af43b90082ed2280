// Package worker runs background jobs on a fixed set of goroutines fed by a
// bounded queue.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/futig/benchwatch/internal/entity"
	"go.uber.org/zap"
)

// Task is one unit of work. ctx is cancelled when the pool is stopped forcibly.
type Task func(ctx context.Context)

// Observer receives pool events, typically for metrics.
type Observer interface {
	QueueDepth(pool string, depth int)
	TaskFinished(pool string, panicked bool)
}

type job struct {
	id   string
	task Task
}

type Config struct {
	Name      string
	Workers   int
	QueueSize int
}

type Pool struct {
	name     string
	workers  int
	jobs     chan job
	observer Observer
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
	started atomic.Bool

	processed atomic.Uint64
	panicked  atomic.Uint64
}

type Option func(*Pool)

func WithObserver(o Observer) Option {
	return func(p *Pool) {
		p.observer = o
	}
}

func New(cfg Config, logger *zap.Logger, opts ...Option) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:    cfg.Name,
		workers: cfg.Workers,
		jobs:    make(chan job, cfg.QueueSize),
		logger:  logger.With(zap.String("pool", cfg.Name)),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.logger.Info("worker pool started", zap.Int("workers", p.workers), zap.Int("queue_size", cap(p.jobs)))
}

// Submit enqueues task without blocking. A full queue returns ErrQueueFull.
func (p *Pool) Submit(id string, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return entity.ErrPoolStopped
	}

	select {
	case p.jobs <- job{id: id, task: task}:
		p.reportDepth()
		return nil
	default:
		return entity.ErrQueueFull
	}
}

// Stop refuses new tasks and waits for queued ones to finish. If ctx ends
// first, running tasks are cancelled and ctx.Err is returned.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool stopped", zap.Uint64("processed", p.processed.Load()))
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("worker pool stop timed out, cancelling running tasks")
		return ctx.Err()
	}
}

type Stats struct {
	Workers   int
	Queued    int
	Processed uint64
	Panicked  uint64
}

func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Queued:    len(p.jobs),
		Processed: p.processed.Load(),
		Panicked:  p.panicked.Load(),
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.reportDepth()
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	panicked := false
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			p.panicked.Add(1)
			p.logger.Error("worker task panicked",
				zap.String("job_id", j.id),
				zap.Error(fmt.Errorf("panic: %v", r)),
				zap.ByteString("stack", debug.Stack()),
			)
		}
		p.processed.Add(1)
		if p.observer != nil {
			p.observer.TaskFinished(p.name, panicked)
		}
	}()

	j.task(p.ctx)
}

func (p *Pool) reportDepth() {
	if p.observer != nil {
		p.observer.QueueDepth(p.name, len(p.jobs))
	}
}
