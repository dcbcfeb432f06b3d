// Package worker runs tasks on bounded goroutine pools.
//
// Code outside this package does not start naked goroutines: concurrent work
// is submitted to a Pool with the caller's context.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"servicecatalog.io/catalog/internal/pkg/logger"
)

// Task is a context-aware task function.
type Task func(ctx context.Context)

// Pool wraps ants.Pool with context-aware submission.
type Pool struct {
	pool *ants.Pool
	name string
}

// New creates a blocking pool of size workers. Panics inside tasks are
// recovered and logged.
func New(name string, size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("worker pool %q: size must be positive, got %d", name, size)
	}

	p, err := ants.NewPool(size,
		ants.WithPanicHandler(func(v interface{}) {
			logger.Error("Worker panic recovered",
				zap.String("pool", name),
				zap.Any("panic", v),
				zap.Stack("stack"),
			)
		}),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("worker pool %q: %w", name, err)
	}
	return &Pool{pool: p, name: name}, nil
}

// Submit queues task. A context canceled before submission returns ctx.Err()
// and the task never runs. Blocks while every worker is busy.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.pool.Submit(func() { task(ctx) })
}

// Release waits up to timeout for running tasks, then frees the pool.
func (p *Pool) Release(timeout time.Duration) error {
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		logger.Warn("Worker pool release timeout", zap.String("pool", p.name), zap.Error(err))
		return err
	}
	return nil
}

// Batch tracks a set of fallible tasks submitted to one Pool.
type Batch struct {
	pool *Pool
	wg   sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// NewBatch starts an empty batch on p.
func (p *Pool) NewBatch() *Batch {
	return &Batch{pool: p}
}

// Go submits fn. Every submitted fn is accounted for in Wait, including ones
// skipped because ctx ended while they were queued.
func (b *Batch) Go(ctx context.Context, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	err := b.pool.Submit(ctx, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				b.record(fmt.Errorf("task panic: %v", r))
			}
			b.wg.Done()
		}()
		if err := ctx.Err(); err != nil {
			logger.Debug("Task skipped: context cancelled",
				zap.String("pool", b.pool.name),
				zap.Error(err),
			)
			b.record(err)
			return
		}
		b.record(fn(ctx))
	})
	if err != nil {
		b.wg.Done()
		b.record(err)
	}
}

// Wait blocks until every submitted task has finished and joins their errors.
func (b *Batch) Wait() error {
	b.wg.Wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	return errors.Join(b.errs...)
}

func (b *Batch) record(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	b.errs = append(b.errs, err)
	b.mu.Unlock()
}
