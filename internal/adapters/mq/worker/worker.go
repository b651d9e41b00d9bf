// Package worker normalizes queued rows and stores the results.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/habitflow/internal/adapters/mq/queue"
	"github.com/okian/habitflow/internal/adapters/repository"
	"github.com/okian/habitflow/internal/domain/model"
	"github.com/okian/habitflow/internal/domain/normalize"
	"github.com/okian/habitflow/pkg/logger"
	"github.com/okian/habitflow/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Processor turns one source row into a normalized record.
type Processor interface {
	Process(ctx context.Context, seq int, row model.Row) (normalize.Result, error)
}

// Collector receives what the workers produce.
type Collector interface {
	Put(ctx context.Context, e repository.Entry) error
	Reject(ctx context.Context, r repository.Rejection) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until the queue drains.
type Worker interface {
	// Run starts the worker loop until the queue closes or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	collector Collector
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, p Processor, c Collector, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		collector: c,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, j); err != nil {
				w.logger.Error(ctx, "error storing result", logger.Int("line", j.Row.Line), logger.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob normalizes one row. Row failures are stored as rejections, only
// collector failures are returned.
func (w *InMemoryWorker) processJob(ctx context.Context, j queue.Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordRecordLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	res, err := w.processor.Process(ctx, j.Seq, j.Row)
	if err != nil {
		reason := normalize.Reason(err)
		metrics.RecordRecordRejected(reason)
		w.logger.Warn(ctx, "row rejected",
			logger.Int("line", j.Row.Line),
			logger.String("reason", reason),
			logger.Error(err),
		)
		return w.collector.Reject(ctx, repository.Rejection{
			Seq:    j.Seq,
			Line:   j.Row.Line,
			Reason: reason,
			Err:    err,
		})
	}

	rec := res.Record
	for _, ev := range rec.Events {
		if !ev.Timestamp.Known {
			metrics.RecordUnknownEvent(ev.Type.String())
		}
		if ev.RolledOver {
			metrics.RecordRollover(ev.Type.String())
		}
	}
	if res.Unordered {
		w.logger.Warn(ctx, "events still out of order after rollover",
			logger.Int("line", rec.Line),
			logger.String("date", rec.Date.Format(time.DateOnly)),
		)
	}

	if err := w.collector.Put(ctx, repository.Entry{Record: rec, Unordered: res.Unordered}); err != nil {
		return fmt.Errorf("store line %d: %w", rec.Line, err)
	}
	metrics.RecordRecordProcessed()
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a worker pool. A workerCount below 1 uses one worker per CPU.
// opts apply to every worker.
func NewPool(workerCount int, q Queue, p Processor, c Collector, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, p, c, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained or the context passed to Start ends.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return fmt.Errorf("wait for workers: %w", ctx.Err())
		}
	}
	return nil
}

// Shutdown closes the queue if it can be closed and stops every worker.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
