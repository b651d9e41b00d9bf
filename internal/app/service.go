// Package service runs a batch of source rows through the normalizer.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	eventqueue "github.com/okian/habitflow/internal/adapters/mq/queue"
	workerpool "github.com/okian/habitflow/internal/adapters/mq/worker"
	repository "github.com/okian/habitflow/internal/adapters/repository"
	"github.com/okian/habitflow/internal/domain/dedupe"
	"github.com/okian/habitflow/internal/domain/model"
	"github.com/okian/habitflow/internal/domain/normalize"
	"github.com/okian/habitflow/pkg/logger"
	"github.com/okian/habitflow/pkg/metrics"
)

const (
	defaultQueueSize  = 1024
	defaultDedupeSize = 50_000

	outcomeOK      = "ok"
	outcomePartial = "partial"
	outcomeFailed  = "failed"
)

// Result is the outcome of one batch run.
type Result struct {
	RunID uuid.UUID
	// Source is the name of the table that was read.
	Source string
	// Entries holds normalized records in source order.
	Entries []repository.Entry
	// Rejections holds rows that could not be normalized, in source order.
	Rejections []repository.Rejection
	// Duplicates counts rows skipped because their date was already taken.
	Duplicates int
	// Unordered counts records whose events still go backwards.
	Unordered     int
	DurationNames []string
	Elapsed       time.Duration
}

// Records returns the normalized records in source order.
func (r *Result) Records() []model.Record {
	out := make([]model.Record, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Record
	}
	return out
}

// Service runs batches. It holds no per-run state and may run several
// batches concurrently.
type Service struct {
	normalizer  *normalize.Normalizer
	workerCount int
	queueSize   int
	dedupeDates bool
	dedupeSize  int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of rows waiting for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeDates skips rows whose date was already seen in the same run.
func WithDedupeDates(enabled bool) Option {
	return func(s *Service) {
		s.dedupeDates = enabled
	}
}

// WithDedupeSize sets how many dates the deduper remembers.
// Zero or less means unbounded.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithNormalizer sets the row normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(s *Service) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		normalizer:  normalize.New(),
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		logger:      logger.Get().Named("pipeline"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run normalizes every row of t. Row failures do not stop the run: the good
// records are returned together with an error joining ErrRowsRejected and
// each row error. A non-nil Result is returned whenever the run completed.
func (s *Service) Run(ctx context.Context, t model.Table) (*Result, error) { //nolint:gocritic // hugeParam: Table is read-only here
	start := time.Now()
	if missing := s.missingColumns(t); len(missing) > 0 {
		metrics.RecordRun(outcomeFailed, time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, missing, t.Name)
	}

	runID := uuid.New()
	log := s.logger.With(logger.String("run_id", runID.String()))
	log.Info(ctx, "run started",
		logger.String("source", t.Name),
		logger.Int("rows", len(t.Rows)),
	)

	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	store := repository.NewMemoryStore(repository.WithCapacityHint(len(t.Rows)))
	pool := workerpool.NewPool(s.workerCount, q, s.normalizer, store, workerpool.WithLogger(log))
	log.Debug(ctx, "pipeline ready",
		logger.Int("workers", pool.Size()),
		logger.Int("queue_capacity", q.Capacity()),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pool.Start(runCtx)

	var duplicates int
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer func() { _ = q.Close() }()
		n, err := s.produce(gctx, log, q, t)
		duplicates = n
		return err
	})
	g.Go(func() error {
		return pool.Wait(gctx)
	})
	err := g.Wait()
	metrics.RecordRowsRead(len(t.Rows))

	if err != nil {
		cancel()
		if serr := pool.Shutdown(context.WithoutCancel(ctx)); serr != nil {
			log.Warn(ctx, "workers did not stop", logger.Error(serr))
		}
		metrics.RecordRun(outcomeFailed, time.Since(start).Seconds())
		log.Error(ctx, "run aborted", logger.Error(err))
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	res := &Result{
		RunID:         runID,
		Source:        t.Name,
		Entries:       store.Entries(ctx),
		Rejections:    store.Rejections(ctx),
		Duplicates:    duplicates,
		DurationNames: s.normalizer.DurationNames(),
		Elapsed:       time.Since(start),
	}
	for _, e := range res.Entries {
		if e.Unordered {
			res.Unordered++
		}
	}

	outcome := outcomeOK
	if len(res.Rejections) > 0 {
		outcome = outcomePartial
	}
	metrics.RecordRun(outcome, res.Elapsed.Seconds())
	log.Info(ctx, "run finished",
		logger.Int("records", len(res.Entries)),
		logger.Int("rejected", len(res.Rejections)),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("unordered", res.Unordered),
		logger.Duration("elapsed", res.Elapsed),
	)

	if len(res.Rejections) == 0 {
		return res, nil
	}
	errs := make([]error, 0, len(res.Rejections)+1)
	errs = append(errs, ErrRowsRejected)
	for _, r := range res.Rejections {
		errs = append(errs, r.Err)
	}
	return res, errors.Join(errs...)
}

// produce feeds rows to the queue in source order and returns the number of
// rows skipped as duplicate dates.
func (s *Service) produce(ctx context.Context, log logger.Logger, q eventqueue.Queue, t model.Table) (int, error) { //nolint:gocritic // hugeParam: Table is read-only here
	var deduper dedupe.Deduper
	if s.dedupeDates {
		deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	duplicates := 0
	for seq, row := range t.Rows {
		key := ""
		if deduper != nil {
			// Rows without a readable date skip dedupe; the worker rejects them.
			if date, err := s.normalizer.ParseDate(row); err == nil {
				key = dedupe.Key(date)
				if deduper.SeenAndRecord(ctx, key) {
					duplicates++
					metrics.RecordRowDuplicate()
					log.Debug(ctx, "duplicate date skipped", logger.Int("line", row.Line), logger.String("date", key))
					continue
				}
			}
		}
		if err := q.Enqueue(ctx, eventqueue.Job{Seq: seq, Row: row}); err != nil {
			if key != "" {
				deduper.Unrecord(ctx, key)
			}
			return duplicates, fmt.Errorf("enqueue line %d: %w", row.Line, err)
		}
	}
	if deduper != nil {
		log.Debug(ctx, "dates tracked", logger.Int("dates", int(deduper.Size())), logger.Int("duplicates", duplicates))
	}
	return duplicates, nil
}

func (s *Service) missingColumns(t model.Table) []string { //nolint:gocritic // hugeParam: Table is read-only here
	cols := s.normalizer.Columns()
	var missing []string
	for _, c := range append([]string{cols.Date}, cols.EventColumns()...) {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}
