package worker_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/habitflow/internal/adapters/mq/queue"
	worker "github.com/okian/habitflow/internal/adapters/mq/worker"
	repository "github.com/okian/habitflow/internal/adapters/repository"
	model "github.com/okian/habitflow/internal/domain/model"
	normalize "github.com/okian/habitflow/internal/domain/normalize"
	logging "github.com/okian/habitflow/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// failingCollector refuses every write.
type failingCollector struct {
	mu    sync.Mutex
	calls int
}

func (f *failingCollector) Put(context.Context, repository.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("disk full")
}

func (f *failingCollector) Reject(context.Context, repository.Rejection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("disk full")
}

// blockingProcessor waits for release before delegating.
type blockingProcessor struct {
	release chan struct{}
	inner   worker.Processor
}

func (b *blockingProcessor) Process(ctx context.Context, seq int, row model.Row) (normalize.Result, error) {
	<-b.release
	return b.inner.Process(ctx, seq, row)
}

func row(line int, date, wake, sleep string) model.Row {
	return model.Row{Line: line, Cells: map[string]string{
		"Date":        date,
		"Wake up":     wake,
		"First Meal":  "",
		"Second Meal": "",
		"Third Meal":  "",
		"Going sleep": sleep,
	}}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a queue", t, func() {
		_ = logging.Init(logging.WithWriter(io.Discard))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		store := repository.NewMemoryStore()
		w := worker.NewInMemoryWorker(q, normalize.New(), store, worker.WithName("test"))

		convey.Convey("When a valid row is processed", func() {
			So := convey.So
			So(q.Enqueue(ctx, queue.Job{Seq: 0, Row: row(2, "2025-04-30", "8300", "1000")}), convey.ShouldBeNil)
			So(q.Close(), convey.ShouldBeNil)
			w.Run(ctx)

			convey.Convey("Then the normalized record is stored", func() {
				entries := store.Entries(ctx)
				So(entries, convey.ShouldHaveLength, 1)
				rec := entries[0].Record
				So(rec.Line, convey.ShouldEqual, 2)
				So(rec.Event(model.Sleep).RolledOver, convey.ShouldBeTrue)
				d, ok := rec.Duration("time_awake_hours")
				So(ok, convey.ShouldBeTrue)
				So(d.Known, convey.ShouldBeTrue)
				So(d.Hours, convey.ShouldAlmostEqual, 16.5, 1e-9)
				So(entries[0].Unordered, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When a row has a bad date", func() {
			So := convey.So
			So(q.Enqueue(ctx, queue.Job{Seq: 4, Row: row(6, "30/04/2025", "8300", "")}), convey.ShouldBeNil)
			So(q.Close(), convey.ShouldBeNil)
			w.Run(ctx)

			convey.Convey("Then it is stored as a rejection and processing continues", func() {
				So(len(store.Entries(ctx)), convey.ShouldEqual, 0)
				rejections := store.Rejections(ctx)
				So(rejections, convey.ShouldHaveLength, 1)
				So(rejections[0].Seq, convey.ShouldEqual, 4)
				So(rejections[0].Line, convey.ShouldEqual, 6)
				So(rejections[0].Reason, convey.ShouldEqual, "date_parse")
				So(errors.Is(rejections[0].Err, normalize.ErrDateParse), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the collector fails", func() {
			So := convey.So
			bad := &failingCollector{}
			fw := worker.NewInMemoryWorker(q, normalize.New(), bad)
			So(q.Enqueue(ctx, queue.Job{Seq: 0, Row: row(2, "2025-04-30", "8300", "")}), convey.ShouldBeNil)
			So(q.Enqueue(ctx, queue.Job{Seq: 1, Row: row(3, "bad", "", "")}), convey.ShouldBeNil)
			So(q.Close(), convey.ShouldBeNil)
			fw.Run(ctx)

			convey.Convey("Then the worker keeps going through the queue", func() {
				So(bad.calls, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the worker is shut down while idle", func() {
			So := convey.So
			go w.Run(ctx)
			err := w.Shutdown(ctx)

			convey.Convey("Then it stops without error", func() {
				So(err, convey.ShouldBeNil)
				select {
				case <-w.Done():
				default:
					t.Error("worker not done after shutdown")
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		_ = logging.Init(logging.WithWriter(io.Discard))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		store := repository.NewMemoryStore()

		convey.Convey("When many rows flow through it", func() {
			So := convey.So
			pool := worker.NewPool(4, q, normalize.New(), store)
			So(pool.Size(), convey.ShouldEqual, 4)
			pool.Start(ctx)

			const days = 200
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < days; i++ {
				date := base.AddDate(0, 0, i).Format(time.DateOnly)
				if i%50 == 49 {
					date = "not-a-date"
				}
				So(q.Enqueue(ctx, queue.Job{Seq: i, Row: row(i+2, date, "7000", "23000")}), convey.ShouldBeNil)
			}
			So(q.Close(), convey.ShouldBeNil)
			So(pool.Wait(ctx), convey.ShouldBeNil)

			convey.Convey("Then every row is accounted for in source order", func() {
				So(len(store.Entries(ctx)), convey.ShouldEqual, days-4)
				So(store.Rejections(ctx), convey.ShouldHaveLength, 4)

				prev := -1
				for _, e := range store.Entries(ctx) {
					So(e.Record.Seq, convey.ShouldBeGreaterThan, prev)
					prev = e.Record.Seq
				}
			})
		})

		convey.Convey("When the pool is created with no worker count", func() {
			pool := worker.NewPool(0, q, normalize.New(), store)

			convey.Convey("Then it picks a positive default", func() {
				convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When the pool is shut down mid-run", func() {
			So := convey.So
			proc := &blockingProcessor{release: make(chan struct{}), inner: normalize.New()}
			pool := worker.NewPool(2, q, proc, store)
			pool.Start(ctx)

			So(q.Enqueue(ctx, queue.Job{Seq: 0, Row: row(2, "2025-04-30", "", "")}), convey.ShouldBeNil)
			close(proc.release)
			err := pool.Shutdown(ctx)

			convey.Convey("Then the queue is closed and workers stop", func() {
				So(err, convey.ShouldBeNil)
				So(q.IsClosed(), convey.ShouldBeTrue)
				So(pool.Wait(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When Wait outlives its context", func() {
			So := convey.So
			pool := worker.NewPool(1, q, normalize.New(), store)
			pool.Start(ctx)
			short, stop := context.WithTimeout(ctx, 10*time.Millisecond)
			defer stop()
			err := pool.Wait(short)

			convey.Convey("Then it reports the deadline", func() {
				So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
				So(pool.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerOptions(t *testing.T) {
	convey.Convey("Given worker options", t, func() {
		_ = logging.Init(logging.WithWriter(io.Discard))
		q := queue.NewInMemoryQueue()

		convey.Convey("Then empty names and nil loggers are ignored", func() {
			w := worker.NewInMemoryWorker(q, normalize.New(), repository.NewMemoryStore(),
				worker.WithName(""),
				worker.WithLogger(nil),
				worker.WithLogger(logging.Get().Named(fmt.Sprintf("w%d", 1))),
			)
			convey.So(w, convey.ShouldNotBeNil)
		})
	})
}
