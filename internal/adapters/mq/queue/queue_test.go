package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/habitflow/internal/domain/model"
)

func job(seq int, date string) Job {
	return Job{Seq: seq, Row: model.Row{Line: seq + 2, Cells: map[string]string{"Date": date}}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Enqueue(ctx, job(0, "2025-04-30")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if date, _ := got.Row.Get("Date"); date != "2025-04-30" {
		t.Errorf("expected 2025-04-30, got %q", date)
	}
	if got.Seq != 0 || got.Row.Line != 2 {
		t.Errorf("unexpected job position: seq=%d line=%d", got.Seq, got.Row.Line)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}
}

func TestInMemoryQueue_DefaultCapacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(0))
	if c := q.Capacity(); c != defaultQueueCapacity {
		t.Errorf("expected default capacity %d, got %d", defaultQueueCapacity, c)
	}
}

func TestInMemoryQueue_FullQueueBlocksUntilContextEnds(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))

	if err := q.Enqueue(context.Background(), job(0, "a")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Enqueue(ctx, job(1, "b"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if l := q.Len(context.Background()); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}
}

func TestInMemoryQueue_FullQueueUnblocksWhenDrained(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Enqueue(ctx, job(0, "a")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Enqueue(ctx, job(1, "b"))
	}()

	first := <-q.Dequeue(ctx)
	if first.Seq != 0 {
		t.Errorf("expected seq 0 first, got %d", first.Seq)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected blocked enqueue to succeed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked enqueue never completed")
	}

	second := <-q.Dequeue(ctx)
	if second.Seq != 1 {
		t.Errorf("expected seq 1 second, got %d", second.Seq)
	}
}

func TestInMemoryQueue_CloseReleasesBlockedProducer(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Enqueue(ctx, job(0, "a")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Enqueue(ctx, job(1, "b"))
	}()

	// Give the producer a moment to block on the full channel.
	time.Sleep(10 * time.Millisecond)
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked enqueue was not released by Close")
	}

	// The job queued before Close is still delivered, then the channel ends.
	got, ok := <-q.Dequeue(ctx)
	if !ok || got.Seq != 0 {
		t.Errorf("expected queued job seq 0, got ok=%v seq=%d", ok, got.Seq)
	}
	if _, ok := <-q.Dequeue(ctx); ok {
		t.Error("expected channel to be closed after drain")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("expected queue to be open")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}

	if err := q.Enqueue(ctx, job(0, "a")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}

	// Closing twice is a no-op.
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(8))
	ctx := context.Background()
	producers := 10
	perProducer := 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				seq := id*perProducer + i
				if err := q.Enqueue(ctx, job(seq, fmt.Sprintf("d-%d", seq))); err != nil {
					t.Errorf("enqueue %d: %v", seq, err)
					return
				}
			}
		}(p)
	}

	go func() {
		wg.Wait()
		_ = q.Close()
	}()

	seen := make(map[int]bool, producers*perProducer)
	for j := range q.Dequeue(ctx) {
		if seen[j.Seq] {
			t.Errorf("job %d delivered twice", j.Seq)
		}
		seen[j.Seq] = true
	}

	if len(seen) != producers*perProducer {
		t.Errorf("expected %d jobs, got %d", producers*perProducer, len(seen))
	}
}
