package eventloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDo_ReturnsJobError(t *testing.T) {
	q := New(4)
	defer q.Close()

	want := errors.New("boom")
	if err := q.Do(context.Background(), func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestDo_RunsOneAtATime(t *testing.T) {
	q := New(16)
	defer q.Close()

	var (
		running atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), func(context.Context) error {
				if running.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()
	if overlap.Load() {
		t.Fatal("jobs overlapped")
	}
}

func TestDo_PreservesArrivalOrder(t *testing.T) {
	q := New(0)
	defer q.Close()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		if err := q.Do(context.Background(), func(context.Context) error {
			order = append(order, i)
			return nil
		}); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v", order)
		}
	}
}

func TestDo_CancelledContextSkipsJob(t *testing.T) {
	q := New(1)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	err := q.Do(ctx, func(context.Context) error { ran.Store(true); return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// Let the worker drain anything that slipped through.
	_ = q.Do(context.Background(), func(context.Context) error { return nil })
	if ran.Load() {
		t.Fatal("job with cancelled context ran")
	}
}

func TestClose_RejectsNewWork(t *testing.T) {
	q := New(1)
	q.Close()
	q.Close()

	if err := q.Do(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestClose_ConcurrentDoNeverStrands(t *testing.T) {
	for iter := 0; iter < 500; iter++ {
		q := New(8)

		var wg sync.WaitGroup
		results := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- q.Do(context.Background(), func(context.Context) error { return nil })
			}()
		}
		q.Close()

		finished := make(chan struct{})
		go func() {
			wg.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Fatalf("iteration %d: Do did not return after Close", iter)
		}
		close(results)
		for err := range results {
			if err != nil && !errors.Is(err, ErrClosed) {
				t.Fatalf("iteration %d: err = %v, want nil or ErrClosed", iter, err)
			}
		}
	}
}
