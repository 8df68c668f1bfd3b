package prep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunParallel_VisitsEveryIndex(t *testing.T) {
	const jobs = 100

	var visited [jobs]atomic.Bool

	err := runParallel(context.Background(), jobs, 7, func(_ context.Context, i int) error {
		if visited[i].Swap(true) {
			t.Errorf("index %d visited twice", i)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("runParallel: %v", err)
	}

	for i := range visited {
		if !visited[i].Load() {
			t.Errorf("index %d never visited", i)
		}
	}
}

func TestRunParallel_FirstErrorCancelsRemaining(t *testing.T) {
	boom := errors.New("boom")

	var calls atomic.Int32

	// A single worker makes the cancellation point deterministic: after the
	// first job fails, no further job may invoke fn.
	err := runParallel(context.Background(), 100, 1, func(_ context.Context, i int) error {
		calls.Add(1)

		if i == 0 {
			return boom
		}

		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("runParallel error = %v; want boom", err)
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("fn called %d times after failure; want 1", n)
	}
}

func TestRunParallel_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runParallel(ctx, 10, 2, func(_ context.Context, _ int) error {
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("runParallel error = %v; want context.Canceled", err)
	}
}

func TestRunParallel_ZeroJobs(t *testing.T) {
	err := runParallel(context.Background(), 0, 4, func(_ context.Context, _ int) error {
		t.Error("fn called with zero jobs")

		return nil
	})
	if err != nil {
		t.Fatalf("runParallel: %v", err)
	}
}
