package promising

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGatherJoinsErrorsFromEveryTask(t *testing.T) {
	ctx := NewContext(nil)
	errA := errors.New("task a failed")
	errB := errors.New("task b failed")

	err := ctx.Gather(context.Background(),
		func(context.Context) error { return nil },
		func(context.Context) error { return errA },
		func(context.Context) error { return errB },
	)
	if err == nil {
		t.Fatalf("expected a joined error, got nil")
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected err to wrap both task errors, got %v", err)
	}
}

func TestGatherReturnsNilWhenEveryTaskSucceeds(t *testing.T) {
	ctx := NewContext(nil)
	err := ctx.Gather(context.Background(),
		func(context.Context) error { return nil },
		func(context.Context) error { return nil },
	)
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestGatherRespectsCancellation(t *testing.T) {
	ctx := NewContext(nil)
	runCtx, cancel := context.WithCancel(context.Background())

	blocked := make(chan struct{})
	err := ctx.Gather(runCtx,
		func(taskCtx context.Context) error {
			cancel()
			<-taskCtx.Done()
			close(blocked)
			return taskCtx.Err()
		},
		func(taskCtx context.Context) error {
			// Never finishes on its own; Gather must not wait for it once
			// runCtx is canceled.
			select {
			case <-taskCtx.Done():
				return taskCtx.Err()
			case <-time.After(time.Hour):
				return nil
			}
		},
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in the joined error, got %v", err)
	}
	<-blocked
}
