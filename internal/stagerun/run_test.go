package stagerun_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"reelsmith/internal/services"
	"reelsmith/internal/stagerun"
)

func TestRunSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := stagerun.Run(context.Background(), stagerun.Policy{Attempts: 3}, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 1 || result.Attempts != 1 {
		t.Fatalf("calls=%d attempts=%d", calls, result.Attempts)
	}
	if result.FallbackUsed {
		t.Fatal("fallback should not run on success")
	}
}

func TestRunRetriesTransientErrors(t *testing.T) {
	calls := 0
	result, err := stagerun.Run(context.Background(), stagerun.Policy{
		Attempts: 3,
		Backoff:  time.Millisecond,
	}, func(context.Context) error {
		calls++
		if calls < 3 {
			return services.Wrap(services.ErrTransient, "narrate", "synthesize", "vendor hiccup", errors.New("http 503"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 3 || result.Attempts != 3 {
		t.Fatalf("calls=%d attempts=%d", calls, result.Attempts)
	}
}

func TestRunDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	_, err := stagerun.Run(context.Background(), stagerun.Policy{
		Attempts: 3,
		Backoff:  time.Millisecond,
	}, func(context.Context) error {
		calls++
		return services.Wrap(services.ErrInvalidSource, "analyze", "fetch", "repository not found", nil)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("client error should not retry, got %d calls", calls)
	}
	if !errors.Is(err, services.ErrInvalidSource) {
		t.Fatalf("error chain lost marker: %v", err)
	}
}

func TestRunFallbackMarksDegraded(t *testing.T) {
	result, err := stagerun.Run(context.Background(), stagerun.Policy{
		Attempts: 2,
		Backoff:  time.Millisecond,
		Fallback: func(context.Context) error { return nil },
	}, func(context.Context) error {
		return services.Wrap(services.ErrTransient, "render", "submit", "vendor down", nil)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.FallbackUsed {
		t.Fatal("expected FallbackUsed")
	}
}

func TestRunFallbackFailurePropagatesBoth(t *testing.T) {
	primary := services.Wrap(services.ErrTransient, "render", "submit", "vendor down", nil)
	_, err := stagerun.Run(context.Background(), stagerun.Policy{
		Attempts: 1,
		Fallback: func(context.Context) error { return errors.New("placeholder write failed") },
	}, func(context.Context) error { return primary })
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("primary cause missing from chain: %v", err)
	}
}

func TestRunAttemptTimeoutIsTransient(t *testing.T) {
	calls := 0
	_, err := stagerun.Run(context.Background(), stagerun.Policy{
		Attempts: 2,
		Backoff:  time.Millisecond,
		Timeout:  10 * time.Millisecond,
	}, func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("timeouts should retry, got %d calls", calls)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := stagerun.Run(ctx, stagerun.Policy{
		Attempts: 3,
		Fallback: func(context.Context) error {
			t.Fatal("fallback must not run after cancellation")
			return nil
		},
	}, func(context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("cancelled run should not invoke stage, got %d calls", calls)
	}
}
