package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/jllopis/praxis/pkg/errors"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig().WithMaxAttempts(3).WithInitialDelay(time.Millisecond)

	err := cfg.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return stderrors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig().WithMaxAttempts(2).WithInitialDelay(time.Millisecond)

	err := cfg.Do(context.Background(), func() error {
		attempts++
		return stderrors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryStopsOnNonRecoverable(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig().WithMaxAttempts(5).WithInitialDelay(time.Millisecond)

	fatal := errors.New(errors.CodeParameterParse, "schema mismatch", nil) // Recoverable defaults to false
	err := cfg.Do(context.Background(), func() error {
		attempts++
		return fatal
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("non-recoverable error should not retry, got %d attempts", attempts)
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultRetryConfig().WithMaxAttempts(3).WithInitialDelay(50 * time.Millisecond)
	err := cfg.Do(ctx, func() error {
		return stderrors.New("transient")
	})
	if !errors.HasCode(err, errors.CodeContextLost) {
		t.Fatalf("expected CONTEXT_LOST, got %v", err)
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), TimeoutConfig{Duration: 10 * time.Millisecond}, func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if !errors.HasCode(err, errors.CodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
}
