package probe

import (
	"context"
	"testing"
	"time"
)

func TestWaitForImmediateReady(t *testing.T) {
	attempts := 0
	out := WaitFor(context.Background(), 50*time.Millisecond, 500*time.Millisecond, func(ctx context.Context) (bool, error) {
		attempts++
		return true, nil
	})
	if out != Ready {
		t.Fatalf("expected Ready, got %v", out)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestWaitForBecomesReady(t *testing.T) {
	attempts := 0
	start := time.Now()
	out := WaitFor(context.Background(), 20*time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		attempts++
		return attempts >= 3, nil
	})
	if out != Ready {
		t.Fatalf("expected Ready, got %v", out)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	// Ready must land within one interval of the target becoming ready.
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("took too long: %v", elapsed)
	}
}

func TestWaitForTimesOut(t *testing.T) {
	attempts := 0
	out := WaitFor(context.Background(), 20*time.Millisecond, 60*time.Millisecond, func(ctx context.Context) (bool, error) {
		attempts++
		return false, nil
	})
	if out != TimedOut {
		t.Fatalf("expected TimedOut, got %v", out)
	}
	// budget = 3 intervals: the immediate poll plus the ticks inside the
	// budget, never an unbounded hang.
	if attempts < 3 || attempts > 4 {
		t.Errorf("expected 3-4 attempts, got %d", attempts)
	}
}

func TestWaitForCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := WaitFor(ctx, 20*time.Millisecond, time.Minute, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if out != TimedOut {
		t.Fatalf("expected TimedOut on cancelled context, got %v", out)
	}
}

func TestOutcomeString(t *testing.T) {
	if Ready.String() != "ready" || TimedOut.String() != "timed out" {
		t.Fatalf("unexpected outcome strings: %q %q", Ready.String(), TimedOut.String())
	}
}
