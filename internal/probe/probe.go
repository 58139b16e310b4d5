package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Outcome is the terminal result of a bounded poll.
type Outcome int

const (
	Ready Outcome = iota
	TimedOut
)

func (o Outcome) String() string {
	if o == Ready {
		return "ready"
	}
	return "timed out"
}

// Predicate reports whether the target can currently serve requests. It must
// be side-effect-free; errors are treated as "not ready yet".
type Predicate func(ctx context.Context) (bool, error)

// WaitFor polls pred at a fixed interval until it succeeds or budget elapses.
// The first poll happens immediately so an already-ready target resolves
// without waiting a full interval. Fixed cadence, no backoff: failure timing
// stays predictable for callers and tests.
func WaitFor(ctx context.Context, interval, budget time.Duration, pred Predicate) Outcome {
	deadline := time.After(budget)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ok, _ := pred(ctx); ok {
			return Ready
		}
		select {
		case <-ctx.Done():
			return TimedOut
		case <-deadline:
			return TimedOut
		case <-ticker.C:
		}
	}
}

// HTTPReachable returns a predicate satisfied by any non-error, non-5xx
// response on url.
func HTTPReachable(url string) Predicate {
	client := &http.Client{Timeout: 5 * time.Second}
	return func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return false, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return false, fmt.Errorf("status %d", resp.StatusCode)
		}
		return true, nil
	}
}
