package rag

import (
	"context"
	"time"

	"madison-ai/internal/contextutil"
	"madison-ai/internal/llm"
)

// StateTimedOut is reported when an index did not settle within the wait
// window. The index may still become usable later.
const StateTimedOut llm.IndexState = "timed_out"

// Clock is the time source for readiness polling.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

// StatusChecker reports index readiness.
type StatusChecker interface {
	IndexStatus(ctx context.Context, indexID string) (llm.IndexState, error)
}

// Waiter polls an index until it is completed, failed or out of time.
type Waiter struct {
	checker  StatusChecker
	clock    Clock
	interval time.Duration
}

// NewWaiter returns a waiter polling checker every interval.
func NewWaiter(checker StatusChecker, interval time.Duration, clock Clock) *Waiter {
	if clock == nil {
		clock = SystemClock()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Waiter{checker: checker, clock: clock, interval: interval}
}

// Terminal reports whether no further transition is expected from state.
func Terminal(state llm.IndexState) bool {
	switch state {
	case llm.IndexCompleted, llm.IndexFailed, StateTimedOut:
		return true
	}
	return false
}

// Wait drives indexID through building -> indexing -> completed | failed and
// returns the state it settled in. When timeout elapses first, or ctx is
// cancelled, it returns StateTimedOut; neither is an error. Status request
// failures are returned as errors.
func (w *Waiter) Wait(ctx context.Context, indexID string, timeout time.Duration) (llm.IndexState, error) {
	logger := contextutil.LoggerFromContext(ctx)
	deadline := w.clock.Now().Add(timeout)
	state := llm.IndexBuilding

	for {
		next, err := w.checker.IndexStatus(ctx, indexID)
		if err != nil {
			return state, err
		}
		if next != state {
			logger.DebugContext(ctx, "index state changed", "index_id", indexID, "from", state, "to", next)
			state = next
		}
		if Terminal(state) {
			return state, nil
		}

		if !w.clock.Now().Before(deadline) {
			logger.WarnContext(ctx, "index not ready before timeout, continuing", "index_id", indexID, "state", state, "timeout", timeout)
			return StateTimedOut, nil
		}

		select {
		case <-ctx.Done():
			logger.WarnContext(ctx, "index wait cancelled", "index_id", indexID, "state", state)
			return StateTimedOut, nil
		case <-w.clock.After(w.interval):
		}
	}
}
