package llmmatch

import (
	"context"
	"errors"
	"time"
)

// ErrBudgetExhausted indicates the per-run call cap has been reached.
var ErrBudgetExhausted = errors.New("llm call budget exhausted")

// CallBudget enforces a hard cap on model calls per run and a minimum
// interval between consecutive calls.
type CallBudget struct {
	cap      int
	interval time.Duration
	used     int
	last     time.Time

	now     func() time.Time
	sleeper func(context.Context, time.Duration) error
}

// BudgetOption customizes a CallBudget.
type BudgetOption func(*CallBudget)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) BudgetOption {
	return func(b *CallBudget) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBudgetSleeper overrides how pacing waits are performed.
func WithBudgetSleeper(sleeper func(context.Context, time.Duration) error) BudgetOption {
	return func(b *CallBudget) {
		if sleeper != nil {
			b.sleeper = sleeper
		}
	}
}

// NewCallBudget builds a budget allowing at most callCap calls, spaced at
// least minInterval apart. A cap <= 0 permits no calls.
func NewCallBudget(callCap int, minInterval time.Duration, opts ...BudgetOption) *CallBudget {
	budget := &CallBudget{
		cap:      callCap,
		interval: minInterval,
		now:      time.Now,
		sleeper:  sleepContext,
	}
	for _, opt := range opts {
		opt(budget)
	}
	return budget
}

// Acquire reserves one call, waiting out the pacing interval if needed. It
// returns ErrBudgetExhausted once the cap is spent.
func (b *CallBudget) Acquire(ctx context.Context) error {
	if b.used >= b.cap {
		return ErrBudgetExhausted
	}
	if b.interval > 0 && !b.last.IsZero() {
		if wait := b.interval - b.now().Sub(b.last); wait > 0 {
			if err := b.sleeper(ctx, wait); err != nil {
				return err
			}
		}
	}
	b.used++
	b.last = b.now()
	return nil
}

// Used returns the number of calls reserved so far.
func (b *CallBudget) Used() int {
	return b.used
}

// Remaining returns how many calls are left in the budget.
func (b *CallBudget) Remaining() int {
	remaining := b.cap - b.used
	if remaining < 0 {
		return 0
	}
	return remaining
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
