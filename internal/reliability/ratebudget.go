package reliability

import (
	"errors"
	"sync"
	"time"
)

// ErrBudgetExhausted is returned when a call would exceed the per-minute budget.
var ErrBudgetExhausted = errors.New("rate budget exhausted")

// RateBudget is a process-wide rolling-window call budget. Take never blocks.
type RateBudget struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

// NewRateBudget allows limit calls per rolling minute. A non-positive limit
// disables the budget.
func NewRateBudget(limit int) *RateBudget {
	return NewRateBudgetWindow(limit, time.Minute, time.Now)
}

func NewRateBudgetWindow(limit int, window time.Duration, now func() time.Time) *RateBudget {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateBudget{limit: limit, window: window, now: now}
}

// Take consumes one token or returns ErrBudgetExhausted.
func (b *RateBudget) Take() error {
	if b == nil || b.limit <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	b.pruneLocked(now)
	if len(b.stamps) >= b.limit {
		return ErrBudgetExhausted
	}
	b.stamps = append(b.stamps, now)
	return nil
}

// Remaining reports the tokens left in the current window.
func (b *RateBudget) Remaining() int {
	if b == nil || b.limit <= 0 {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(b.now())
	return b.limit - len(b.stamps)
}

func (b *RateBudget) pruneLocked(now time.Time) {
	cut := 0
	for cut < len(b.stamps) && now.Sub(b.stamps[cut]) >= b.window {
		cut++
	}
	if cut > 0 {
		b.stamps = append(b.stamps[:0], b.stamps[cut:]...)
	}
}
