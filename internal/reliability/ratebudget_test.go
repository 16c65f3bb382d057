package reliability

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRateBudgetRollingWindow(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	b := NewRateBudgetWindow(2, time.Minute, clock.Now)

	if err := b.Take(); err != nil {
		t.Fatalf("Take() #1 error = %v", err)
	}
	clock.Advance(30 * time.Second)
	if err := b.Take(); err != nil {
		t.Fatalf("Take() #2 error = %v", err)
	}
	if err := b.Take(); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("Take() #3 error = %v, want ErrBudgetExhausted", err)
	}
	if got := b.Remaining(); got != 0 {
		t.Fatalf("Remaining() = %d, want 0", got)
	}

	clock.Advance(30 * time.Second)
	if got := b.Remaining(); got != 1 {
		t.Fatalf("Remaining() after first stamp expired = %d, want 1", got)
	}
	if err := b.Take(); err != nil {
		t.Fatalf("Take() after window roll error = %v", err)
	}
}

func TestRateBudgetDisabled(t *testing.T) {
	b := NewRateBudget(0)
	for i := 0; i < 100; i++ {
		if err := b.Take(); err != nil {
			t.Fatalf("Take() error = %v, want nil for disabled budget", err)
		}
	}
	if got := b.Remaining(); got != -1 {
		t.Fatalf("Remaining() = %d, want -1", got)
	}

	var nilBudget *RateBudget
	if err := nilBudget.Take(); err != nil {
		t.Fatalf("nil Take() error = %v", err)
	}
}

func TestRateBudgetConcurrentTakes(t *testing.T) {
	b := NewRateBudget(10)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Take() == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if granted != 10 {
		t.Fatalf("granted = %d, want 10", granted)
	}
}
