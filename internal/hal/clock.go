// internal/hal/clock.go
package hal

import "time"

// SpinTicker is a free-running tick source on the host monotonic clock.
//
// Ticks fall on a fixed grid from construction time. Clear moves the next
// deadline past now without resetting the grid, like clearing the
// interrupt flag of a hardware period timer.
type SpinTicker struct {
	period time.Duration
	start  time.Time
	next   time.Duration
}

func NewSpinTicker(period time.Duration) *SpinTicker {
	if period <= 0 {
		period = time.Microsecond
	}
	return &SpinTicker{
		period: period,
		start:  time.Now(),
		next:   period,
	}
}

func (t *SpinTicker) Pending() bool {
	return time.Since(t.start) >= t.next
}

func (t *SpinTicker) Clear() {
	now := time.Since(t.start)
	if t.next > now {
		return
	}
	// skip every missed tick in one step
	t.next += ((now-t.next)/t.period + 1) * t.period
}

func (t *SpinTicker) Period() time.Duration { return t.period }
