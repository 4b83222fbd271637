package session

import "github.com/stemsi/exstem-taker/internal/config"

// TickResult describes what a single countdown tick did.
type TickResult struct {
	Remaining int
	// LowTime is set on the one tick that crosses the low-time threshold.
	LowTime bool
	// Expired is set on the tick that reaches zero.
	Expired bool
}

// Countdown owns the seconds remaining in a session. It is a purely logical
// clock: something else decides when a second has passed and calls Tick.
type Countdown struct {
	remaining int
	threshold int
	alerted   bool
	stopped   bool
}

// NewCountdown creates a countdown starting at duration seconds with a one-time
// alert at threshold seconds remaining. Non-positive values use the defaults.
func NewCountdown(duration, threshold int) *Countdown {
	if duration <= 0 {
		duration = config.DefaultExamDurationSeconds
	}
	if threshold <= 0 {
		threshold = config.DefaultLowTimeThreshold
	}
	return &Countdown{remaining: duration, threshold: threshold}
}

// Tick advances the countdown by one second. A stopped countdown does nothing.
func (c *Countdown) Tick() TickResult {
	if c.stopped {
		return TickResult{Remaining: c.remaining}
	}

	if c.remaining <= 1 {
		c.remaining = 0
		c.stopped = true
		return TickResult{Remaining: 0, Expired: true}
	}

	prev := c.remaining
	c.remaining--

	res := TickResult{Remaining: c.remaining}
	if !c.alerted && prev >= c.threshold && c.remaining <= c.threshold {
		c.alerted = true
		res.LowTime = true
	}
	return res
}

// Stop freezes the countdown at its current value.
func (c *Countdown) Stop() {
	c.stopped = true
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	return c.remaining
}

// Stopped reports whether the countdown has stopped ticking.
func (c *Countdown) Stopped() bool {
	return c.stopped
}
