package chess

import "time"

// Clock tracks per-player remaining time. Deduction is driven by elapsed
// real time since the last reference point, so a burst of scheduler ticks
// never over-deducts. Start puts the side to move on the countdown when the
// game begins, which lets a player flag without ever moving; the opening
// move earns no increment.
type Clock struct {
	remaining [2]time.Duration
	increment time.Duration
	running   Color
	active    bool
	started   bool
	lastRef   time.Time
}

// NewClock builds a clock with equal initial time for both sides.
func NewClock(initial, increment time.Duration) *Clock {
	return &Clock{
		remaining: [2]time.Duration{initial, initial},
		increment: increment,
	}
}

// Start begins the countdown for col; a no-op once the clock is running.
func (c *Clock) Start(col Color, now time.Time) {
	if c.active {
		return
	}
	c.active = true
	c.running = col
	c.lastRef = now
}

// Started reports whether the game's first move has been played.
func (c *Clock) Started() bool { return c.started }

// RunningFor reports whose countdown is active.
func (c *Clock) RunningFor() (Color, bool) {
	if !c.active {
		return White, false
	}
	return c.running, true
}

// Remaining returns the remaining time for col as of the last settle point.
func (c *Clock) Remaining(col Color) time.Duration {
	d := c.remaining[col]
	if d < 0 {
		return 0
	}
	return d
}

// Seconds is Remaining truncated to whole seconds for display.
func (c *Clock) Seconds(col Color) int {
	return int(c.Remaining(col) / time.Second)
}

// Tick settles elapsed time onto the running side. It returns the side that
// ran out and true when the flag fell.
func (c *Clock) Tick(now time.Time) (Color, bool) {
	if !c.active {
		return White, false
	}
	elapsed := now.Sub(c.lastRef)
	if elapsed > 0 {
		c.remaining[c.running] -= elapsed
		c.lastRef = now
	}
	if c.remaining[c.running] <= 0 {
		c.remaining[c.running] = 0
		return c.running, true
	}
	return White, false
}

// OnMove is clock bookkeeping for an accepted action by mover: settle the
// mover's elapsed time, add the increment, and hand the countdown to the
// opponent. The game's opening move gets no increment.
func (c *Clock) OnMove(mover Color, now time.Time) {
	if c.active && c.running == mover {
		elapsed := now.Sub(c.lastRef)
		if elapsed > 0 {
			c.remaining[mover] -= elapsed
		}
		if c.remaining[mover] < 0 {
			c.remaining[mover] = 0
		}
	}
	if c.started {
		c.remaining[mover] += c.increment
	}
	c.started = true
	c.running = mover.Opposite()
	c.active = true
	c.lastRef = now
}

// Stop halts the countdown; used when the game reaches a terminal status.
func (c *Clock) Stop() { c.active = false }
