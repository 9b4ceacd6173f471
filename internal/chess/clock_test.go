package chess

import (
	"testing"
	"time"
)

func TestClockStartPutsSideToMoveOnCountdown(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewClock(60*time.Second, 2*time.Second)
	if _, ok := c.RunningFor(); ok {
		t.Fatalf("countdown must not run before Start")
	}

	c.Start(White, now)
	if run, ok := c.RunningFor(); !ok || run != White {
		t.Fatalf("white should be on the countdown from game start")
	}
	if c.Started() {
		t.Fatalf("Started reports the first move, not Start")
	}

	// Start is a no-op once running
	c.Start(Black, now)
	if run, _ := c.RunningFor(); run != White {
		t.Fatalf("second Start must not steal the countdown")
	}
}

func TestClockWhiteCanFlagBeforeMoving(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewClock(60*time.Second, 0)
	c.Start(White, now)

	loser, expired := c.Tick(now.Add(61 * time.Second))
	if !expired || loser != White {
		t.Fatalf("expired=%v loser=%v, want white timeout without a move", expired, loser)
	}
	if c.Seconds(White) != 0 {
		t.Fatalf("expired side clamps to zero")
	}
}

func TestClockOpeningMoveEarnsNoIncrement(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewClock(60*time.Second, 2*time.Second)
	c.Start(White, now)

	// white thinks 5s over the opening move: deducted, but no increment
	now = now.Add(5 * time.Second)
	c.OnMove(White, now)
	if got := c.Seconds(White); got != 55 {
		t.Fatalf("white seconds = %d, want 55", got)
	}
	if !c.Started() {
		t.Fatalf("first move marks the clock started")
	}
	if run, ok := c.RunningFor(); !ok || run != Black {
		t.Fatalf("black should be on the countdown")
	}
}

func TestClockDeductsElapsedAndAddsIncrement(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewClock(60*time.Second, 2*time.Second)
	c.Start(White, now)
	c.OnMove(White, now)

	// black thinks 5s
	now = now.Add(5 * time.Second)
	c.OnMove(Black, now)
	if got := c.Seconds(Black); got != 57 { // 60 - 5 + 2
		t.Fatalf("black seconds = %d, want 57", got)
	}
	if run, _ := c.RunningFor(); run != White {
		t.Fatalf("countdown should hand over to white")
	}
}

func TestClockRapidTicksDoNotOverDeduct(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewClock(60*time.Second, 0)
	c.Start(White, now)
	c.OnMove(White, now)

	// ten ticks spread over one real second
	for i := 1; i <= 10; i++ {
		if _, expired := c.Tick(now.Add(time.Duration(i) * 100 * time.Millisecond)); expired {
			t.Fatalf("unexpected timeout")
		}
	}
	if got := c.Remaining(Black); got != 59*time.Second {
		t.Fatalf("remaining = %v, want 59s", got)
	}
}

func TestClockTimeoutAfterHandover(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewClock(60*time.Second, 0)
	c.Start(White, now)
	c.OnMove(White, now)

	loser, expired := c.Tick(now.Add(61 * time.Second))
	if !expired || loser != Black {
		t.Fatalf("expired=%v loser=%v, want black timeout", expired, loser)
	}
	if c.Seconds(Black) != 0 {
		t.Fatalf("expired side clamps to zero")
	}
}

func TestClockStop(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewClock(60*time.Second, 0)
	c.Start(White, now)
	c.Stop()
	if _, ok := c.RunningFor(); ok {
		t.Fatalf("stopped clock has no running side")
	}
	if _, expired := c.Tick(now.Add(5 * time.Minute)); expired {
		t.Fatalf("stopped clock never expires")
	}
}
