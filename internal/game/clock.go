package game

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// MinTurnInterval is the shortest wall time between clock-driven turns.
const MinTurnInterval = time.Millisecond

// Clock ends turns on a fixed interval so a session can advance without an
// admin calling EndTurn.
type Clock struct {
	Session  *Session
	Interval time.Duration // wall time per turn at speed 1

	speed atomic.Uint64
}

// NewClock creates a clock running at speed 1. Intervals below
// MinTurnInterval are raised to it.
func NewClock(s *Session, interval time.Duration) *Clock {
	c := &Clock{Session: s, Interval: max(interval, MinTurnInterval)}
	c.speed.Store(1)
	return c
}

// SetSpeed sets the turn multiplier. 0 pauses the clock.
func (c *Clock) SetSpeed(n uint64) {
	c.speed.Store(n)
}

// Speed returns the current multiplier.
func (c *Clock) Speed() uint64 {
	return c.speed.Load()
}

// Run ends a turn every Interval/speed until ctx is cancelled.
func (c *Clock) Run(ctx context.Context) {
	slog.Info("turn clock started", "turn", c.Session.Turn(), "interval", c.Interval, "speed", c.Speed())

	for {
		speed := c.Speed()

		select {
		case <-ctx.Done():
			slog.Info("turn clock stopped", "turn", c.Session.Turn())
			return
		case <-time.After(c.wait(speed)):
		}

		if speed > 0 {
			c.Session.EndTurn()
		}
	}
}

// wait is the delay before the next turn at the given speed. A paused
// clock polls every 100ms.
func (c *Clock) wait(speed uint64) time.Duration {
	if speed == 0 {
		return 100 * time.Millisecond
	}
	return max(c.Interval/time.Duration(speed), MinTurnInterval)
}
