package engine

import (
	"log/slog"
	"time"
)

// NumSpeeds is the number of simulation speed steps.
const NumSpeeds = 5

// speedIntervals is the minimum wall-clock gap between ticks per speed, in
// descending duration order so higher speed means faster days.
var speedIntervals = [NumSpeeds]time.Duration{
	3000 * time.Millisecond,
	2000 * time.Millisecond,
	1000 * time.Millisecond,
	100 * time.Millisecond,
	1 * time.Millisecond,
}

// Clock conditionally advances the simulation depending on speed and pause
// state. The tick callback runs the full day phase sequence; the update
// callback fires on every poll, paused or not, for host refresh work.
type Clock struct {
	tick   func()
	update func()

	paused       bool
	currentSpeed int
	lastTickTime time.Time
}

// NewClock creates a paused clock at speed 0.
func NewClock(tick, update func()) *Clock {
	c := &Clock{tick: tick, update: update}
	c.Reset()
	return c
}

// Paused reports the pause state.
func (c *Clock) Paused() bool { return c.paused }

// SetPaused sets the pause state.
func (c *Clock) SetPaused(paused bool) { c.paused = paused }

// TogglePaused flips the pause state.
func (c *Clock) TogglePaused() { c.paused = !c.paused }

// Speed returns the current speed step.
func (c *Clock) Speed() int { return c.currentSpeed }

// SetSpeed clamps and applies a speed step 0..4.
func (c *Clock) SetSpeed(speed int) {
	if speed < 0 {
		speed = 0
	} else if speed >= NumSpeeds {
		speed = NumSpeeds - 1
	}
	c.currentSpeed = speed
}

// IncreaseSpeed and DecreaseSpeed step the speed.
func (c *Clock) IncreaseSpeed() { c.SetSpeed(c.currentSpeed + 1) }
func (c *Clock) DecreaseSpeed() { c.SetSpeed(c.currentSpeed - 1) }

// CanIncreaseSpeed and CanDecreaseSpeed report headroom.
func (c *Clock) CanIncreaseSpeed() bool { return c.currentSpeed < NumSpeeds-1 }
func (c *Clock) CanDecreaseSpeed() bool { return c.currentSpeed > 0 }

// Reset pauses at speed 0 and restarts the interval timer.
func (c *Clock) Reset() {
	c.paused = true
	c.currentSpeed = 0
	c.lastTickTime = time.Now()
}

// ConditionallyAdvance fires tick when unpaused and the speed interval has
// elapsed since the last tick, then always fires update. now is injected
// for testability.
func (c *Clock) ConditionallyAdvance(now time.Time) {
	if !c.paused {
		if now.Sub(c.lastTickTime) >= speedIntervals[c.currentSpeed] {
			c.lastTickTime = now
			if c.tick != nil {
				c.tick()
			}
		}
	}
	if c.update != nil {
		c.update()
	}
}

// ForceAdvance fires one tick regardless of pause or interval. Debug use.
func (c *Clock) ForceAdvance() {
	if c.tick != nil {
		c.tick()
	}
}

// Run polls ConditionallyAdvance until the stop channel closes. The poll
// granularity matches the fastest speed step.
func (c *Clock) Run(stop <-chan struct{}) {
	slog.Info("simulation clock started", "speed", c.currentSpeed, "paused", c.paused)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			slog.Info("simulation clock stopped")
			return
		case now := <-ticker.C:
			c.ConditionallyAdvance(now)
		}
	}
}
