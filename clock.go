package engine

// Clock tracks game-time ticks (milliseconds) separately from wall-clock
// time so that pausing the simulation freezes movement, waits, and
// command timers without freezing rendering or input sampling.
type Clock struct {
	windowTicks int64 // raw wall ticks, never frozen

	startTime         int64
	timeStop          bool
	stopStartTime     int64
	totalStoppedTime  int64

	paused         bool
	pauseStartTime int64
}

// NewClock creates a clock whose epoch is the given starting tick
// (typically 0, or the wall clock at process start).
func NewClock(startTick int64) *Clock {
	return &Clock{startTime: startTick}
}

// Advance moves the wall clock forward by deltaMillis; call this once
// per frame regardless of pause state.
func (c *Clock) Advance(deltaMillis int64) {
	c.windowTicks += deltaMillis
}

// Ticks returns game time: wall ticks minus every interval the clock was
// stopped or paused. Commands that measure "game ticks" read this.
func (c *Clock) Ticks() int64 {
	if c.timeStop {
		return c.stopStartTime - c.startTime - c.totalStoppedTime
	}
	if c.paused {
		return c.pauseStartTime - c.startTime - c.totalStoppedTime
	}
	return c.windowTicks - c.startTime - c.totalStoppedTime
}

// WindowTicks returns raw wall-clock ticks, unaffected by pause or time
// stop. Pause-safe commands (typewriter text under a pause menu) read
// this instead of Ticks.
func (c *Clock) WindowTicks() int64 { return c.windowTicks }

// Stopped reports whether StopTime has been called without a matching
// ResumeTime.
func (c *Clock) Stopped() bool { return c.timeStop }

// StopTime freezes Ticks entirely (distinct from Pause — see IsPaused).
func (c *Clock) StopTime() {
	if c.timeStop {
		return
	}
	c.timeStop = true
	c.stopStartTime = c.windowTicks
}

// ResumeTime un-freezes Ticks, accounting the frozen interval into
// totalStoppedTime so Ticks continues from where it left off.
func (c *Clock) ResumeTime() {
	if !c.timeStop {
		return
	}
	c.timeStop = false
	c.totalStoppedTime += c.windowTicks - c.stopStartTime
}

// IsPaused reports whether the clock is paused (distinct from time-stop:
// pausing halts command execution but the window keeps drawing and
// input keeps being sampled for a pause menu).
func (c *Clock) IsPaused() bool { return c.paused }

// Pause freezes Ticks the same way StopTime does, but is a separate
// flag so a pause menu and an explicit time-stop don't fight over state.
func (c *Clock) Pause() {
	if c.paused {
		return
	}
	c.paused = true
	c.pauseStartTime = c.windowTicks
}

// Resume un-pauses the clock.
func (c *Clock) Resume() {
	if !c.paused {
		return
	}
	c.paused = false
	c.totalStoppedTime += c.windowTicks - c.pauseStartTime
}

// Seconds returns Ticks converted to whole seconds.
func (c *Clock) Seconds() int64 { return c.Ticks() / 1000 }
