// Package chess defines the game entities
package chess

import (
	"fmt"
	"time"
)

// TimeControl defines the time settings for a game. Both players start with
// Initial on the clock and gain Increment after each of their moves.
type TimeControl struct {
	Initial   time.Duration
	Increment time.Duration
}

// NewTimeControl builds a time control from the minutes/seconds pair used on
// the wire.
func NewTimeControl(minutes, incrementSeconds int) TimeControl {
	return TimeControl{
		Initial:   time.Duration(minutes) * time.Minute,
		Increment: time.Duration(incrementSeconds) * time.Second,
	}
}

// String renders the control the way PGN headers expect it ("300+0").
func (tc TimeControl) String() string {
	return fmt.Sprintf("%d+%d", int64(tc.Initial/time.Second), int64(tc.Increment/time.Second))
}

// Clock is a single player's countdown. It is a plain value: the owner of the
// clock decides when wall time is sampled.
type Clock struct {
	Remaining time.Duration
	Increment time.Duration
}

// NewClock creates a clock loaded with the initial time of tc
func NewClock(tc TimeControl) Clock {
	return Clock{
		Remaining: tc.Initial,
		Increment: tc.Increment,
	}
}

// Deduct removes elapsed from the remaining time, flooring at zero.
// Negative elapsed values (clock skew) are ignored.
func (c Clock) Deduct(elapsed time.Duration) Clock {
	if elapsed < 0 {
		elapsed = 0
	}

	c.Remaining -= elapsed
	if c.Remaining < 0 {
		c.Remaining = 0
	}

	return c
}

// AddIncrement credits the per-move increment.
func (c Clock) AddIncrement() Clock {
	c.Remaining += c.Increment
	return c
}

// Expired reports whether the clock has run out.
func (c Clock) Expired() bool {
	return c.Remaining <= 0
}

// Millis returns the remaining time in milliseconds
func (c Clock) Millis() int64 {
	return c.Remaining.Milliseconds()
}

// FormatClockTime formats a duration in milliseconds to a user-friendly string (e.g., "1:30")
func FormatClockTime(timeMs int64) string {
	if timeMs < 0 {
		timeMs = 0
	}

	totalSeconds := timeMs / 1000
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60

	// For times less than 10 seconds, show decimal
	if timeMs < 10000 {
		tenths := (timeMs % 1000) / 100
		return fmt.Sprintf("%d.%d", totalSeconds, tenths)
	}

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
