package session

import "time"

// Countdown is the match clock. It has no pause: once started it runs out or
// the match is finished early.
type Countdown struct {
	Duration  time.Duration
	StartedAt time.Time
}

func (c Countdown) Running() bool {
	return !c.StartedAt.IsZero()
}

func (c Countdown) EndsAt() time.Time {
	return c.StartedAt.Add(c.Duration)
}

// Remaining is clamped at zero.
func (c Countdown) Remaining(now time.Time) time.Duration {
	if !c.Running() {
		return 0
	}
	left := c.EndsAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (c Countdown) Expired(now time.Time) bool {
	return c.Running() && !now.Before(c.EndsAt())
}
