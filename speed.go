package metronome

import "time"

/*
Speed is the cadence policy: given the time of the last accepted step and
the current time, it decides whether a new step may start. Implementations
are pure functions of their arguments and hold no state.

The boundary comparison is inclusive: a step is due the instant a full
period has elapsed, so StepDue(last, last.Add(Period())) is true.
*/
type Speed interface {
	StepDue(lastStep, now time.Time) bool

	// Period returns the duration of one cadence step.
	Period() time.Duration
}

// FPS returns a Speed that steps n times per second. Rates below 1 are
// treated as 1.
func FPS(n int) Speed {
	if n < 1 {
		n = 1
	}
	return fpsSpeed(n)
}

type fpsSpeed int

func (s fpsSpeed) Period() time.Duration {
	return time.Duration(float64(time.Second) / float64(s))
}

func (s fpsSpeed) StepDue(lastStep, now time.Time) bool {
	return !now.Before(lastStep.Add(s.Period()))
}

// Interval returns a Speed with an explicit step duration.
func Interval(d time.Duration) Speed {
	return intervalSpeed(d)
}

type intervalSpeed time.Duration

func (s intervalSpeed) Period() time.Duration {
	return time.Duration(s)
}

func (s intervalSpeed) StepDue(lastStep, now time.Time) bool {
	return !now.Before(lastStep.Add(time.Duration(s)))
}
