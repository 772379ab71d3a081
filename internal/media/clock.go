package media

import (
	"github.com/benbjohnson/clock"
)

// PipelineClock is the shared clock of the pipeline the source runs in.
type PipelineClock interface {
	Time() ClockTime
}

// SystemClock is a PipelineClock backed by a clock.Clock.
type SystemClock struct {
	clock clock.Clock
}

// NewSystemClock wraps c. A nil c uses the real wall clock.
func NewSystemClock(c clock.Clock) *SystemClock {
	if c == nil {
		c = clock.New()
	}
	return &SystemClock{clock: c}
}

// Time returns the current absolute time in nanoseconds.
func (s *SystemClock) Time() ClockTime {
	return ClockTime(s.clock.Now().UnixNano())
}

// ClockSample is one reading of the pipeline clock together with the
// pipeline base time. Both are None when no clock is attached.
type ClockSample struct {
	Absolute ClockTime
	Base     ClockTime
}

// NoClock is the sample taken when no pipeline clock is attached.
var NoClock = ClockSample{Absolute: None, Base: None}

// Valid reports whether the sample carries a usable clock reading.
func (s ClockSample) Valid() bool {
	return s.Absolute.IsValid()
}

// RunningTime returns Absolute - Base, clamped at zero.
func (s ClockSample) RunningTime() ClockTime {
	if !s.Valid() {
		return None
	}
	base := s.Base
	if !base.IsValid() {
		base = 0
	}
	if s.Absolute < base {
		return 0
	}
	return s.Absolute - base
}
