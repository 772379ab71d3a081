// Package media holds the value types shared by the capture path: clock
// times with an explicit "none" value, captured frames, pipeline clock
// samples and quality-of-service notifications.
package media

import (
	"fmt"
	"time"
)

// ClockTime is a time in nanoseconds on some clock. The value None marks
// an unknown or unavailable time.
type ClockTime int64

// None is the invalid clock time.
const None ClockTime = -1

// Common clock time units.
const (
	Nanosecond  ClockTime = 1
	Millisecond ClockTime = ClockTime(time.Millisecond)
	Second      ClockTime = ClockTime(time.Second)
)

// FromDuration converts a time.Duration into a ClockTime.
func FromDuration(d time.Duration) ClockTime {
	return ClockTime(d)
}

// IsValid reports whether t holds a real time.
func (t ClockTime) IsValid() bool {
	return t >= 0
}

// Duration returns t as a time.Duration. None maps to -1ns.
func (t ClockTime) Duration() time.Duration {
	return time.Duration(t)
}

// String formats t as h:mm:ss.nnnnnnnnn, or "none".
func (t ClockTime) String() string {
	if !t.IsValid() {
		return "none"
	}
	ns := int64(t)
	h := ns / int64(time.Hour)
	ns -= h * int64(time.Hour)
	m := ns / int64(time.Minute)
	ns -= m * int64(time.Minute)
	s := ns / int64(time.Second)
	ns -= s * int64(time.Second)
	return fmt.Sprintf("%d:%02d:%02d.%09d", h, m, s, ns)
}

// ScaleInt returns val * num / denom without intermediate overflow for the
// ranges used by frame durations. It returns None when denom is zero.
func ScaleInt(val ClockTime, num, denom int) ClockTime {
	if denom == 0 || !val.IsValid() {
		return None
	}
	hi := int64(val) / int64(denom)
	lo := int64(val) % int64(denom)
	return ClockTime(hi*int64(num) + lo*int64(num)/int64(denom))
}
