package timestamp

import (
	"github.com/benbjohnson/clock"

	"github.com/smazurov/ispsrc/internal/media"
)

// HostClock reads the host clocks device timestamps may be taken from.
type HostClock interface {
	// Monotonic returns the time since an arbitrary fixed point, never
	// going backwards.
	Monotonic() media.ClockTime
	// Realtime returns wall-clock time since the Unix epoch.
	Realtime() media.ClockTime
}

// SystemHost reads CLOCK_MONOTONIC from the kernel and wall time from a
// clock.Clock.
type SystemHost struct {
	wall clock.Clock
}

// NewSystemHost returns a HostClock for the running system. A nil wall
// uses the real clock.
func NewSystemHost(wall clock.Clock) *SystemHost {
	if wall == nil {
		wall = clock.New()
	}
	return &SystemHost{wall: wall}
}

func (h *SystemHost) Monotonic() media.ClockTime {
	return monotonicNow()
}

func (h *SystemHost) Realtime() media.ClockTime {
	return media.ClockTime(h.wall.Now().UnixNano())
}
