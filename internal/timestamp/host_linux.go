package timestamp

import (
	"golang.org/x/sys/unix"

	"github.com/smazurov/ispsrc/internal/media"
)

// monotonicNow reads CLOCK_MONOTONIC, the clock V4L2 drivers stamp
// buffers with.
func monotonicNow() media.ClockTime {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return media.None
	}
	return media.ClockTime(ts.Nano())
}
