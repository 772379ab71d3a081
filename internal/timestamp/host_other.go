//go:build !linux

package timestamp

import (
	"time"

	"github.com/smazurov/ispsrc/internal/media"
)

var processStart = time.Now()

func monotonicNow() media.ClockTime {
	return media.FromDuration(time.Since(processStart))
}
