//go:build linux

package v4l2dev

import (
	"fmt"

	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/pkg/linuxav/v4l2"
)

// intervalDevice is the frame interval control of a V4L2 node.
type intervalDevice interface {
	FrameInterval() (v4l2.Fract, error)
	SetFrameInterval(interval v4l2.Fract) (v4l2.Fract, error)
}

// unknownRate is recorded when the driver neither sets nor reports its
// frame interval. Latency is then unavailable.
var unknownRate = caps.Frac(0, 1)

// applyFrameRate asks the driver for rate and returns the rate it runs at.
// A driver that refuses S_PARM keeps its current interval, which is read
// back with G_PARM. If that fails too the rate is unknownRate. A driver
// running at another rate rejects the format.
func applyFrameRate(dev intervalDevice, rate caps.Fraction) (caps.Fraction, error) {
	want := v4l2.Fract{Numerator: uint32(rate.Den), Denominator: uint32(rate.Num)}

	applied, err := dev.SetFrameInterval(want)
	if err != nil {
		current, getErr := dev.FrameInterval()
		if getErr != nil || current.Numerator == 0 || current.Denominator == 0 {
			return unknownRate, nil
		}
		applied = current
	}

	got := caps.Frac(int(applied.Denominator), int(applied.Numerator))
	if !got.Equal(rate) {
		return caps.Fraction{}, fmt.Errorf("driver runs at %s, want %s", got, rate)
	}
	return rate, nil
}
