// Package device defines the contracts the source expects from a capture
// backend: format configuration, a buffer pool and cancellation of
// blocking pulls.
package device

import (
	"context"
	"errors"

	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/media"
)

// Flow errors returned by Pool.Process.
var (
	// ErrCorrupted means the frame was damaged in transit. The caller
	// should request another one.
	ErrCorrupted = errors.New("corrupted buffer")

	// ErrLastBuffer means the backend handed out an empty placeholder
	// buffer. It is a backend bug, not a transient condition.
	ErrLastBuffer = errors.New("last buffer")

	// ErrFlushing means the pull was cancelled by Unlock or the pool was
	// stopped.
	ErrFlushing = errors.New("flushing")
)

// ErrNotOpen is returned by operations that need an open device.
var ErrNotOpen = errors.New("device not open")

// Device is a capture backend.
type Device interface {
	Open() error
	Close() error
	IsOpen() bool

	// IsActive reports whether buffers are allocated and streaming may be
	// in progress.
	IsActive() bool

	// Caps returns the formats the device can currently produce. It
	// returns ErrNotOpen when the device is closed.
	Caps() (caps.Set, error)

	// TryFormat checks whether format would be accepted without touching
	// the running configuration.
	TryFormat(format caps.Descriptor) error

	// SetFormat configures the device. format must be fixed.
	SetFormat(format caps.Descriptor) error

	// Format returns the configured format. It reports false once the
	// device is stopped.
	Format() (caps.Descriptor, bool)

	// Stop stops streaming and releases the buffers.
	Stop() error

	// Unlock makes a blocked Pool.Process return ErrFlushing promptly.
	// UnlockStop re-arms blocking pulls.
	Unlock() error
	UnlockStop() error

	Pool() Pool

	// Handle is the OS handle passed to pre-configure hooks, -1 if none.
	Handle() int
}

// Pool is the buffer pool of a device.
type Pool interface {
	IsActive() bool
	SetActive(active bool) error
	Stop() error

	// Process blocks until a frame is captured. The frame carries the
	// device timestamp and sequence numbers when the backend has them.
	Process(ctx context.Context) (*media.Frame, error)

	// Depth is the number of frames the pool can hold back, 0 when
	// unknown.
	Depth() int

	// FrameSize is the size in bytes of one frame in the configured
	// format.
	FrameSize() int
}

// PreConfigureHook runs synchronously right before the device is
// configured with format. Returning an error aborts the configuration.
type PreConfigureHook func(handle int, format caps.Descriptor) error

// FrameDuration returns the duration of one frame at the frame rate of
// format, or media.None when the rate is not fixed and nonzero.
func FrameDuration(format caps.Descriptor) media.ClockTime {
	fr, ok := format.FrameRate.Fixed()
	if !ok || fr.Num <= 0 || fr.Den <= 0 {
		return media.None
	}
	return media.ScaleInt(media.Second, fr.Den, fr.Num)
}

// FrameSize returns the size in bytes of one frame of format, or 0 when
// the size or pixel format is unknown.
func FrameSize(format caps.Descriptor) int {
	w, h, ok := format.Size()
	if !ok {
		return 0
	}
	pf, _ := format.PixelFormat.Fixed()
	switch pf {
	case "NV12", "NV21", "I420", "YV12":
		return w * h * 3 / 2
	case "NV16", "NV61", "YUY2", "UYVY", "YVYU", "RGB16":
		return w * h * 2
	case "RGB", "BGR":
		return w * h * 3
	case "RGBx", "BGRx", "xRGB", "xBGR", "RGBA", "BGRA":
		return w * h * 4
	case "GRAY8":
		return w * h
	}
	return 0
}
