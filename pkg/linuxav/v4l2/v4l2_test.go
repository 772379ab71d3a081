//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

func TestFourCC(t *testing.T) {
	tests := []struct {
		code  string
		value uint32
	}{
		{"NV12", PixFmtNV12},
		{"YUYV", PixFmtYUYV},
		{"MJPG", PixFmtMJPEG},
		{"H264", PixFmtH264},
		{"HEVC", PixFmtHEVC},
		{"GREY", PixFmtGrey},
		{"YU12", PixFmtYUV420},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := FourCC(tt.code); got != tt.value {
				t.Errorf("FourCC(%q) = 0x%08x, want 0x%08x", tt.code, got, tt.value)
			}
			if got := FormatFourCC(tt.value); got != tt.code {
				t.Errorf("FormatFourCC(0x%08x) = %q, want %q", tt.value, got, tt.code)
			}
		})
	}

	if got := FormatFourCC(FourCC("Y8")); got != "Y8  " {
		t.Errorf("short code = %q, want space padded", got)
	}
}

func TestFractFPS(t *testing.T) {
	tests := []struct {
		interval Fract
		want     float64
	}{
		{Fract{1, 30}, 30},
		{Fract{1001, 30000}, 29.97},
		{Fract{1, 60}, 60},
		{Fract{0, 30}, 0},
		{Fract{2, 1}, 0.5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.interval.Numerator, tt.interval.Denominator), func(t *testing.T) {
			if got := tt.interval.FPS(); math.Abs(got-tt.want) > 0.01 {
				t.Errorf("FPS() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestUnionAccessors(t *testing.T) {
	var e v4l2Frmsizeenum
	sw := e.stepwise()
	sw.minWidth, sw.maxWidth, sw.stepWidth = 16, 4096, 2
	if d := e.discrete(); d.width != 16 || d.height != 4096 {
		t.Errorf("discrete view = %+v, want width 16 height 4096 overlaid", *d)
	}

	var f v4l2Format
	f.pix().width = 640
	if got := *(*uint32)(unsafe.Pointer(&f.raw[0])); got != 640 {
		t.Errorf("pix width at union start = %d, want 640", got)
	}

	var p v4l2Streamparm
	p.capture().timeperframe = v4l2Fract{1, 30}
	if got := fract(p.capture().timeperframe); got != (Fract{1, 30}) {
		t.Errorf("timeperframe = %+v", got)
	}
}

func TestTimevalDuration(t *testing.T) {
	tv := v4l2Timeval{sec: 12, usec: 345678}
	if got, want := tv.duration(), 12*time.Second+345678*time.Microsecond; got != want {
		t.Errorf("duration = %v, want %v", got, want)
	}
}

func TestEndOfEnumeration(t *testing.T) {
	if !endOfEnumeration(fmt.Errorf("wrapped: %w", unix.EINVAL)) {
		t.Error("EINVAL should end enumeration")
	}
	if endOfEnumeration(unix.ENOTTY) {
		t.Error("ENOTTY should not end enumeration")
	}
	if !errors.Is(unix.EAGAIN, unix.EWOULDBLOCK) {
		t.Error("EAGAIN and EWOULDBLOCK should match on linux")
	}
}

func TestCstr(t *testing.T) {
	b := [16]byte{'u', 'v', 'c', 'v', 'i', 'd', 'e', 'o'}
	if got := cstr(b[:]); got != "uvcvideo" {
		t.Errorf("cstr = %q", got)
	}
	if got := cstr([]byte("abc")); got != "abc" {
		t.Errorf("cstr without terminator = %q", got)
	}
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open("/dev/does-not-exist-video")
	if !errors.Is(err, unix.ENOENT) {
		t.Errorf("err = %v, want ENOENT", err)
	}
}
