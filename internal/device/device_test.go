package device

import (
	"testing"

	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/media"
)

func TestFrameDuration(t *testing.T) {
	tests := []struct {
		rate caps.FractionField
		want media.ClockTime
	}{
		{caps.FractionFixed(caps.Frac(30, 1)), 33333333},
		{caps.FractionFixed(caps.Frac(30000, 1001)), 33366666},
		{caps.FractionFixed(caps.Frac(0, 1)), media.None},
		{caps.FractionFixed(caps.Frac(0, 0)), media.None},
		{caps.FractionRange(caps.Frac(1, 1), caps.Frac(30, 1)), media.None},
		{caps.FractionAny(), media.None},
	}

	for _, tt := range tests {
		t.Run(tt.rate.String(), func(t *testing.T) {
			if got := FrameDuration(caps.Descriptor{FrameRate: tt.rate}); got != tt.want {
				t.Errorf("FrameDuration = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFrameSize(t *testing.T) {
	tests := []struct {
		caps string
		want int
	}{
		{"video/x-raw, format=NV12, width=640, height=480", 460800},
		{"video/x-raw, format=YUY2, width=640, height=480", 614400},
		{"video/x-raw, format=BGRx, width=2, height=2", 16},
		{"video/x-raw, format=MJPG, width=640, height=480", 0},
		{"video/x-raw, format=NV12, width=[ 1, 640 ], height=480", 0},
	}

	for _, tt := range tests {
		t.Run(tt.caps, func(t *testing.T) {
			d, err := caps.ParseDescriptor(tt.caps)
			if err != nil {
				t.Fatal(err)
			}
			if got := FrameSize(d); got != tt.want {
				t.Errorf("FrameSize = %d, want %d", got, tt.want)
			}
		})
	}
}
