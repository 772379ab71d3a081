//go:build linux

package v4l2dev

import (
	"errors"
	"testing"

	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/pkg/linuxav/v4l2"
)

type stubInterval struct {
	current v4l2.Fract
	getErr  error
	setErr  error
	// applied is what S_PARM reports back; zero means the request.
	applied v4l2.Fract
}

func (s *stubInterval) FrameInterval() (v4l2.Fract, error) {
	return s.current, s.getErr
}

func (s *stubInterval) SetFrameInterval(interval v4l2.Fract) (v4l2.Fract, error) {
	if s.setErr != nil {
		return v4l2.Fract{}, s.setErr
	}
	if s.applied != (v4l2.Fract{}) {
		return s.applied, nil
	}
	return interval, nil
}

func TestApplyFrameRate(t *testing.T) {
	errNotTTY := errors.New("VIDIOC_S_PARM: inappropriate ioctl for device")

	tests := []struct {
		name    string
		dev     *stubInterval
		rate    caps.Fraction
		want    caps.Fraction
		wantErr bool
	}{
		{
			name: "applied as requested",
			dev:  &stubInterval{},
			rate: caps.Frac(30, 1),
			want: caps.Frac(30, 1),
		},
		{
			name: "equivalent interval",
			dev:  &stubInterval{applied: v4l2.Fract{Numerator: 2, Denominator: 60}},
			rate: caps.Frac(30, 1),
			want: caps.Frac(30, 1),
		},
		{
			name:    "driver picks another rate",
			dev:     &stubInterval{applied: v4l2.Fract{Numerator: 1, Denominator: 15}},
			rate:    caps.Frac(30, 1),
			wantErr: true,
		},
		{
			name: "no S_PARM, G_PARM matches",
			dev:  &stubInterval{setErr: errNotTTY, current: v4l2.Fract{Numerator: 1, Denominator: 30}},
			rate: caps.Frac(30, 1),
			want: caps.Frac(30, 1),
		},
		{
			name:    "no S_PARM, G_PARM differs",
			dev:     &stubInterval{setErr: errNotTTY, current: v4l2.Fract{Numerator: 1, Denominator: 60}},
			rate:    caps.Frac(30, 1),
			wantErr: true,
		},
		{
			name: "no S_PARM, no G_PARM",
			dev:  &stubInterval{setErr: errNotTTY, getErr: errNotTTY},
			rate: caps.Frac(30, 1),
			want: unknownRate,
		},
		{
			name: "G_PARM reports zero interval",
			dev:  &stubInterval{setErr: errNotTTY},
			rate: caps.Frac(30, 1),
			want: unknownRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyFrameRate(tt.dev, tt.rate)
			if tt.wantErr {
				if err == nil {
					t.Errorf("applyFrameRate = %s, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("applyFrameRate = %s, want %s", got, tt.want)
			}
		})
	}
}
