package v4l2dev

import (
	"testing"

	"github.com/smazurov/ispsrc/internal/caps"
)

func TestLookupFourCC(t *testing.T) {
	tests := []struct {
		fourcc string
		media  string
		name   string
		ok     bool
	}{
		{"NV12", caps.MediaRaw, "NV12", true},
		{"YUYV", caps.MediaRaw, "YUY2", true},
		{"YU12", caps.MediaRaw, "I420", true},
		{"MJPG", caps.MediaJPEG, "", true},
		{"BA81", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.fourcc, func(t *testing.T) {
			pf, ok := lookupFourCC(tt.fourcc)
			if ok != tt.ok {
				t.Fatalf("lookupFourCC(%q) ok = %v, want %v", tt.fourcc, ok, tt.ok)
			}
			if pf.media != tt.media || pf.name != tt.name {
				t.Errorf("lookupFourCC(%q) = %s/%s, want %s/%s", tt.fourcc, pf.media, pf.name, tt.media, tt.name)
			}
		})
	}
}

func TestLookupDescriptor(t *testing.T) {
	tests := []struct {
		caps   string
		fourcc string
		ok     bool
	}{
		{"video/x-raw, format=YUY2, width=640, height=480", "YUYV", true},
		{"video/x-raw, format=I420, width=640, height=480", "YU12", true},
		{"image/jpeg, width=640, height=480", "MJPG", true},
		{"video/x-h265, width=640, height=480", "HEVC", true},
		{"video/x-raw, width=640, height=480", "", false},
		{"video/x-raw, format=P010, width=640, height=480", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.caps, func(t *testing.T) {
			d, err := caps.ParseDescriptor(tt.caps)
			if err != nil {
				t.Fatal(err)
			}
			pf, ok := lookupDescriptor(d)
			if ok != tt.ok || pf.fourcc != tt.fourcc {
				t.Errorf("lookupDescriptor = %q, %v; want %q, %v", pf.fourcc, ok, tt.fourcc, tt.ok)
			}
		})
	}
}

func TestResolverPrefersNV12(t *testing.T) {
	r := Resolver()

	got, ok := r.Resolve(caps.FieldFormat, caps.StrList("YUY2", "NV12"))
	if !ok || got != "NV12" {
		t.Errorf("Resolve = %q, %v; want NV12", got, ok)
	}

	got, ok = r.Resolve(caps.FieldInterlace, caps.StrList(caps.InterlaceMixed, caps.InterlaceProgressive))
	if !ok || got != caps.InterlaceMixed {
		t.Errorf("Resolve(interlace) = %q, %v; want first entry", got, ok)
	}

	if _, ok := r.Resolve(caps.FieldFormat, caps.StrAny()); ok {
		t.Error("an unconstrained format must be left to the device")
	}
}

func TestTemplateCapsAcceptsKnownFormats(t *testing.T) {
	tmpl := TemplateCaps()
	for _, s := range []string{
		"video/x-raw, format=NV12, width=1920, height=1080, framerate=30/1",
		"image/jpeg, width=1280, height=720",
		"video/x-h264, width=640, height=480",
	} {
		if !caps.CanIntersect(tmpl, caps.MustParse(s)) {
			t.Errorf("template rejects %q", s)
		}
	}
	if caps.CanIntersect(tmpl, caps.MustParse("video/x-raw, format=P010")) {
		t.Error("template accepts P010")
	}
}
