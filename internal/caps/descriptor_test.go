package caps

import "testing"

func TestIntersectPreservesFirstOrder(t *testing.T) {
	peer := MustParse("video/x-raw, format=NV12, width=1280, height=720; video/x-raw, format=NV12, width=640, height=480")
	tmpl := MustParse("video/x-raw, format={ NV12, YUY2 }, width=[ 16, 4096 ], height=[ 16, 4096 ], framerate=[ 0/1, 120/1 ]")

	got := Intersect(peer, tmpl)
	if len(got) != 2 {
		t.Fatalf("len(Intersect) = %d, want 2: %s", len(got), got)
	}
	if w, h, _ := got[0].Size(); w != 1280 || h != 720 {
		t.Errorf("first entry = %dx%d, want 1280x720", w, h)
	}
	if w, h, _ := got[1].Size(); w != 640 || h != 480 {
		t.Errorf("second entry = %dx%d, want 640x480", w, h)
	}
	if !got[0].FrameRate.Equal(FractionRange(Frac(0, 1), Frac(120, 1))) {
		t.Errorf("framerate = %s, want template range", got[0].FrameRate)
	}
}

func TestIntersectMediaMismatch(t *testing.T) {
	got := Intersect(MustParse("image/jpeg, width=640"), MustParse("video/x-raw, width=640"))
	if !got.IsEmpty() {
		t.Errorf("Intersect = %s, want EMPTY", got)
	}
}

func TestIntersectDropsDuplicates(t *testing.T) {
	got := Intersect(MustParse("video/x-raw, width=640"), MustParse("video/x-raw; video/x-raw, width=[ 1, 1000 ]"))
	if len(got) != 1 {
		t.Errorf("len(Intersect) = %d, want 1: %s", len(got), got)
	}
}

func TestSetAnyAndEmpty(t *testing.T) {
	if !Any().IsAny() {
		t.Error("Any() must be any")
	}
	if Any().IsEmpty() {
		t.Error("Any() must not be empty")
	}
	if !(Set{}).IsEmpty() {
		t.Error("empty set must be empty")
	}
	if MustParse("video/x-raw").IsAny() {
		t.Error("a media type alone is a constraint")
	}
	if got := Intersect(Any(), MustParse("video/x-raw, width=640")); got.String() != "video/x-raw, width=(int)640" {
		t.Errorf("Intersect with ANY = %q", got)
	}
}

func TestDescriptorIsFixed(t *testing.T) {
	tests := []struct {
		caps string
		want bool
	}{
		{"video/x-raw, format=NV12, width=640, height=480, framerate=30/1", true},
		{"video/x-raw, width=640, height=480, framerate=30/1", true},
		{"video/x-raw, format={ NV12, YUY2 }, width=640, height=480, framerate=30/1", false},
		{"video/x-raw, width=[ 16, 640 ], height=480, framerate=30/1", false},
		{"video/x-raw, width=640, height=480", false},
	}

	for _, tt := range tests {
		t.Run(tt.caps, func(t *testing.T) {
			d, err := ParseDescriptor(tt.caps)
			if err != nil {
				t.Fatalf("ParseDescriptor: %v", err)
			}
			if got := d.IsFixed(); got != tt.want {
				t.Errorf("IsFixed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	s := Set{{Width: IntList(1, 2, 3)}}
	c := s.Clone()
	c[0].Width.Values[0] = 99
	if s[0].Width.Values[0] != 1 {
		t.Error("Clone shares list storage with the original")
	}
}
