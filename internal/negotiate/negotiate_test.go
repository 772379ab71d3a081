package negotiate

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/smazurov/ispsrc/internal/caps"
)

const deviceCaps = "video/x-raw, format=NV12, width=1920, height=1080, framerate={ 30/1, 60/1 }; " +
	"video/x-raw, format=NV12, width=1280, height=720, framerate={ 30/1, 60/1 }; " +
	"video/x-raw, format=NV12, width=640, height=480, framerate=30/1"

func TestNegotiateWithoutPeerKeepsOwnCaps(t *testing.T) {
	own := caps.MustParse(deviceCaps)

	for name, peer := range map[string]caps.Set{"absent": nil, "any": caps.Any()} {
		t.Run(name, func(t *testing.T) {
			got, err := New().Negotiate(own, peer)
			if err != nil {
				t.Fatalf("Negotiate: %v", err)
			}
			if !got.Equal(caps.Set{own[0]}) {
				t.Errorf("Negotiate = %s, want %s", got, own[0])
			}
		})
	}
}

func TestNegotiateEmptyIntersection(t *testing.T) {
	own := caps.MustParse(deviceCaps)
	peer := caps.MustParse("video/x-raw, format=YUY2")

	_, err := New().Negotiate(own, peer)
	if !errors.Is(err, ErrNoIntersection) {
		t.Fatalf("err = %v, want ErrNoIntersection", err)
	}

	_, err = New().Agree(own, caps.Set{})
	if !errors.Is(err, ErrNoIntersection) {
		t.Errorf("empty peer err = %v, want ErrNoIntersection", err)
	}
}

func TestNegotiatePicksSmallestCovering(t *testing.T) {
	fixedSizes := caps.MustParse(deviceCaps)
	withRange := caps.MustParse(deviceCaps + "; video/x-raw, format=NV12, width=[ 16, 4096 ], height=[ 16, 4096 ], framerate=30/1")

	tests := []struct {
		name  string
		own   caps.Set
		peer  string
		wantW int
		wantH int
	}{
		{
			name:  "peer prefers 800x600",
			own:   fixedSizes,
			peer:  "video/x-raw, width=800, height=600; video/x-raw",
			wantW: 1280, wantH: 720,
		},
		{
			name:  "peer prefers exact match",
			own:   fixedSizes,
			peer:  "video/x-raw, width=640, height=480; video/x-raw",
			wantW: 640, wantH: 480,
		},
		{
			name:  "nothing large enough keeps the first entry",
			own:   fixedSizes,
			peer:  "video/x-raw, width=4096, height=2160; video/x-raw",
			wantW: 1920, wantH: 1080,
		},
		{
			name:  "peer without a fixed size keeps the first entry",
			own:   fixedSizes,
			peer:  "video/x-raw, width=[ 1, 4096 ], height=[ 1, 4096 ]",
			wantW: 1920, wantH: 1080,
		},
		{
			name:  "ranged device caps satisfy the preference exactly",
			own:   withRange,
			peer:  "video/x-raw, width=800, height=600; video/x-raw",
			wantW: 800, wantH: 600,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Negotiate(tt.own, caps.MustParse(tt.peer))
			if err != nil {
				t.Fatalf("Negotiate: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("Negotiate returned %d descriptors, want 1", len(got))
			}
			w, h, ok := got[0].Size()
			if !ok || w != tt.wantW || h != tt.wantH {
				t.Errorf("picked %s, want %dx%d", got[0], tt.wantW, tt.wantH)
			}
		})
	}
}

func TestPickCoveringIsOrderIndependent(t *testing.T) {
	preferred, _ := caps.ParseDescriptor("video/x-raw, width=600, height=400")
	ascending := caps.MustParse("video/x-raw, width=320, height=240; video/x-raw, width=640, height=480; video/x-raw, width=1280, height=720")
	descending := caps.MustParse("video/x-raw, width=1280, height=720; video/x-raw, width=640, height=480; video/x-raw, width=320, height=240")

	if got := PickCovering(ascending, preferred); got != 1 {
		t.Errorf("ascending: picked %d, want 1", got)
	}
	if got := PickCovering(descending, preferred); got != 1 {
		t.Errorf("descending: picked %d, want 1", got)
	}
}

func TestPickCoveringTieKeepsEarliest(t *testing.T) {
	preferred, _ := caps.ParseDescriptor("video/x-raw, width=600, height=400")
	candidates := caps.MustParse("video/x-raw, width=1280, height=720; video/x-raw, format=YUY2, width=640, height=480; video/x-raw, format=NV12, width=640, height=480")

	if got := PickCovering(candidates, preferred); got != 1 {
		t.Errorf("picked %d, want 1", got)
	}
}

func TestAgree(t *testing.T) {
	own := caps.MustParse("video/x-raw, format={ NV12, YUY2 }, width=[ 16, 4096 ], height=[ 16, 4096 ], framerate=[ 1/1, 60/1 ]")

	t.Run("peer with fixed size", func(t *testing.T) {
		res, err := New().Agree(own, caps.MustParse("video/x-raw, format=YUY2, width=1280, height=720"))
		if err != nil {
			t.Fatalf("Agree: %v", err)
		}
		want := "video/x-raw, format=(string)YUY2, width=(int)1280, height=(int)720, framerate=(fraction)60/1"
		if res.Format.String() != want {
			t.Errorf("Format = %q, want %q", res.Format, want)
		}
	})

	t.Run("no peer fixates to defaults", func(t *testing.T) {
		res, err := New().Agree(own, nil)
		if err != nil {
			t.Fatalf("Agree: %v", err)
		}
		want := "video/x-raw, format=(string)NV12, width=(int)320, height=(int)200, framerate=(fraction)60/1"
		if res.Format.String() != want {
			t.Errorf("Format = %q, want %q", res.Format, want)
		}
	})

	t.Run("own ANY needs no negotiation", func(t *testing.T) {
		res, err := New().Agree(caps.Any(), caps.MustParse("video/x-raw, width=640"))
		if err != nil {
			t.Fatalf("Agree: %v", err)
		}
		if !res.NotNeeded {
			t.Error("NotNeeded = false, want true")
		}
	})

	t.Run("custom target", func(t *testing.T) {
		res, err := New(WithTarget(caps.Target{Width: 1280, Height: 720, FrameRate: caps.Frac(30, 1)})).Agree(own, nil)
		if err != nil {
			t.Fatalf("Agree: %v", err)
		}
		if w, h, _ := res.Format.Size(); w != 1280 || h != 720 {
			t.Errorf("size = %dx%d, want 1280x720", w, h)
		}
	})
}

type refuse struct{}

func (refuse) Resolve(string, caps.StringField) (string, bool) { return "", false }

func TestAgreeFixationFailure(t *testing.T) {
	own := caps.MustParse("video/x-raw, format={ NV12, YUY2 }, width=640, height=480, framerate=30/1")

	_, err := New(WithResolver(refuse{})).Agree(own, nil)
	if !errors.Is(err, caps.ErrNotFixed) {
		t.Errorf("err = %v, want caps.ErrNotFixed", err)
	}
}

func TestPickCoveringMinimalArea(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	sizes := []int{160, 320, 480, 640, 720, 960, 1080, 1280, 1920}

	for range 200 {
		n := 2 + rng.IntN(6)
		candidates := make(caps.Set, n)
		for i := range candidates {
			candidates[i] = caps.Descriptor{
				Media:  caps.MediaRaw,
				Width:  caps.Int(sizes[rng.IntN(len(sizes))]),
				Height: caps.Int(sizes[rng.IntN(len(sizes))]),
			}
		}
		preferred := caps.Descriptor{
			Width:  caps.Int(sizes[rng.IntN(len(sizes))]),
			Height: caps.Int(sizes[rng.IntN(len(sizes))]),
		}
		tw, th, _ := preferred.Size()

		got := PickCovering(candidates, preferred)
		gw, gh, _ := candidates[got].Size()
		covered := gw >= tw && gh >= th

		for i, c := range candidates {
			w, h, _ := c.Size()
			if w < tw || h < th {
				continue
			}
			if !covered {
				t.Fatalf("picked %d (%dx%d) does not cover %dx%d but %d (%dx%d) does", got, gw, gh, tw, th, i, w, h)
			}
			if w*h < gw*gh {
				t.Fatalf("picked %dx%d but %dx%d is smaller and covers %dx%d", gw, gh, w, h, tw, th)
			}
		}
		if !covered && got != 0 {
			t.Fatalf("nothing covers %dx%d, picked %d, want 0", tw, th, got)
		}
	}
}
