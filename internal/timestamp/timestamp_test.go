package timestamp

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/smazurov/ispsrc/internal/media"
	"github.com/smazurov/ispsrc/internal/session"
)

type fixedHost struct {
	mono media.ClockTime
	wall media.ClockTime
}

func (h *fixedHost) Monotonic() media.ClockTime { return h.mono }
func (h *fixedHost) Realtime() media.ClockTime  { return h.wall }

const (
	sec   = media.Second
	ms    = media.Millisecond
	frame = 33 * ms
)

// wallEpoch is a plausible wall-clock reading, far from any monotonic one.
const wallEpoch = 1_700_000_000 * sec

func TestStamp(t *testing.T) {
	clockAt := func(running media.ClockTime) media.ClockSample {
		return media.ClockSample{Absolute: 500*sec + running, Base: 500 * sec}
	}

	tests := []struct {
		name         string
		host         fixedHost
		lastAccepted media.ClockTime
		deviceTS     media.ClockTime
		duration     media.ClockTime
		sample       media.ClockSample
		wantTS       media.ClockTime
		wantDelay    media.ClockTime
		wantTrusted  bool
		wantReason   Reason
	}{
		{
			name:        "monotonic device clock",
			host:        fixedHost{mono: 100 * sec, wall: wallEpoch},
			deviceTS:    100*sec - 10*ms,
			duration:    frame,
			sample:      clockAt(20 * sec),
			wantTS:      20*sec - 10*ms,
			wantDelay:   10 * ms,
			wantTrusted: true,
		},
		{
			name:        "device stamps with wall time",
			host:        fixedHost{mono: 100 * sec, wall: wallEpoch + 5*ms},
			deviceTS:    wallEpoch,
			duration:    frame,
			sample:      clockAt(20 * sec),
			wantTS:      20*sec - 5*ms,
			wantDelay:   5 * ms,
			wantTrusted: true,
		},
		{
			name:       "timestamp in the future",
			host:       fixedHost{mono: 100 * sec, wall: 100 * sec},
			deviceTS:   101 * sec,
			duration:   frame,
			sample:     clockAt(20 * sec),
			wantTS:     20*sec - frame,
			wantDelay:  frame,
			wantReason: ReasonFuture,
		},
		{
			name:         "timestamp going backward",
			host:         fixedHost{mono: 50 * sec, wall: wallEpoch},
			lastAccepted: 50 * sec,
			deviceTS:     49 * sec,
			duration:     frame,
			sample:       clockAt(20 * sec),
			wantTS:       20*sec - frame,
			wantDelay:    frame,
			wantReason:   ReasonBackwards,
		},
		{
			name:       "delay larger than timestamp",
			host:       fixedHost{mono: 5 * sec, wall: wallEpoch},
			deviceTS:   1 * sec,
			duration:   frame,
			sample:     clockAt(20 * sec),
			wantTS:     20*sec - frame,
			wantDelay:  frame,
			wantReason: ReasonUncorrelated,
		},
		{
			name:      "no device timestamp",
			host:      fixedHost{mono: 100 * sec},
			deviceTS:  media.None,
			duration:  frame,
			sample:    clockAt(20 * sec),
			wantTS:    20*sec - frame,
			wantDelay: frame,
		},
		{
			name:      "no device timestamp and unknown duration",
			host:      fixedHost{mono: 100 * sec},
			deviceTS:  media.None,
			duration:  media.None,
			sample:    clockAt(20 * sec),
			wantTS:    20 * sec,
			wantDelay: 0,
		},
		{
			name:      "delay clamps at zero",
			host:      fixedHost{mono: 100 * sec},
			deviceTS:  media.None,
			duration:  frame,
			sample:    clockAt(10 * ms),
			wantTS:    0,
			wantDelay: frame,
		},
		{
			name:      "no pipeline clock",
			host:      fixedHost{mono: 100 * sec},
			deviceTS:  media.None,
			duration:  frame,
			sample:    media.NoClock,
			wantTS:    media.None,
			wantDelay: frame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reasons []Reason
			ts := New(&tt.host, OnUntrusted(func(r Reason) { reasons = append(reasons, r) }))
			state := session.New()
			state.LastAccepted = tt.lastAccepted

			got := ts.Stamp(state, tt.deviceTS, tt.duration, tt.sample)

			if got.Timestamp != tt.wantTS {
				t.Errorf("Timestamp = %s, want %s", got.Timestamp, tt.wantTS)
			}
			if got.Delay != tt.wantDelay {
				t.Errorf("Delay = %s, want %s", got.Delay, tt.wantDelay)
			}
			if got.Trusted != tt.wantTrusted {
				t.Errorf("Trusted = %v, want %v", got.Trusted, tt.wantTrusted)
			}
			if tt.wantTrusted && state.LastAccepted != tt.deviceTS {
				t.Errorf("LastAccepted = %s, want %s", state.LastAccepted, tt.deviceTS)
			}

			if tt.wantReason == "" {
				if state.Untrusted || len(reasons) != 0 {
					t.Errorf("device clock marked untrusted: %v", reasons)
				}
				return
			}
			if !state.Untrusted {
				t.Error("device clock not marked untrusted")
			}
			if len(reasons) != 1 || reasons[0] != tt.wantReason {
				t.Errorf("reasons = %v, want [%s]", reasons, tt.wantReason)
			}
		})
	}
}

func TestUntrustedIsSticky(t *testing.T) {
	host := &fixedHost{wall: wallEpoch}
	calls := 0
	ts := New(host, OnUntrusted(func(Reason) { calls++ }))
	state := session.New()
	sample := media.ClockSample{Absolute: 600 * sec, Base: 500 * sec}

	host.mono = 10*sec + ms
	if r := ts.Stamp(state, 10*sec, frame, sample); !r.Trusted {
		t.Fatal("first timestamp should be trusted")
	}

	host.mono = 10*sec + 2*ms
	if r := ts.Stamp(state, 9*sec, frame, sample); r.Trusted {
		t.Fatal("backwards timestamp was trusted")
	}

	for i := range 5 {
		dts := 11*sec + media.ClockTime(i)*frame
		host.mono = dts + ms
		r := ts.Stamp(state, dts, frame, sample)
		if r.Trusted {
			t.Fatalf("frame %d: device timestamp trusted after rejection", i)
		}
		if r.Delay != frame {
			t.Errorf("frame %d: delay = %s, want fallback %s", i, r.Delay, frame)
		}
	}

	if calls != 1 {
		t.Errorf("untrusted callback called %d times, want 1", calls)
	}
}

func TestControlTime(t *testing.T) {
	var synced []media.ClockTime
	ts := New(&fixedHost{}, WithControlSync(ControlSyncFunc(func(ct media.ClockTime) {
		synced = append(synced, ct)
	})))
	state := session.New()
	sample := media.ClockSample{Absolute: 10 * sec, Base: 0}

	ts.Start(state)
	ts.Stamp(state, media.None, frame, sample)
	ts.Stamp(state, media.None, frame, sample)
	ts.Stamp(state, media.None, media.None, sample)

	want := []media.ClockTime{0, frame, 2 * frame, 10 * sec}
	if len(synced) != len(want) {
		t.Fatalf("synced %v, want %v", synced, want)
	}
	for i := range want {
		if synced[i] != want[i] {
			t.Errorf("sync %d = %s, want %s", i, synced[i], want[i])
		}
	}
}

func TestSystemHost(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))
	h := NewSystemHost(mock)

	if got := h.Realtime(); got != wallEpoch {
		t.Errorf("Realtime = %d, want %d", got, wallEpoch)
	}

	a := h.Monotonic()
	b := h.Monotonic()
	if !a.IsValid() || b < a {
		t.Errorf("Monotonic went from %s to %s", a, b)
	}
}
