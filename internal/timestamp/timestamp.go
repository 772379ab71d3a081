// Package timestamp turns device capture times into presentation times on
// the pipeline clock. Device timestamps are validated per frame; a single
// bad one disables them for the rest of the session.
package timestamp

import (
	"log/slog"

	"github.com/smazurov/ispsrc/internal/logging"
	"github.com/smazurov/ispsrc/internal/media"
	"github.com/smazurov/ispsrc/internal/session"
)

// WallClockThreshold is how far a device timestamp may lag the monotonic
// clock before it is compared against wall-clock time instead.
const WallClockThreshold = 10 * media.Second

// maxPasses bounds the validation loop: after a rejection the second pass
// always takes the fallback path.
const maxPasses = 2

// Reason says why device timestamps stopped being trusted.
type Reason string

const (
	ReasonFuture       Reason = "timestamp in the future"
	ReasonBackwards    Reason = "timestamp going backward"
	ReasonUncorrelated Reason = "timestamp does not correlate with any clock"
)

// ControlSync receives the running time up to which time-varying
// parameters must be applied before the next frame.
type ControlSync interface {
	SyncValues(t media.ClockTime)
}

// ControlSyncFunc adapts a function to ControlSync.
type ControlSyncFunc func(t media.ClockTime)

// SyncValues calls f(t).
func (f ControlSyncFunc) SyncValues(t media.ClockTime) {
	f(t)
}

// Result is the timing attached to a frame.
type Result struct {
	Timestamp media.ClockTime // None when no pipeline clock is attached
	Duration  media.ClockTime
	Delay     media.ClockTime
	Trusted   bool // the device timestamp was used
}

// Timestamper computes presentation timestamps.
type Timestamper struct {
	host        HostClock
	sync        ControlSync
	onUntrusted func(Reason)
	logger      *slog.Logger
}

// Option configures a Timestamper.
type Option func(*Timestamper)

// WithControlSync sets the receiver of control-time updates.
func WithControlSync(s ControlSync) Option {
	return func(t *Timestamper) {
		t.sync = s
	}
}

// OnUntrusted registers fn to be called once per session when device
// timestamps are rejected.
func OnUntrusted(fn func(Reason)) Option {
	return func(t *Timestamper) {
		t.onUntrusted = fn
	}
}

// New returns a Timestamper reading host time from host.
func New(host HostClock, opts ...Option) *Timestamper {
	t := &Timestamper{
		host:   host,
		logger: logging.GetLogger("timestamp"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start activates the control values for the first frame.
func (t *Timestamper) Start(state *session.State) {
	state.ControlTime = 0
	t.syncValues(0)
}

// Stamp computes the presentation time of a frame captured at deviceTS
// (None if the device gave none) with the configured frame duration,
// given a pipeline clock sample. It updates the trust state and the
// control-time cursor in state.
func (t *Timestamper) Stamp(state *session.State, deviceTS, duration media.ClockTime, sample media.ClockSample) Result {
	res := Result{Duration: duration}

	for range maxPasses {
		if state.Untrusted || !deviceTS.IsValid() {
			break
		}

		now := t.host.Monotonic()
		if deviceTS > now || now-deviceTS > WallClockThreshold {
			now = t.host.Realtime()
		}

		var reason Reason
		switch {
		case deviceTS > now:
			reason = ReasonFuture
		case state.LastAccepted > deviceTS:
			reason = ReasonBackwards
		case now-deviceTS > deviceTS:
			reason = ReasonUncorrelated
		}
		if reason != "" {
			state.Untrusted = true
			t.logger.Warn("Ignoring driver timestamps", "reason", string(reason), "ts", deviceTS, "now", now)
			if t.onUntrusted != nil {
				t.onUntrusted(reason)
			}
			continue
		}

		state.LastAccepted = deviceTS
		res.Delay = now - deviceTS
		res.Trusted = true
		t.logger.Debug("Device timestamp accepted", "ts", deviceTS, "now", now, "delay", res.Delay)
		break
	}

	if !res.Trusted {
		// One frame of latency is assumed.
		res.Delay = 0
		if duration.IsValid() {
			res.Delay = duration
		}
	}

	res.Timestamp = media.None
	if sample.Valid() {
		running := sample.RunningTime()
		res.Timestamp = 0
		if running > res.Delay {
			res.Timestamp = running - res.Delay
		}
	}

	if duration.IsValid() {
		state.ControlTime += duration
	} else {
		state.ControlTime = res.Timestamp
	}
	t.syncValues(state.ControlTime)

	t.logger.Debug("Stamped frame", "sync", state.ControlTime, "ts", res.Timestamp)
	return res
}

func (t *Timestamper) syncValues(ct media.ClockTime) {
	if t.sync != nil {
		t.sync.SyncValues(ct)
	}
}
