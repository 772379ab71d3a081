// Package session holds the per-capture-session state shared by the
// timestamper and the sequence tracker. A State is created when capture
// starts, passed by pointer into every per-frame call, and reset when
// capture restarts.
package session

import "github.com/smazurov/ispsrc/internal/media"

// Negotiation tracks sequence continuity across live format changes.
type Negotiation struct {
	// PendingFormatChange is set when a live renegotiation was accepted by
	// try-format and the new format still has to be applied at the next
	// allocation decision.
	PendingFormatChange bool

	// RenegotiationAdjust is added to device sequence numbers, which
	// restart at zero after the device is reconfigured.
	RenegotiationAdjust uint64

	// Offset is the last public offset handed out.
	Offset uint64
}

// Timestamp tracks trust in the device clock.
type Timestamp struct {
	// Untrusted is one-way for the lifetime of the session.
	Untrusted bool

	// LastAccepted is the last device timestamp that passed validation.
	LastAccepted media.ClockTime
}

// State is the mutable state of one capture session.
type State struct {
	Negotiation
	Timestamp

	// ControlTime is the running time up to which time-varying
	// parameters have been synchronized.
	ControlTime media.ClockTime
}

// New returns a freshly reset state.
func New() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset returns s to the state of a capture session that has not yet
// produced any frame.
func (s *State) Reset() {
	*s = State{}
}

// ResetContinuity forgets the last accepted device timestamp. Called when
// blocking pulls are re-armed, since the gap may be arbitrarily long.
func (s *State) ResetContinuity() {
	s.LastAccepted = 0
}
