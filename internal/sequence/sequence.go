// Package sequence assigns public offsets to captured frames and detects
// frames lost by the device.
package sequence

import (
	"log/slog"

	"github.com/smazurov/ispsrc/internal/logging"
	"github.com/smazurov/ispsrc/internal/media"
	"github.com/smazurov/ispsrc/internal/session"
)

// Tracker keeps the public offset of a session continuous.
type Tracker struct {
	sink   media.QoSSink
	logger *slog.Logger
}

// New returns a Tracker posting loss notifications to sink. sink may be
// nil.
func New(sink media.QoSSink) *Tracker {
	return &Tracker{
		sink:   sink,
		logger: logging.GetLogger("sequence"),
	}
}

// Assign sets the offsets of f. Frames without device sequence numbers get
// consecutive synthesized offsets. Device sequence numbers are shifted by
// the renegotiation adjustment and checked for gaps; a gap is reported to
// the sink as a live QoS message stamped with timestamp. Assign returns the
// number of frames lost before f.
func (t *Tracker) Assign(state *session.State, f *media.Frame, timestamp, duration media.ClockTime) uint64 {
	if !f.OffsetsValid() {
		f.Offset = state.Offset
		state.Offset++
		f.OffsetEnd = state.Offset
		return 0
	}

	f.Offset += state.RenegotiationAdjust
	f.OffsetEnd += state.RenegotiationAdjust

	var lost uint64
	if state.Offset != 0 && f.Offset != state.Offset+1 {
		if f.Offset <= state.Offset {
			t.logger.Warn("Sequence went backwards", "offset", f.Offset, "previous", state.Offset)
		} else {
			lost = f.Offset - state.Offset - 1
			t.report(lost, timestamp, duration)
		}
	}
	state.Offset = f.Offset
	return lost
}

func (t *Tracker) report(lost uint64, timestamp, duration media.ClockTime) {
	lostDuration := media.None
	if duration.IsValid() {
		lostDuration = media.ClockTime(lost) * duration
	}
	t.logger.Warn("Lost frames detected", "count", lost, "ts", timestamp)

	if t.sink != nil {
		t.sink.PostQoS(media.QoS{
			Live:       true,
			Timestamp:  timestamp,
			Lost:       lostDuration,
			LostFrames: lost,
		})
	}
}

// FormatChanged prepares for a live format change: the device restarts its
// sequence at zero, so the next device sequence number maps to Offset+1.
func (t *Tracker) FormatChanged(state *session.State) {
	state.RenegotiationAdjust = state.Offset + 1
	t.logger.Debug("Renegotiation adjust", "adjust", state.RenegotiationAdjust)
}
