package media

import "math"

// OffsetNone marks a frame offset that was not set by the device.
const OffsetNone uint64 = math.MaxUint64

// Frame is one captured video buffer with its timing and continuity
// metadata.
type Frame struct {
	Payload []byte

	// Timestamp holds the device-reported capture time when the frame
	// leaves the pool, and the final presentation time once stamped.
	Timestamp ClockTime
	Duration  ClockTime

	// Offset and OffsetEnd are the frame's sequence range.
	Offset    uint64
	OffsetEnd uint64
}

// NewFrame returns a frame with no timing or sequence information.
func NewFrame(payload []byte) *Frame {
	return &Frame{
		Payload:   payload,
		Timestamp: None,
		Duration:  None,
		Offset:    OffsetNone,
		OffsetEnd: OffsetNone,
	}
}

// OffsetsValid reports whether both sequence offsets were provided.
func (f *Frame) OffsetsValid() bool {
	return f.Offset != OffsetNone && f.OffsetEnd != OffsetNone
}

// QoS is a quality-of-service notification posted when frames were lost.
type QoS struct {
	Live       bool
	Timestamp  ClockTime
	Lost       ClockTime // total duration of the lost frames, None if unknown
	LostFrames uint64
}

// QoSSink accepts quality-of-service notifications.
type QoSSink interface {
	PostQoS(msg QoS)
}

// QoSSinkFunc adapts a function to QoSSink.
type QoSSinkFunc func(msg QoS)

// PostQoS calls f(msg).
func (f QoSSinkFunc) PostQoS(msg QoS) {
	f(msg)
}
