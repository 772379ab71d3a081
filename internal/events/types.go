package events

// Event type constants for kelindar/event.
const (
	TypeFrameLost uint32 = iota + 1
	TypeFormatChanged
	TypeClockUntrusted
	TypeElementError
	TypeCaptureState
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// FrameLostEvent is the QoS notification posted when the device skipped
// sequence numbers.
type FrameLostEvent struct {
	Live       bool   `json:"live" example:"true" doc:"Whether the source is live"`
	PTS        string `json:"pts" example:"0:00:01.033333333" doc:"Presentation time of the frame after the gap"`
	LostFrames uint64 `json:"lost_frames" example:"2" doc:"Number of frames lost"`
	Lost       string `json:"lost" example:"0:00:00.066666666" doc:"Duration of the lost frames, none if unknown"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FrameLostEvent.
func (e FrameLostEvent) Type() uint32 { return TypeFrameLost }

// FormatChangedEvent is published when a format was agreed or
// renegotiated.
type FormatChangedEvent struct {
	Format    string `json:"format" example:"video/x-raw, format=(string)NV12, width=(int)1280, height=(int)720, framerate=(fraction)30/1" doc:"Agreed format"`
	Live      bool   `json:"live" example:"false" doc:"Whether the change happened while capturing"`
	Adjust    uint64 `json:"renegotiation_adjust" example:"0" doc:"Offset correction applied to device sequence numbers"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FormatChangedEvent.
func (e FormatChangedEvent) Type() uint32 { return TypeFormatChanged }

// ClockUntrustedEvent is published once per session when device
// timestamps stop being used.
type ClockUntrustedEvent struct {
	Reason    string `json:"reason" example:"backwards" doc:"Why the device clock was rejected"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ClockUntrustedEvent.
func (e ClockUntrustedEvent) Type() uint32 { return TypeClockUntrusted }

// ElementErrorEvent reports a fatal capture error.
type ElementErrorEvent struct {
	Code      string `json:"code" example:"DRIVER_PROTOCOL_VIOLATION" doc:"Error code"`
	Message   string `json:"message" example:"driver returned an empty buffer" doc:"Error message"`
	Error     string `json:"error,omitempty" doc:"Detailed error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ElementErrorEvent.
func (e ElementErrorEvent) Type() uint32 { return TypeElementError }

// CaptureStateEvent is published when capture starts or stops.
type CaptureStateEvent struct {
	URI       string `json:"uri" example:"v4l2:///dev/video0" doc:"Source URI"`
	State     string `json:"state" example:"started" doc:"started or stopped"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CaptureStateEvent.
func (e CaptureStateEvent) Type() uint32 { return TypeCaptureState }
