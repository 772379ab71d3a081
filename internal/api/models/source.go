package models

// SourceData describes the capture session and its counters.
type SourceData struct {
	Name                string `json:"name" example:"v4l2:///dev/video0" doc:"Source name"`
	Open                bool   `json:"open" example:"true" doc:"Whether the device is open"`
	Started             bool   `json:"started" example:"true" doc:"Whether a capture session is running"`
	Format              string `json:"format,omitempty" example:"video/x-raw, format=(string)NV12, width=(int)1280, height=(int)720, framerate=(fraction)30/1" doc:"Agreed format, empty before negotiation"`
	Offset              uint64 `json:"offset" example:"1042" doc:"Next expected frame offset"`
	RenegotiationAdjust uint64 `json:"renegotiation_adjust" example:"0" doc:"Offset correction applied to device sequence numbers"`
	PendingFormatChange bool   `json:"pending_format_change" example:"false" doc:"Whether the next frame starts a new format"`
	ClockUntrusted      bool   `json:"clock_untrusted" example:"false" doc:"Whether device timestamps were rejected this session"`
	Frames              uint64 `json:"frames" example:"1040" doc:"Frames produced"`
	LostFrames          uint64 `json:"lost_frames" example:"2" doc:"Frames reported lost"`
	CorruptedBuffers    uint64 `json:"corrupted_buffers" example:"0" doc:"Buffers dropped because the driver flagged them"`
	Renegotiations      uint64 `json:"renegotiations" example:"1" doc:"Pool reconfigurations"`
}

type SourceResponse struct {
	Body SourceData
}

// CapsData holds capability sets in their text form.
type CapsData struct {
	Caps string `json:"caps" example:"video/x-raw, format=(string){ NV12, YUY2 }, width=(int)[ 1, 32768 ]" doc:"Formats the source can produce"`
	Peer string `json:"peer,omitempty" example:"video/x-raw, width=(int)1280" doc:"Formats the downstream peer accepts, empty when unset"`
}

type CapsResponse struct {
	Body CapsData
}

// LatencyData is the answer to a latency query.
type LatencyData struct {
	Live  bool   `json:"live" example:"true" doc:"Whether the source is live"`
	MinNS int64  `json:"min_ns" example:"33333333" doc:"Minimum latency in nanoseconds"`
	MaxNS int64  `json:"max_ns" example:"133333332" doc:"Maximum latency in nanoseconds, -1 when unbounded"`
	Min   string `json:"min" example:"0:00:00.033333333" doc:"Minimum latency"`
	Max   string `json:"max" example:"0:00:00.133333332" doc:"Maximum latency, none when unbounded"`
}

type LatencyResponse struct {
	Body LatencyData
}

// PeerRequestData sets the downstream caps.
type PeerRequestData struct {
	Caps string `json:"caps" example:"video/x-raw, format=NV12, width=1280, height=720" doc:"Caps accepted downstream, empty to clear"`
}

type PeerRequest struct {
	Body PeerRequestData
}

type PeerResponse struct {
	Body CapsData
}
