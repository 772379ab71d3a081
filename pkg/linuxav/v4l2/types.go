//go:build linux

package v4l2

import "time"

// DeviceInfo contains information about a V4L2 device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	Driver     string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Caps       uint32
}

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat uint32
	FormatName  string
	Emulated    bool
	Compressed  bool
}

// FrameSize is one frame size entry. Stepwise entries describe a range;
// discrete ones have Min == Max and no step.
type FrameSize struct {
	Discrete   bool
	MinWidth   uint32
	MaxWidth   uint32
	StepWidth  uint32
	MinHeight  uint32
	MaxHeight  uint32
	StepHeight uint32
}

// Size returns the width and height of a discrete entry.
func (s FrameSize) Size() (width, height uint32) {
	return s.MinWidth, s.MinHeight
}

// Fract is a V4L2 fraction. Frame intervals are seconds per frame, so a
// 30 fps stream has the interval 1/30.
type Fract struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the frame rate of a frame interval.
func (f Fract) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

// FrameInterval is one frame interval entry. For stepwise entries Min is
// the shortest interval, i.e. the highest frame rate.
type FrameInterval struct {
	Discrete bool
	Min      Fract
	Max      Fract
	Step     Fract
}

// PixFormat is the single-planar capture format.
type PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
}

// Buffer is a dequeued capture buffer.
type Buffer struct {
	Index     uint32
	BytesUsed uint32
	Flags     uint32
	Field     uint32
	Sequence  uint32
	Timestamp time.Duration
}

// Capability flags.
const (
	CapVideoCapture = 0x00000001
	CapStreaming    = 0x04000000
	CapDeviceCaps   = 0x80000000
)

// Format description flags.
const (
	FmtFlagCompressed = 0x0001
	FmtFlagEmulated   = 0x0002
)

// Buffer flags.
const (
	BufFlagMapped             = 0x00000001
	BufFlagQueued             = 0x00000002
	BufFlagDone               = 0x00000004
	BufFlagError              = 0x00000040
	BufFlagLast               = 0x00100000
	BufFlagTimestampMask      = 0x0000e000
	BufFlagTimestampMonotonic = 0x00002000
)

// Field orders.
const (
	FieldAny        = 0
	FieldNone       = 1
	FieldInterlaced = 4
)

// Pixel formats.
const (
	PixFmtNV12   = 0x3231564E // 'NV12'
	PixFmtNV21   = 0x3132564E // 'NV21'
	PixFmtNV16   = 0x3631564E // 'NV16'
	PixFmtYUV420 = 0x32315559 // 'YU12'
	PixFmtYVU420 = 0x32315659 // 'YV12'
	PixFmtYUYV   = 0x56595559 // 'YUYV'
	PixFmtUYVY   = 0x59565955 // 'UYVY'
	PixFmtRGB24  = 0x33424752 // 'RGB3'
	PixFmtBGR24  = 0x33524742 // 'BGR3'
	PixFmtGrey   = 0x59455247 // 'GREY'
	PixFmtMJPEG  = 0x47504A4D // 'MJPG'
	PixFmtH264   = 0x34363248 // 'H264'
	PixFmtHEVC   = 0x43564548 // 'HEVC'
)

const (
	bufTypeVideoCapture = 1
	memoryMmap          = 1

	frmsizeTypeDiscrete   = 1
	frmsizeTypeContinuous = 2
	frmsizeTypeStepwise   = 3

	frmivalTypeDiscrete   = 1
	frmivalTypeContinuous = 2
	frmivalTypeStepwise   = 3
)
