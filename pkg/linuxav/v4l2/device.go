//go:build linux

package v4l2

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Device is an open V4L2 device node. It is opened non-blocking; callers
// wait for frames with poll on Fd.
type Device struct {
	path string
	fd   int
}

// Open opens the device node at path.
func Open(path string) (*Device, error) {
	fd, err := openFd(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{path: path, fd: fd}, nil
}

// Path returns the device node path.
func (d *Device) Path() string {
	return d.path
}

// Fd returns the file descriptor.
func (d *Device) Fd() int {
	return d.fd
}

// Close closes the device.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

func (d *Device) querycap() (*v4l2Capability, error) {
	c := &v4l2Capability{}
	if err := ioctl(d.fd, vidiocQuerycap, unsafe.Pointer(c)); err != nil {
		return nil, err
	}
	return c, nil
}

// Info returns the device name, driver and effective capabilities.
func (d *Device) Info() (DeviceInfo, error) {
	c, err := d.querycap()
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("query capabilities: %w", err)
	}
	caps := c.capabilities
	if caps&CapDeviceCaps != 0 {
		caps = c.deviceCaps
	}
	return DeviceInfo{
		DevicePath: d.path,
		DeviceName: cstr(c.card[:]),
		Driver:     cstr(c.driver[:]),
		Caps:       caps,
	}, nil
}

// Format returns the current capture format.
func (d *Device) Format() (PixFormat, error) {
	f := v4l2Format{typ: bufTypeVideoCapture}
	if err := ioctl(d.fd, vidiocGFmt, unsafe.Pointer(&f)); err != nil {
		return PixFormat{}, fmt.Errorf("VIDIOC_G_FMT: %w", err)
	}
	return fromPix(f.pix()), nil
}

// SetFormat applies p and returns the format the driver settled on,
// which may differ from p.
func (d *Device) SetFormat(p PixFormat) (PixFormat, error) {
	return d.format(vidiocSFmt, "VIDIOC_S_FMT", p)
}

// TryFormat returns the format the driver would settle on for p without
// changing any state.
func (d *Device) TryFormat(p PixFormat) (PixFormat, error) {
	return d.format(vidiocTryFmt, "VIDIOC_TRY_FMT", p)
}

func (d *Device) format(req uint, name string, p PixFormat) (PixFormat, error) {
	f := v4l2Format{typ: bufTypeVideoCapture}
	pix := f.pix()
	pix.width = p.Width
	pix.height = p.Height
	pix.pixelformat = p.PixelFormat
	pix.field = p.Field
	pix.bytesperline = p.BytesPerLine
	if err := ioctl(d.fd, req, unsafe.Pointer(&f)); err != nil {
		return PixFormat{}, fmt.Errorf("%s: %w", name, err)
	}
	return fromPix(pix), nil
}

func fromPix(pix *v4l2PixFormat) PixFormat {
	return PixFormat{
		Width:        pix.width,
		Height:       pix.height,
		PixelFormat:  pix.pixelformat,
		Field:        pix.field,
		BytesPerLine: pix.bytesperline,
		SizeImage:    pix.sizeimage,
		Colorspace:   pix.colorspace,
	}
}

// FrameInterval returns the current time per frame.
func (d *Device) FrameInterval() (Fract, error) {
	p := v4l2Streamparm{typ: bufTypeVideoCapture}
	if err := ioctl(d.fd, vidiocGParm, unsafe.Pointer(&p)); err != nil {
		return Fract{}, fmt.Errorf("VIDIOC_G_PARM: %w", err)
	}
	return fract(p.capture().timeperframe), nil
}

// SetFrameInterval requests interval and returns the one the driver
// applied.
func (d *Device) SetFrameInterval(interval Fract) (Fract, error) {
	p := v4l2Streamparm{typ: bufTypeVideoCapture}
	p.capture().timeperframe = v4l2Fract{numerator: interval.Numerator, denominator: interval.Denominator}
	if err := ioctl(d.fd, vidiocSParm, unsafe.Pointer(&p)); err != nil {
		return Fract{}, fmt.Errorf("VIDIOC_S_PARM: %w", err)
	}
	return fract(p.capture().timeperframe), nil
}

// RequestBuffers allocates count memory-mapped buffers and returns how many
// the driver granted. A count of zero frees all buffers.
func (d *Device) RequestBuffers(count uint32) (uint32, error) {
	r := v4l2Requestbuffers{count: count, typ: bufTypeVideoCapture, memory: memoryMmap}
	if err := ioctl(d.fd, vidiocReqbufs, unsafe.Pointer(&r)); err != nil {
		return 0, fmt.Errorf("VIDIOC_REQBUFS: %w", err)
	}
	return r.count, nil
}

// MapBuffer maps buffer index into memory. Release it with unix.Munmap.
func (d *Device) MapBuffer(index uint32) ([]byte, error) {
	b := v4l2Buffer{index: index, typ: bufTypeVideoCapture, memory: memoryMmap}
	if err := ioctl(d.fd, vidiocQuerybuf, unsafe.Pointer(&b)); err != nil {
		return nil, fmt.Errorf("VIDIOC_QUERYBUF %d: %w", index, err)
	}
	mem, err := unix.Mmap(d.fd, b.offset(), int(b.length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap buffer %d: %w", index, err)
	}
	return mem, nil
}

// QueueBuffer hands buffer index to the driver for filling.
func (d *Device) QueueBuffer(index uint32) error {
	b := v4l2Buffer{index: index, typ: bufTypeVideoCapture, memory: memoryMmap}
	if err := ioctl(d.fd, vidiocQbuf, unsafe.Pointer(&b)); err != nil {
		return fmt.Errorf("VIDIOC_QBUF %d: %w", index, err)
	}
	return nil
}

// DequeueBuffer takes a filled buffer from the driver. It returns an error
// wrapping unix.EAGAIN when no buffer is ready.
func (d *Device) DequeueBuffer() (Buffer, error) {
	b := v4l2Buffer{typ: bufTypeVideoCapture, memory: memoryMmap}
	if err := ioctl(d.fd, vidiocDqbuf, unsafe.Pointer(&b)); err != nil {
		return Buffer{}, fmt.Errorf("VIDIOC_DQBUF: %w", err)
	}
	return Buffer{
		Index:     b.index,
		BytesUsed: b.bytesused,
		Flags:     b.flags,
		Field:     b.field,
		Sequence:  b.sequence,
		Timestamp: b.timestamp.duration(),
	}, nil
}

// StreamOn starts capture.
func (d *Device) StreamOn() error {
	typ := uint32(bufTypeVideoCapture)
	if err := ioctl(d.fd, vidiocStreamon, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("VIDIOC_STREAMON: %w", err)
	}
	return nil
}

// StreamOff stops capture and returns all buffers to userspace.
func (d *Device) StreamOff() error {
	typ := uint32(bufTypeVideoCapture)
	if err := ioctl(d.fd, vidiocStreamoff, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("VIDIOC_STREAMOFF: %w", err)
	}
	return nil
}
