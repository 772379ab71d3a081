//go:build linux

// Package v4l2dev is the V4L2 capture backend: format enumeration and
// configuration on a device node, and a memory-mapped buffer pool.
package v4l2dev

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/smazurov/ispsrc/internal/allocation"
	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/device"
	"github.com/smazurov/ispsrc/internal/logging"
	"github.com/smazurov/ispsrc/pkg/linuxav/v4l2"
)

// DefaultPath is the device opened when none is given.
const DefaultPath = "/dev/video0"

// DefaultBuffers is the number of buffers requested from the driver.
const DefaultBuffers = 4

// Device is a V4L2 capture device.
type Device struct {
	path    string
	buffers uint32
	logger  *slog.Logger

	mu        sync.Mutex
	dev       *v4l2.Device
	wake      int // eventfd used to interrupt poll
	format    caps.Descriptor
	hasFormat bool
	active    bool
	pool      *Pool
}

// Option configures a Device.
type Option func(*Device)

// WithBuffers sets the number of buffers to request.
func WithBuffers(n uint32) Option {
	return func(d *Device) {
		d.buffers = n
	}
}

// New returns a closed device for path. An empty path means DefaultPath.
func New(path string, opts ...Option) *Device {
	if path == "" {
		path = DefaultPath
	}
	d := &Device{
		path:    path,
		buffers: DefaultBuffers,
		wake:    -1,
		logger:  logging.GetLogger("device").With("device", path),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pool = &Pool{dev: d}
	return d
}

// Path returns the device node path.
func (d *Device) Path() string {
	return d.path
}

func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev != nil {
		return nil
	}

	dev, err := v4l2.Open(d.path)
	if err != nil {
		return err
	}
	info, err := dev.Info()
	if err != nil {
		dev.Close()
		return err
	}
	if info.Caps&v4l2.CapVideoCapture == 0 || info.Caps&v4l2.CapStreaming == 0 {
		dev.Close()
		return fmt.Errorf("%s is not a streaming capture device", d.path)
	}

	wake, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		dev.Close()
		return fmt.Errorf("eventfd: %w", err)
	}

	d.dev = dev
	d.wake = wake
	d.logger.Info("Device opened", "card", info.DeviceName, "driver", info.Driver)
	return nil
}

func (d *Device) Close() error {
	stopErr := d.Stop()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return stopErr
	}
	err := multierr.Combine(stopErr, d.dev.Close(), unix.Close(d.wake))
	d.dev = nil
	d.wake = -1
	d.hasFormat = false
	return err
}

func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dev != nil
}

func (d *Device) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *Device) Handle() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return -1
	}
	return d.dev.Fd()
}

func (d *Device) Pool() device.Pool {
	return d.pool
}

func (d *Device) Format() (caps.Descriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format, d.hasFormat && d.active
}

// Caps enumerates the formats, sizes and rates of the device.
func (d *Device) Caps() (caps.Set, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return nil, device.ErrNotOpen
	}
	return probeCaps(d.dev, d.logger)
}

// TryFormat checks format with VIDIOC_TRY_FMT.
func (d *Device) TryFormat(format caps.Descriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return device.ErrNotOpen
	}
	want, err := toPix(format)
	if err != nil {
		return err
	}
	got, err := d.dev.TryFormat(want)
	if err != nil {
		return err
	}
	return matchPix(want, got)
}

// SetFormat applies format and allocates the buffers. The pool is
// activated separately.
func (d *Device) SetFormat(format caps.Descriptor) error {
	if !format.IsFixed() {
		return fmt.Errorf("format not fixed: %s", format)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return device.ErrNotOpen
	}

	want, err := toPix(format)
	if err != nil {
		return err
	}
	got, err := d.dev.SetFormat(want)
	if err != nil {
		return err
	}
	if err := matchPix(want, got); err != nil {
		return err
	}

	if fr, ok := format.FrameRate.Fixed(); ok && fr.Num > 0 && fr.Den > 0 {
		applied, err := applyFrameRate(d.dev, fr)
		if err != nil {
			return err
		}
		if applied != fr {
			d.logger.Warn("Driver frame rate unknown", "requested", fr)
			format.FrameRate = caps.FractionFixed(applied)
		}
	}

	if err := d.pool.allocate(d.dev, d.buffers, got.SizeImage); err != nil {
		return err
	}

	d.format = format
	d.hasFormat = true
	d.active = true
	d.logger.Info("Format set", "format", format, "sizeimage", got.SizeImage, "buffers", len(d.pool.mem))
	return nil
}

// Stop stops streaming and frees the buffers.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return nil
	}
	d.active = false
	return d.pool.release()
}

// Unlock wakes a blocked Process with ErrFlushing until UnlockStop.
func (d *Device) Unlock() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.wake < 0 {
		return nil
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(d.wake, buf[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("wake poll: %w", err)
	}
	return nil
}

// UnlockStop drains the wake-up counter.
func (d *Device) UnlockStop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.wake < 0 {
		return nil
	}
	var buf [8]byte
	if _, err := unix.Read(d.wake, buf[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("drain wake: %w", err)
	}
	return nil
}

// DecideAllocation proposes the driver's buffer count and frame size.
func (d *Device) DecideAllocation(q *allocation.Query) error {
	if len(q.Pools) == 0 {
		return errors.New("no pool proposed")
	}
	p := &q.Pools[0]
	p.Size = d.pool.FrameSize()
	p.Min = d.pool.Depth()
	p.Max = d.pool.Depth()
	return nil
}

var (
	_ device.Device      = (*Device)(nil)
	_ allocation.Decider = (*Device)(nil)
)

// Resolver picks pixel formats in the order the backend prefers them.
func (d *Device) Resolver() caps.Resolver {
	return Resolver()
}
