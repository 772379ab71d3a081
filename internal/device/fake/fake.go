// Package fake is an in-memory capture backend. Tests script it frame by
// frame; the sim:// source uses its frame generator.
package fake

import (
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/device"
)

// DefaultCaps is what a fake device offers unless configured otherwise.
var DefaultCaps = caps.MustParse(
	"video/x-raw, format={ NV12, YUY2 }, width=[ 16, 1920 ], height=[ 16, 1080 ], " +
		"framerate={ 30/1, 60/1 }, interlace-mode=progressive")

// Device is a fake device.Device. All methods are safe for concurrent use.
type Device struct {
	mu        sync.Mutex
	caps      caps.Set
	open      bool
	active    bool
	format    caps.Descriptor
	hasFormat bool
	reject    func(caps.Descriptor) error
	rate      *caps.Fraction
	calls     []string
	pool      *Pool
}

// Option configures a Device.
type Option func(*Device)

// WithCaps sets the formats the device offers.
func WithCaps(s caps.Set) Option {
	return func(d *Device) {
		d.caps = s
	}
}

// WithReject makes TryFormat and SetFormat fail whenever fn returns an
// error.
func WithReject(fn func(caps.Descriptor) error) Option {
	return func(d *Device) {
		d.reject = fn
	}
}

// WithDepth sets the pool depth reported for latency.
func WithDepth(n int) Option {
	return func(d *Device) {
		d.pool.depth = n
	}
}

// WithGenerator makes the pool produce frames on its own at the
// configured frame rate, timed by clk, whenever no scripted step is
// queued.
func WithGenerator(clk clock.Clock) Option {
	return func(d *Device) {
		d.pool.gen = clk
	}
}

// WithActivateError makes Pool.SetActive(true) fail with err.
func WithActivateError(err error) Option {
	return func(d *Device) {
		d.pool.activateErr = err
	}
}

// WithDriverRate makes SetFormat record rate instead of the requested
// frame rate, like a driver that runs at its own interval.
func WithDriverRate(rate caps.Fraction) Option {
	return func(d *Device) {
		d.rate = &rate
	}
}

// New returns a closed fake device.
func New(opts ...Option) *Device {
	d := &Device{caps: DefaultCaps}
	d.pool = newPool(d)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Calls returns the configuration calls made so far, in order.
func (d *Device) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *Device) record(format string, args ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	d.record("open")
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	d.open = false
	d.active = false
	d.hasFormat = false
	d.record("close")
	d.mu.Unlock()
	return d.pool.Stop()
}

func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *Device) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *Device) Caps() (caps.Set, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil, device.ErrNotOpen
	}
	return d.caps.Clone(), nil
}

func (d *Device) check(format caps.Descriptor) error {
	if !d.open {
		return device.ErrNotOpen
	}
	if !format.IsFixed() {
		return fmt.Errorf("format not fixed: %s", format)
	}
	if !caps.CanIntersect(caps.Set{format}, d.caps) {
		return fmt.Errorf("format not supported: %s", format)
	}
	if d.reject != nil {
		return d.reject(format)
	}
	return nil
}

func (d *Device) TryFormat(format caps.Descriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("try %s", format)
	return d.check(format)
}

func (d *Device) SetFormat(format caps.Descriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("set %s", format)
	if err := d.check(format); err != nil {
		return err
	}
	if d.rate != nil {
		format.FrameRate = caps.FractionFixed(*d.rate)
	}
	d.format = format
	d.hasFormat = true
	d.active = true
	return nil
}

func (d *Device) Format() (caps.Descriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format, d.hasFormat && d.active
}

func (d *Device) Stop() error {
	d.mu.Lock()
	d.active = false
	d.record("stop")
	d.mu.Unlock()
	return d.pool.Stop()
}

func (d *Device) Unlock() error {
	d.pool.flush(true)
	return nil
}

func (d *Device) UnlockStop() error {
	d.pool.flush(false)
	return nil
}

func (d *Device) Pool() device.Pool {
	return d.pool
}

// Handle returns a placeholder handle while the device is open.
func (d *Device) Handle() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return -1
	}
	return 3
}

// FakePool returns the pool with its scripting methods exposed.
func (d *Device) FakePool() *Pool {
	return d.pool
}
