// Package source is the live capture element. It negotiates a format
// with the downstream peer, configures the device, decides how its buffer
// pool is handled and stamps every produced frame with a presentation
// time and a continuous offset.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/smazurov/ispsrc/internal/allocation"
	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/device"
	"github.com/smazurov/ispsrc/internal/device/v4l2dev"
	"github.com/smazurov/ispsrc/internal/events"
	"github.com/smazurov/ispsrc/internal/logging"
	"github.com/smazurov/ispsrc/internal/media"
	"github.com/smazurov/ispsrc/internal/metrics"
	"github.com/smazurov/ispsrc/internal/negotiate"
	"github.com/smazurov/ispsrc/internal/sequence"
	"github.com/smazurov/ispsrc/internal/session"
	"github.com/smazurov/ispsrc/internal/timestamp"
)

// resolverProvider is implemented by backends that pick enumerated
// fields themselves.
type resolverProvider interface {
	Resolver() caps.Resolver
}

// Source is a live capture source on one device.
type Source struct {
	name     string
	dev      device.Device
	template caps.Set
	bus      *events.Bus
	sink     media.QoSSink
	host     timestamp.HostClock
	target   *caps.Target
	hook     device.PreConfigureHook
	logger   *slog.Logger

	negotiator  *negotiate.Negotiator
	coordinator *allocation.Coordinator
	stamper     *timestamp.Timestamper
	tracker     *sequence.Tracker

	// mu guards the session state and the agreed format. Only the
	// streaming goroutine mutates them; readers take a snapshot.
	mu      sync.Mutex
	state   *session.State
	format  caps.Descriptor
	agreed  bool
	started bool

	clockMu     sync.Mutex
	clock       media.PipelineClock
	base        media.ClockTime
	baseOnStart bool

	// peer and reconfigure are set from any goroutine and consumed by
	// the streaming goroutine at the top of Create.
	peerMu      sync.Mutex
	peer        caps.Set
	reconfigure bool

	flushing atomic.Bool

	waitRemoved func(ctx context.Context, path string) error
}

// Option configures a Source.
type Option func(*Source)

// WithName sets the name used in logs, metrics and events.
func WithName(name string) Option {
	return func(s *Source) {
		s.name = name
	}
}

// WithTemplate sets the formats reported while the device is closed.
func WithTemplate(t caps.Set) Option {
	return func(s *Source) {
		s.template = t
	}
}

// WithBus publishes events and QoS notifications on bus.
func WithBus(bus *events.Bus) Option {
	return func(s *Source) {
		s.bus = bus
	}
}

// WithQoSSink posts loss notifications to sink in addition to the bus.
func WithQoSSink(sink media.QoSSink) Option {
	return func(s *Source) {
		s.sink = sink
	}
}

// WithHostClock replaces the clocks device timestamps are checked against.
func WithHostClock(h timestamp.HostClock) Option {
	return func(s *Source) {
		s.host = h
	}
}

// WithTarget steers fixation towards t.
func WithTarget(t caps.Target) Option {
	return func(s *Source) {
		s.target = &t
	}
}

// WithPreConfigure runs hook right before the device is configured.
func WithPreConfigure(hook device.PreConfigureHook) Option {
	return func(s *Source) {
		s.hook = hook
	}
}

// WithClock attaches a pipeline clock with its base time.
func WithClock(clock media.PipelineClock, base media.ClockTime) Option {
	return func(s *Source) {
		s.clock = clock
		s.base = base
		s.baseOnStart = false
	}
}

// WithStartClock attaches a pipeline clock whose base time is sampled at
// every Start, so frame timestamps count from the start of capture.
func WithStartClock(clock media.PipelineClock) Option {
	return func(s *Source) {
		s.clock = clock
		s.baseOnStart = true
	}
}

// New returns a source capturing from dev.
func New(dev device.Device, opts ...Option) *Source {
	s := &Source{
		name:     "source",
		dev:      dev,
		template: v4l2dev.TemplateCaps(),
		host:     timestamp.NewSystemHost(nil),
		state:    session.New(),
		base:     media.None,

		waitRemoved: watchNode,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.GetLogger("source").With("source", s.name)

	var nopts []negotiate.Option
	if s.target != nil {
		nopts = append(nopts, negotiate.WithTarget(*s.target))
	}
	if rp, ok := dev.(resolverProvider); ok {
		nopts = append(nopts, negotiate.WithResolver(rp.Resolver()))
	}
	s.negotiator = negotiate.New(nopts...)

	var aopts []allocation.Option
	if d, ok := dev.(allocation.Decider); ok {
		aopts = append(aopts, allocation.WithBackend(d))
	}
	s.coordinator = allocation.NewCoordinator(dev, s.state, s.configure, aopts...)

	s.stamper = timestamp.New(s.host, timestamp.OnUntrusted(s.untrusted))
	s.tracker = sequence.New(media.QoSSinkFunc(s.postQoS))
	return s
}

// Name returns the name of the source.
func (s *Source) Name() string {
	return s.name
}

// Device returns the capture device.
func (s *Source) Device() device.Device {
	return s.dev
}

// Open opens the device.
func (s *Source) Open() error {
	return s.dev.Open()
}

// Close stops capture and closes the device.
func (s *Source) Close() error {
	err := multierr.Append(s.Stop(), s.dev.Close())
	metrics.DeleteCaptureMetrics(s.name)
	return err
}

// Start begins a capture session. The first Create negotiates with the
// current peer.
func (s *Source) Start() error {
	s.mu.Lock()
	s.state.Reset()
	s.stamper.Start(s.state)
	s.started = true
	s.mu.Unlock()

	s.clockMu.Lock()
	if s.baseOnStart && s.clock != nil {
		s.base = s.clock.Time()
	}
	s.clockMu.Unlock()

	metrics.SetClockUntrusted(s.name, false)
	s.requestReconfigure()
	s.publish(events.CaptureStateEvent{URI: s.name, State: "started", Timestamp: events.Now()})
	s.logger.Info("Capture started")
	return nil
}

// Stop ends the capture session and releases the device buffers.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.dev.IsActive() {
		err = s.dev.Stop()
	}
	s.state.PendingFormatChange = false
	if s.started {
		s.started = false
		s.publish(events.CaptureStateEvent{URI: s.name, State: "stopped", Timestamp: events.Now()})
		s.logger.Info("Capture stopped")
	}
	return err
}

// Unlock makes a blocked Create return ErrFlushing.
func (s *Source) Unlock() error {
	s.flushing.Store(true)
	return s.dev.Unlock()
}

// UnlockStop re-arms Create after Unlock. Timestamp continuity is reset
// because the pause may have lasted arbitrarily long.
func (s *Source) UnlockStop() error {
	s.mu.Lock()
	s.state.ResetContinuity()
	s.mu.Unlock()

	s.flushing.Store(false)
	return s.dev.UnlockStop()
}

// SetClock replaces the pipeline clock. A nil clock leaves frames without
// timestamps.
func (s *Source) SetClock(clock media.PipelineClock, base media.ClockTime) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.clock = clock
	s.base = base
	s.baseOnStart = false
}

func (s *Source) sampleClock() media.ClockSample {
	s.clockMu.Lock()
	clock, base := s.clock, s.base
	s.clockMu.Unlock()

	if clock == nil || !base.IsValid() {
		return media.NoClock
	}
	return media.ClockSample{Absolute: clock.Time(), Base: base}
}

// Caps returns the formats the device can produce, or the template when
// the device is closed.
func (s *Source) Caps() caps.Set {
	if s.dev.IsOpen() {
		set, err := s.dev.Caps()
		if err == nil {
			return set
		}
		s.logger.Debug("Device caps unavailable, using template", "error", err)
	}
	return s.template.Clone()
}

// SetPeer replaces the formats downstream accepts. nil means there is no
// peer. The next Create renegotiates.
func (s *Source) SetPeer(peer caps.Set) {
	s.peerMu.Lock()
	s.peer = peer.Clone()
	s.peerMu.Unlock()
	s.requestReconfigure()
}

// Peer returns the current peer caps, nil when there is none.
func (s *Source) Peer() caps.Set {
	s.peerMu.Lock()
	defer s.peerMu.Unlock()
	return s.peer.Clone()
}

func (s *Source) requestReconfigure() {
	s.peerMu.Lock()
	s.reconfigure = true
	s.peerMu.Unlock()
}

func (s *Source) takeReconfigure() (caps.Set, bool) {
	s.peerMu.Lock()
	defer s.peerMu.Unlock()
	if !s.reconfigure {
		return nil, false
	}
	s.reconfigure = false
	return s.peer.Clone(), true
}

// Negotiate agrees on a format with peer and applies it with SetCaps.
func (s *Source) Negotiate(peer caps.Set) (negotiate.Result, error) {
	res, err := s.negotiator.Agree(s.Caps(), peer)
	if err != nil {
		nerr := NewError(ErrCodeNegotiationFailure, "cannot agree on a format", err)
		s.elementError(nerr)
		return negotiate.Result{}, nerr
	}
	if res.NotNeeded {
		return res, nil
	}
	if err := s.SetCaps(res.Format); err != nil {
		return negotiate.Result{}, err
	}
	return res, nil
}

// SetCaps applies format. While the device is active only a non-committing
// check is made and the change is left pending for the next allocation
// decision; otherwise the device is stopped and configured directly.
func (s *Source) SetCaps(format caps.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.dev.Format(); ok && current.Equal(format) {
		s.logger.Debug("Caps unchanged", "format", format)
		s.format, s.agreed = current, true
		return nil
	}

	live := s.dev.IsActive()
	if live {
		if err := s.dev.TryFormat(format); err != nil {
			cerr := NewError(ErrCodeConfigurationRejected, fmt.Sprintf("device rejected %s", format), err)
			s.elementError(cerr)
			return cerr
		}
		s.tracker.FormatChanged(s.state)
		s.state.PendingFormatChange = true
		s.logger.Info("Format change pending", "format", format, "adjust", s.state.RenegotiationAdjust)
	} else {
		if err := s.dev.Stop(); err != nil {
			return fmt.Errorf("stop device: %w", err)
		}
		if s.hook != nil {
			if err := s.hook(s.dev.Handle(), format); err != nil {
				return NewError(ErrCodeConfigurationRejected, "pre-configure hook failed", err)
			}
		}
		if err := s.configure(format); err != nil {
			s.elementError(err)
			return err
		}
		// The device may run at a rate it could not confirm.
		if applied, ok := s.dev.Format(); ok {
			format = applied
		}
	}

	s.format, s.agreed = format, true
	s.publish(events.FormatChangedEvent{
		Format:    format.String(),
		Live:      live,
		Adjust:    s.state.RenegotiationAdjust,
		Timestamp: events.Now(),
	})
	return nil
}

func (s *Source) configure(format caps.Descriptor) error {
	if err := s.dev.SetFormat(format); err != nil {
		return NewError(ErrCodeConfigurationRejected, fmt.Sprintf("device rejected %s", format), err)
	}
	s.logger.Info("Device configured", "format", format)
	return nil
}

// Format returns the agreed format.
func (s *Source) Format() (caps.Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format, s.agreed
}

// DecideAllocation answers the allocation query for the agreed format,
// applying a pending format change first.
func (s *Source) DecideAllocation() (allocation.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := &allocation.Query{Format: s.format}
	outcome, err := s.coordinator.Decide(q)
	if err != nil {
		if errors.Is(err, allocation.ErrActivation) {
			aerr := NewError(ErrCodeAllocationFailure, "failed to allocate required memory", err)
			s.elementError(aerr)
			return 0, aerr
		}
		if ErrorCode(err) == "" {
			err = NewError(ErrCodeAllocationFailure, "allocation decision failed", err)
		}
		s.elementError(err)
		return 0, err
	}

	metrics.AddAllocation(s.name, outcome.String())
	if outcome == allocation.Reconfigured {
		metrics.AddRenegotiation(s.name)
		if applied, ok := s.dev.Format(); ok {
			s.format = applied
		}
	}
	s.logger.Debug("Allocation decided", "outcome", outcome)
	return outcome, nil
}

func (s *Source) untrusted(reason timestamp.Reason) {
	metrics.SetClockUntrusted(s.name, true)
	s.publish(events.ClockUntrustedEvent{Reason: string(reason), Timestamp: events.Now()})
}

func (s *Source) postQoS(msg media.QoS) {
	metrics.AddLostFrames(s.name, msg.LostFrames)
	if s.bus != nil {
		s.bus.PostQoS(msg)
	}
	if s.sink != nil {
		s.sink.PostQoS(msg)
	}
}

func (s *Source) elementError(err error) {
	var e *Error
	if !errors.As(err, &e) {
		return
	}
	s.logger.Error("Element error", "code", e.Code, "error", err)
	ev := events.ElementErrorEvent{Code: e.Code, Message: e.Message, Timestamp: events.Now()}
	if e.Cause != nil {
		ev.Error = e.Cause.Error()
	}
	s.publish(ev)
}

func (s *Source) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}
