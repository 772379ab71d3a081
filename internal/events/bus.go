package events

import (
	"time"

	"github.com/kelindar/event"

	"github.com/smazurov/ispsrc/internal/media"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(FormatChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case FrameLostEvent:
		event.Publish(b.dispatcher, e)
	case FormatChangedEvent:
		event.Publish(b.dispatcher, e)
	case ClockUntrustedEvent:
		event.Publish(b.dispatcher, e)
	case ElementErrorEvent:
		event.Publish(b.dispatcher, e)
	case CaptureStateEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e FrameLostEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(FrameLostEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FormatChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ClockUntrustedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ElementErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureStateEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}

// PostQoS publishes a QoS notification as a FrameLostEvent, making the
// bus usable as the source's QoS sink.
func (b *Bus) PostQoS(msg media.QoS) {
	b.Publish(FrameLostEvent{
		Live:       msg.Live,
		PTS:        msg.Timestamp.String(),
		LostFrames: msg.LostFrames,
		Lost:       msg.Lost.String(),
		Timestamp:  Now(),
	})
}

// Now formats the current time the way events carry it.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

var _ media.QoSSink = (*Bus)(nil)
