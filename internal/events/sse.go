package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels
// This is needed for SSE integration where Huma expects a channel-based select loop.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full (non-blocking)
		}
	})
}

// SubscribeAll forwards every event type to ch and returns one function
// that removes all the subscriptions.
func SubscribeAll(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[FrameLostEvent](bus, ch),
		SubscribeToChannel[FormatChangedEvent](bus, ch),
		SubscribeToChannel[ClockUntrustedEvent](bus, ch),
		SubscribeToChannel[ElementErrorEvent](bus, ch),
		SubscribeToChannel[CaptureStateEvent](bus, ch),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
