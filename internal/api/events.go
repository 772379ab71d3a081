package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/ispsrc/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of frame loss, format changes, clock and error events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"frame-lost":      events.FrameLostEvent{},
		"format-changed":  events.FormatChangedEvent{},
		"clock-untrusted": events.ClockUntrustedEvent{},
		"element-error":   events.ElementErrorEvent{},
		"capture-state":   events.CaptureStateEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)
		unsubscribe := events.SubscribeAll(s.eventBus, eventCh)
		defer unsubscribe()

		// Start with the current state so clients need no extra request
		if err := send.Data(s.stateEvent()); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopping:
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

func (s *Server) stateEvent() events.CaptureStateEvent {
	ev := events.CaptureStateEvent{State: "stopped", Timestamp: events.Now()}
	if s.source == nil {
		return ev
	}
	st := s.source.Status()
	ev.URI = st.Name
	if st.Started {
		ev.State = "started"
	}
	return ev
}
