package led

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/ispsrc/internal/events"
)

type mockController struct {
	mu       sync.Mutex
	setCalls []setCall
}

type setCall struct {
	ledType string
	enabled bool
	pattern string
}

func (m *mockController) Set(ledType string, enabled bool, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, setCall{ledType, enabled, pattern})
	return nil
}

func (m *mockController) Available() []string {
	return []string{"system", "user"}
}

func (m *mockController) Patterns() []string {
	return []string{PatternSolid, PatternBlink}
}

func (m *mockController) last(t *testing.T) setCall {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.setCalls) == 0 {
		t.Fatal("No LED control calls made")
	}
	return m.setCalls[len(m.setCalls)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestManager_States(t *testing.T) {
	tests := []struct {
		name        string
		publish     []events.Event
		wantState   string
		wantEnabled bool
		wantPattern string
	}{
		{
			name:        "started is solid",
			publish:     []events.Event{events.CaptureStateEvent{State: "started"}},
			wantState:   "started",
			wantEnabled: true,
			wantPattern: PatternSolid,
		},
		{
			name: "stopped is off",
			publish: []events.Event{
				events.CaptureStateEvent{State: "started"},
				events.CaptureStateEvent{State: "stopped"},
			},
			wantState:   "stopped",
			wantEnabled: false,
			wantPattern: "",
		},
		{
			name: "error blinks",
			publish: []events.Event{
				events.CaptureStateEvent{State: "started"},
				events.ElementErrorEvent{Code: "DRIVER_PROTOCOL_VIOLATION"},
			},
			wantState:   "error",
			wantEnabled: true,
			wantPattern: PatternBlink,
		},
		{
			name: "error survives stop",
			publish: []events.Event{
				events.ElementErrorEvent{Code: "ALLOCATION_FAILURE"},
				events.CaptureStateEvent{State: "stopped"},
			},
			wantState:   "error",
			wantEnabled: true,
			wantPattern: PatternBlink,
		},
		{
			name: "restart clears error",
			publish: []events.Event{
				events.ElementErrorEvent{Code: "ALLOCATION_FAILURE"},
				events.CaptureStateEvent{State: "started"},
			},
			wantState:   "started",
			wantEnabled: true,
			wantPattern: PatternSolid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &mockController{}
			bus := events.New()
			mgr := NewManager(ctrl, "system", bus, testLogger())
			mgr.Start()

			// Events are delivered asynchronously, one goroutine per type
			for _, ev := range tt.publish {
				bus.Publish(ev)
				time.Sleep(20 * time.Millisecond)
			}

			if got := mgr.State(); got != tt.wantState {
				t.Errorf("State() = %q, want %q", got, tt.wantState)
			}
			last := ctrl.last(t)
			if last.ledType != "system" || last.enabled != tt.wantEnabled || last.pattern != tt.wantPattern {
				t.Errorf("last Set = %+v, want enabled=%v pattern=%q", last, tt.wantEnabled, tt.wantPattern)
			}
		})
	}
}

func TestManager_StopTurnsOff(t *testing.T) {
	ctrl := &mockController{}
	bus := events.New()
	mgr := NewManager(ctrl, "system", bus, testLogger())
	mgr.Start()

	bus.Publish(events.CaptureStateEvent{State: "started"})
	time.Sleep(20 * time.Millisecond)
	mgr.Stop()

	if last := ctrl.last(t); last.enabled {
		t.Errorf("LED still on after Stop: %+v", last)
	}

	ctrl.mu.Lock()
	calls := len(ctrl.setCalls)
	ctrl.mu.Unlock()

	bus.Publish(events.CaptureStateEvent{State: "started"})
	time.Sleep(20 * time.Millisecond)

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.setCalls) != calls {
		t.Error("manager reacted to events after Stop")
	}
}
