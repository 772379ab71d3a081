package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/ispsrc/internal/events"
)

// Manager shows capture status on one LED: solid while capturing, blinking
// after an element error until the next start, off when stopped.
type Manager struct {
	controller Controller
	ledType    string
	eventBus   *events.Bus
	logger     *slog.Logger

	mu     sync.Mutex
	unsubs []func()
	state  string
}

// NewManager returns a Manager driving ledType through controller.
func NewManager(controller Controller, ledType string, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		ledType:    ledType,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Start subscribes to capture events.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubs = []func(){
		m.eventBus.Subscribe(func(e events.CaptureStateEvent) {
			m.handleState(e.State)
		}),
		m.eventBus.Subscribe(func(e events.ElementErrorEvent) {
			m.logger.Debug("Element error, blinking LED", "code", e.Code)
			m.handleState("error")
		}),
	}
	m.logger.Info("LED manager started", "led", m.ledType)
}

// Stop unsubscribes and switches the LED off.
func (m *Manager) Stop() {
	m.mu.Lock()
	unsubs := m.unsubs
	m.unsubs = nil
	m.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	m.apply("stopped")
	m.logger.Info("LED manager stopped")
}

// State returns the last state shown.
func (m *Manager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) handleState(state string) {
	m.mu.Lock()
	// An error stays visible until capture is restarted
	if m.state == "error" && state == "stopped" {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.apply(state)
}

func (m *Manager) apply(state string) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()

	var err error
	switch state {
	case "started":
		err = m.controller.Set(m.ledType, true, PatternSolid)
	case "error":
		err = m.controller.Set(m.ledType, true, PatternBlink)
	default:
		err = m.controller.Set(m.ledType, false, "")
	}
	if err != nil {
		m.logger.Warn("Failed to set LED", "led", m.ledType, "state", state, "error", err)
	}
}
