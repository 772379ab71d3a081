// Package allocation decides how a buffer allocation request for the
// agreed format is satisfied, reusing the active device pool whenever
// possible so that capture is not restarted needlessly.
package allocation

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/device"
	"github.com/smazurov/ispsrc/internal/logging"
	"github.com/smazurov/ispsrc/internal/session"
)

// ErrActivation is returned when the pool could not be activated after a
// successful decision.
var ErrActivation = errors.New("buffer pool activation failed")

// PoolParams is one pool proposal in an allocation query.
type PoolParams struct {
	Pool device.Pool
	Size int
	Min  int
	Max  int // 0 means unlimited
}

// Query is an allocation request for Format.
type Query struct {
	Format caps.Descriptor
	Pools  []PoolParams
}

// SetPool replaces the first pool proposal, or adds one.
func (q *Query) SetPool(p PoolParams) {
	if len(q.Pools) == 0 {
		q.Pools = append(q.Pools, p)
		return
	}
	q.Pools[0] = p
}

// Decider is one step of the allocation decision.
type Decider interface {
	DecideAllocation(q *Query) error
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(q *Query) error

// DecideAllocation calls f(q).
func (f DeciderFunc) DecideAllocation(q *Query) error {
	return f(q)
}

// Generic is the default decision: it keeps the first proposal, fills in
// a minimum of one buffer and the frame size when missing.
var Generic = DeciderFunc(func(q *Query) error {
	if len(q.Pools) == 0 {
		return errors.New("no pool proposed")
	}
	p := &q.Pools[0]
	if p.Min < 1 {
		p.Min = 1
	}
	if p.Max != 0 && p.Max < p.Min {
		p.Max = p.Min
	}
	return nil
})

// Outcome tells which branch of the decision was taken.
type Outcome int

const (
	// Reconfigured means a pending live format change was applied and
	// the pool activated afresh.
	Reconfigured Outcome = iota + 1
	// Reused means the active pool was kept as is.
	Reused
	// Activated means the generic path ran and the pool was activated.
	Activated
)

func (o Outcome) String() string {
	switch o {
	case Reconfigured:
		return "reconfigured"
	case Reused:
		return "reused"
	case Activated:
		return "activated"
	}
	return "unknown"
}

// Coordinator runs allocation decisions for one device.
type Coordinator struct {
	dev       device.Device
	state     *session.State
	configure func(caps.Descriptor) error
	backend   Decider
	generic   Decider
	logger    *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBackend sets the device-specific decision step that runs before the
// generic one.
func WithBackend(d Decider) Option {
	return func(c *Coordinator) {
		c.backend = d
	}
}

// WithGeneric replaces Generic.
func WithGeneric(d Decider) Option {
	return func(c *Coordinator) {
		c.generic = d
	}
}

// NewCoordinator returns a Coordinator for dev. configure applies a fixed
// format to the device, including any pre-configure hook.
func NewCoordinator(dev device.Device, state *session.State, configure func(caps.Descriptor) error, opts ...Option) *Coordinator {
	c := &Coordinator{
		dev:       dev,
		state:     state,
		configure: configure,
		generic:   Generic,
		logger:    logging.GetLogger("allocation"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decide satisfies q. Callers serialize calls with format configuration.
func (c *Coordinator) Decide(q *Query) (Outcome, error) {
	pool := c.dev.Pool()
	outcome := Activated

	switch {
	case c.state.PendingFormatChange:
		c.logger.Info("Applying pending format change", "format", q.Format)
		if err := c.dev.Stop(); err != nil {
			return 0, fmt.Errorf("stop device for format change: %w", err)
		}
		err := c.configure(q.Format)
		c.state.PendingFormatChange = false
		if err != nil {
			return 0, err
		}
		pool = c.dev.Pool()
		outcome = Reconfigured

	case pool != nil && pool.IsActive():
		q.SetPool(PoolParams{Pool: pool, Size: pool.FrameSize(), Min: 1})
		if err := c.generic.DecideAllocation(q); err != nil {
			return 0, err
		}
		c.logger.Debug("Reusing active pool")
		return Reused, nil
	}

	if pool == nil {
		return 0, fmt.Errorf("%w: device has no pool", ErrActivation)
	}
	q.SetPool(PoolParams{Pool: pool, Size: pool.FrameSize(), Min: 1, Max: pool.Depth()})
	if c.backend != nil {
		if err := c.backend.DecideAllocation(q); err != nil {
			return 0, err
		}
	}
	if err := c.generic.DecideAllocation(q); err != nil {
		return 0, err
	}

	if err := pool.SetActive(true); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrActivation, err)
	}
	c.logger.Debug("Pool activated", "outcome", outcome)
	return outcome, nil
}
