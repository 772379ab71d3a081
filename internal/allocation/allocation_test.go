package allocation_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/smazurov/ispsrc/internal/allocation"
	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/device/fake"
	"github.com/smazurov/ispsrc/internal/session"
)

var vga, _ = caps.ParseDescriptor("video/x-raw, format=NV12, width=640, height=480, framerate=30/1")

func setup(t *testing.T, opts ...fake.Option) (*fake.Device, *session.State, *allocation.Coordinator, *[]caps.Descriptor) {
	t.Helper()
	dev := fake.New(opts...)
	if err := dev.Open(); err != nil {
		t.Fatal(err)
	}
	state := session.New()
	var configured []caps.Descriptor
	configure := func(d caps.Descriptor) error {
		configured = append(configured, d)
		return dev.SetFormat(d)
	}
	return dev, state, allocation.NewCoordinator(dev, state, configure), &configured
}

func TestDecideActivatesFreshPool(t *testing.T) {
	dev, _, c, configured := setup(t, fake.WithDepth(4))
	if err := dev.SetFormat(vga); err != nil {
		t.Fatal(err)
	}

	q := &allocation.Query{Format: vga}
	outcome, err := c.Decide(q)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if outcome != allocation.Activated {
		t.Errorf("outcome = %s, want activated", outcome)
	}
	if !dev.Pool().IsActive() {
		t.Error("pool not active")
	}
	if len(*configured) != 0 {
		t.Errorf("configured %d times, want 0", len(*configured))
	}
	if len(q.Pools) != 1 || q.Pools[0].Size != 640*480*3/2 || q.Pools[0].Min != 1 || q.Pools[0].Max != 4 {
		t.Errorf("pool params = %+v", q.Pools)
	}
}

func TestDecideReusesActivePool(t *testing.T) {
	dev, _, c, _ := setup(t)
	_ = dev.SetFormat(vga)
	_ = dev.Pool().SetActive(true)
	callsBefore := dev.Calls()

	q := &allocation.Query{Format: vga, Pools: []allocation.PoolParams{{Size: 1, Min: 2, Max: 8}}}
	outcome, err := c.Decide(q)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if outcome != allocation.Reused {
		t.Errorf("outcome = %s, want reused", outcome)
	}
	if !dev.Pool().IsActive() {
		t.Error("pool was deactivated")
	}
	if q.Pools[0].Pool != dev.Pool() || q.Pools[0].Min != 1 || q.Pools[0].Max != 0 {
		t.Errorf("pool params = %+v, want the active pool with min 1 max 0", q.Pools[0])
	}
	if !slices.Equal(dev.Calls(), callsBefore) {
		t.Errorf("device was touched: %v", dev.Calls()[len(callsBefore):])
	}
}

func TestDecideAppliesPendingFormat(t *testing.T) {
	dev, state, c, configured := setup(t)
	_ = dev.SetFormat(vga)
	_ = dev.Pool().SetActive(true)

	hd, _ := caps.ParseDescriptor("video/x-raw, format=NV12, width=1280, height=720, framerate=30/1")
	state.Offset = 10
	state.RenegotiationAdjust = 11
	state.PendingFormatChange = true

	outcome, err := c.Decide(&allocation.Query{Format: hd})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if outcome != allocation.Reconfigured {
		t.Errorf("outcome = %s, want reconfigured", outcome)
	}
	if state.PendingFormatChange {
		t.Error("pending flag not cleared")
	}
	if state.RenegotiationAdjust != 11 {
		t.Errorf("RenegotiationAdjust = %d, want 11", state.RenegotiationAdjust)
	}
	if len(*configured) != 1 || !(*configured)[0].Equal(hd) {
		t.Errorf("configured = %v, want [%s]", *configured, hd)
	}
	if !dev.Pool().IsActive() {
		t.Error("pool not reactivated")
	}

	calls := dev.Calls()
	stopAt := slices.Index(calls, "stop")
	setAt := slices.Index(calls, "set "+hd.String())
	if stopAt < 0 || setAt < stopAt {
		t.Errorf("expected stop before set, calls %v", calls)
	}
}

func TestDecidePendingConfigureFailure(t *testing.T) {
	dev, state, c, _ := setup(t, fake.WithReject(func(d caps.Descriptor) error {
		if w, _, _ := d.Size(); w == 1280 {
			return errors.New("busy")
		}
		return nil
	}))
	_ = dev.SetFormat(vga)
	state.PendingFormatChange = true

	hd, _ := caps.ParseDescriptor("video/x-raw, format=NV12, width=1280, height=720, framerate=30/1")
	if _, err := c.Decide(&allocation.Query{Format: hd}); err == nil {
		t.Fatal("expected configure error")
	}
	if state.PendingFormatChange {
		t.Error("pending flag should be cleared even on failure")
	}
	if dev.Pool().IsActive() {
		t.Error("pool must not be activated after a failed reconfiguration")
	}
}

func TestDecideActivationFailure(t *testing.T) {
	boom := errors.New("out of memory")
	dev, _, c, _ := setup(t, fake.WithActivateError(boom))
	_ = dev.SetFormat(vga)

	_, err := c.Decide(&allocation.Query{Format: vga})
	if !errors.Is(err, allocation.ErrActivation) {
		t.Errorf("err = %v, want ErrActivation", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want it to wrap the pool error", err)
	}
}

func TestBackendDeciderRunsBeforeGeneric(t *testing.T) {
	dev := fake.New()
	_ = dev.Open()
	_ = dev.SetFormat(vga)

	var order []string
	backend := allocation.DeciderFunc(func(q *allocation.Query) error {
		order = append(order, "backend")
		q.Pools[0].Min = 3
		return nil
	})
	generic := allocation.DeciderFunc(func(q *allocation.Query) error {
		order = append(order, "generic")
		if q.Pools[0].Min != 3 {
			t.Errorf("generic saw min %d, want 3", q.Pools[0].Min)
		}
		return nil
	})

	c := allocation.NewCoordinator(dev, session.New(), dev.SetFormat,
		allocation.WithBackend(backend), allocation.WithGeneric(generic))
	if _, err := c.Decide(&allocation.Query{Format: vga}); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !slices.Equal(order, []string{"backend", "generic"}) {
		t.Errorf("order = %v", order)
	}
}
