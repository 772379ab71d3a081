package fake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/device"
)

var vga, _ = caps.ParseDescriptor("video/x-raw, format=NV12, width=640, height=480, framerate=30/1, interlace-mode=progressive")

func TestCapsRequireOpen(t *testing.T) {
	d := New()
	if _, err := d.Caps(); !errors.Is(err, device.ErrNotOpen) {
		t.Fatalf("Caps on closed device err = %v, want ErrNotOpen", err)
	}
	if err := d.Open(); err != nil {
		t.Fatal(err)
	}
	got, err := d.Caps()
	if err != nil {
		t.Fatalf("Caps: %v", err)
	}
	if !got.Equal(DefaultCaps) {
		t.Errorf("Caps = %s, want %s", got, DefaultCaps)
	}
}

func TestSetFormatChecksSupport(t *testing.T) {
	d := New()
	_ = d.Open()

	if err := d.SetFormat(vga); err != nil {
		t.Fatalf("SetFormat: %v", err)
	}
	if !d.IsActive() {
		t.Error("device should be active after SetFormat")
	}
	if got := d.Pool().FrameSize(); got != 640*480*3/2 {
		t.Errorf("FrameSize = %d", got)
	}

	uhd, _ := caps.ParseDescriptor("video/x-raw, format=NV12, width=3840, height=2160, framerate=30/1")
	if err := d.TryFormat(uhd); err == nil {
		t.Error("TryFormat accepted 3840x2160")
	}
}

func TestProcessScripted(t *testing.T) {
	d := New()
	pool := d.FakePool()
	pool.PushFrame(1000, 7)
	pool.Push(Step{Err: device.ErrCorrupted})

	f, err := pool.Process(context.Background())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if f.Timestamp != 1000 || f.Offset != 7 || f.OffsetEnd != 8 {
		t.Errorf("frame = %+v", f)
	}
	if _, err := pool.Process(context.Background()); !errors.Is(err, device.ErrCorrupted) {
		t.Errorf("err = %v, want ErrCorrupted", err)
	}
}

func TestUnlockReleasesBlockedProcess(t *testing.T) {
	d := New()
	pool := d.Pool()

	done := make(chan error, 1)
	go func() {
		_, err := pool.Process(context.Background())
		done <- err
	}()

	if err := d.Unlock(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, device.ErrFlushing) {
			t.Errorf("err = %v, want ErrFlushing", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Process did not return after Unlock")
	}

	if _, err := pool.Process(context.Background()); !errors.Is(err, device.ErrFlushing) {
		t.Errorf("Process while unlocked err = %v, want ErrFlushing", err)
	}

	_ = d.UnlockStop()
	d.FakePool().PushFrame(5, 0)
	if _, err := pool.Process(context.Background()); err != nil {
		t.Errorf("Process after UnlockStop: %v", err)
	}
}

func TestGenerator(t *testing.T) {
	mock := clock.NewMock()
	d := New(WithGenerator(mock))
	_ = d.Open()
	if err := d.SetFormat(vga); err != nil {
		t.Fatal(err)
	}

	type result struct {
		seq uint64
		err error
	}
	got := make(chan result, 1)
	go func() {
		f, err := d.Pool().Process(context.Background())
		if err != nil {
			got <- result{err: err}
			return
		}
		got <- result{seq: f.Offset}
	}()

	// Let the goroutine arm its timer before advancing the clock.
	deadline := time.Now().Add(time.Second)
	for {
		mock.Add(34 * time.Millisecond)
		select {
		case r := <-got:
			if r.err != nil {
				t.Fatalf("Process: %v", r.err)
			}
			if r.seq != 0 {
				t.Errorf("first generated sequence = %d, want 0", r.seq)
			}
			return
		default:
		}
		if time.Now().After(deadline) {
			t.Fatal("generator did not produce a frame")
		}
		time.Sleep(time.Millisecond)
	}
}
