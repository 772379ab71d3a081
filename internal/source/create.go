package source

import (
	"context"
	"errors"

	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/device"
	"github.com/smazurov/ispsrc/internal/media"
	"github.com/smazurov/ispsrc/internal/metrics"
)

// Create captures one frame, stamps it and assigns its offsets. A pending
// peer change is negotiated first. Corrupted buffers are dropped and the
// capture retried.
func (s *Source) Create(ctx context.Context) (*media.Frame, error) {
	if s.flushing.Load() {
		return nil, ErrFlushing
	}
	if peer, ok := s.takeReconfigure(); ok {
		if err := s.renegotiate(peer); err != nil {
			return nil, err
		}
	}

	pool := s.dev.Pool()
	if pool == nil || !pool.IsActive() {
		if s.flushing.Load() {
			return nil, ErrFlushing
		}
		err := NewError(ErrCodeAllocationFailure, "failed to allocate a buffer", errors.New("buffer pool inactive"))
		s.elementError(err)
		return nil, err
	}

	var f *media.Frame
	for {
		var err error
		f, err = pool.Process(ctx)
		switch {
		case err == nil:
		case errors.Is(err, device.ErrCorrupted):
			metrics.AddCorrupted(s.name)
			s.logger.Debug("Dropping corrupted buffer")
			continue
		case errors.Is(err, device.ErrLastBuffer):
			perr := NewError(ErrCodeDriverProtocolViolation, "driver returned an empty buffer", err)
			s.elementError(perr)
			return nil, perr
		case errors.Is(err, device.ErrFlushing):
			return nil, ErrFlushing
		default:
			return nil, err
		}
		break
	}

	s.mu.Lock()
	duration := device.FrameDuration(s.format)
	res := s.stamper.Stamp(s.state, f.Timestamp, duration, s.sampleClock())
	f.Timestamp = res.Timestamp
	f.Duration = duration
	s.tracker.Assign(s.state, f, res.Timestamp, duration)
	s.mu.Unlock()

	metrics.AddFrame(s.name)
	return f, nil
}

// renegotiate agrees on a format with peer and settles the allocation.
func (s *Source) renegotiate(peer caps.Set) error {
	res, err := s.Negotiate(peer)
	if err != nil {
		return err
	}
	if res.NotNeeded {
		return nil
	}
	_, err = s.DecideAllocation()
	return err
}
