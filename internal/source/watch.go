package source

import (
	"context"
	"errors"
)

// pathDevice is implemented by devices backed by a device node.
type pathDevice interface {
	Path() string
}

// WatchRemoval blocks until ctx is done and returns nil, unless the device
// node disappears first. Then it reports a DEVICE_REMOVED element error,
// unlocks a blocked Create and returns that error. Devices without a node
// are not watched.
func (s *Source) WatchRemoval(ctx context.Context) error {
	pd, ok := s.dev.(pathDevice)
	if !ok {
		<-ctx.Done()
		return nil
	}

	err := s.waitRemoved(ctx, pd.Path())
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, ErrDeviceRemoved):
		s.logger.Warn("Device removal watch disabled", "path", pd.Path(), "error", err)
		<-ctx.Done()
		return nil
	}

	srcErr := NewError(ErrCodeDeviceRemoved, "capture device removed", err)
	s.elementError(srcErr)
	if unlockErr := s.Unlock(); unlockErr != nil {
		s.logger.Warn("Failed to unlock capture", "error", unlockErr)
	}
	return srcErr
}
