package source

import (
	"context"
	"errors"

	"github.com/smazurov/ispsrc/internal/media"
)

// FrameSink receives produced frames. Returning an error stops Run.
type FrameSink func(f *media.Frame) error

// Run captures frames into sink until ctx is done or a fatal error
// occurs. Cancelling ctx unlocks a blocked capture.
func (s *Source) Run(ctx context.Context, sink FrameSink) error {
	stop := context.AfterFunc(ctx, func() {
		if err := s.Unlock(); err != nil {
			s.logger.Warn("Failed to unlock capture", "error", err)
		}
	})
	defer stop()

	for {
		f, err := s.Create(ctx)
		if err != nil {
			if ctx.Err() != nil && (errors.Is(err, ErrFlushing) || errors.Is(err, ctx.Err())) {
				return nil
			}
			return err
		}
		if err := sink(f); err != nil {
			return err
		}
	}
}
