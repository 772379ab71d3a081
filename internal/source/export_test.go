package source

import "context"

// SetWaitRemoved replaces the device node removal watch.
func SetWaitRemoved(s *Source, fn func(ctx context.Context, path string) error) {
	s.waitRemoved = fn
}
