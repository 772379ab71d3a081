package source

import (
	"github.com/smazurov/ispsrc/internal/media"
)

// Latency is the answer to a latency query.
type Latency struct {
	Live bool
	Min  media.ClockTime
	Max  media.ClockTime // media.None when unbounded
}

// QueryLatency reports the capture latency: one frame minimum, and the
// whole pool depth maximum. It fails with ErrLatencyUnavailable while the
// device is closed or the frame rate is not fixed and nonzero.
func (s *Source) QueryLatency() (Latency, error) {
	if !s.dev.IsOpen() {
		return Latency{}, ErrLatencyUnavailable
	}

	s.mu.Lock()
	format, agreed := s.format, s.agreed
	s.mu.Unlock()
	if !agreed {
		return Latency{}, ErrLatencyUnavailable
	}

	fr, ok := format.FrameRate.Fixed()
	if !ok || fr.Num <= 0 || fr.Den <= 0 {
		return Latency{}, ErrLatencyUnavailable
	}

	lat := Latency{
		Live: true,
		Min:  media.ScaleInt(media.Second, fr.Den, fr.Num),
		Max:  media.None,
	}
	if pool := s.dev.Pool(); pool != nil {
		if depth := pool.Depth(); depth > 0 {
			lat.Max = media.ClockTime(depth) * lat.Min
		}
	}
	s.logger.Debug("Latency", "min", lat.Min, "max", lat.Max)
	return lat, nil
}
