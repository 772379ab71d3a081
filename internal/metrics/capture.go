// Package metrics provides Prometheus metrics for the capture path.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ispsrc",
		Subsystem: "capture",
		Name:      "frames_total",
		Help:      "Frames produced by the source",
	}, []string{"device"})

	lostFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ispsrc",
		Subsystem: "capture",
		Name:      "lost_frames_total",
		Help:      "Frames the device skipped according to its sequence numbers",
	}, []string{"device"})

	corruptedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ispsrc",
		Subsystem: "capture",
		Name:      "corrupted_buffers_total",
		Help:      "Corrupted buffers dropped and retried",
	}, []string{"device"})

	renegotiationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ispsrc",
		Subsystem: "negotiation",
		Name:      "renegotiations_total",
		Help:      "Format changes applied while capturing",
	}, []string{"device"})

	allocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ispsrc",
		Subsystem: "allocation",
		Name:      "decisions_total",
		Help:      "Allocation decisions by outcome",
	}, []string{"device", "outcome"})

	clockUntrusted = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ispsrc",
		Subsystem: "timestamp",
		Name:      "device_clock_untrusted",
		Help:      "1 when device timestamps are ignored for the current session",
	}, []string{"device"})

	// Local cache for the status API.
	statsCache   = make(map[string]*CaptureStats)
	statsCacheMu sync.RWMutex
)

// CaptureStats holds the current counters for a device.
type CaptureStats struct {
	Frames         uint64
	LostFrames     uint64
	Corrupted      uint64
	Renegotiations uint64
	ClockUntrusted bool
}

// AddFrame counts one produced frame.
func AddFrame(device string) {
	framesTotal.WithLabelValues(device).Inc()
	updateCache(device, func(s *CaptureStats) { s.Frames++ })
}

// AddLostFrames counts frames lost in a sequence gap.
func AddLostFrames(device string, n uint64) {
	lostFramesTotal.WithLabelValues(device).Add(float64(n))
	updateCache(device, func(s *CaptureStats) { s.LostFrames += n })
}

// AddCorrupted counts a corrupted buffer.
func AddCorrupted(device string) {
	corruptedTotal.WithLabelValues(device).Inc()
	updateCache(device, func(s *CaptureStats) { s.Corrupted++ })
}

// AddRenegotiation counts a live format change.
func AddRenegotiation(device string) {
	renegotiationsTotal.WithLabelValues(device).Inc()
	updateCache(device, func(s *CaptureStats) { s.Renegotiations++ })
}

// AddAllocation counts an allocation decision.
func AddAllocation(device, outcome string) {
	allocationsTotal.WithLabelValues(device, outcome).Inc()
}

// SetClockUntrusted records whether device timestamps are ignored.
func SetClockUntrusted(device string, untrusted bool) {
	v := 0.0
	if untrusted {
		v = 1
	}
	clockUntrusted.WithLabelValues(device).Set(v)
	updateCache(device, func(s *CaptureStats) { s.ClockUntrusted = untrusted })
}

// DeleteCaptureMetrics removes all metrics for a device.
func DeleteCaptureMetrics(device string) {
	framesTotal.DeleteLabelValues(device)
	lostFramesTotal.DeleteLabelValues(device)
	corruptedTotal.DeleteLabelValues(device)
	renegotiationsTotal.DeleteLabelValues(device)
	allocationsTotal.DeletePartialMatch(prometheus.Labels{"device": device})
	clockUntrusted.DeleteLabelValues(device)

	statsCacheMu.Lock()
	delete(statsCache, device)
	statsCacheMu.Unlock()
}

// GetCaptureStats returns the current counters for a device.
func GetCaptureStats(device string) *CaptureStats {
	statsCacheMu.RLock()
	defer statsCacheMu.RUnlock()
	if s, ok := statsCache[device]; ok {
		dup := *s
		return &dup
	}
	return nil
}

func updateCache(device string, update func(*CaptureStats)) {
	statsCacheMu.Lock()
	defer statsCacheMu.Unlock()
	s, ok := statsCache[device]
	if !ok {
		s = &CaptureStats{}
		statsCache[device] = s
	}
	update(s)
}
