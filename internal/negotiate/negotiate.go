// Package negotiate agrees on one concrete video format between the
// capabilities this source can produce and those the downstream peer
// accepts.
package negotiate

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/logging"
)

// ErrNoIntersection is returned when the peer accepts none of the formats
// this source can produce.
var ErrNoIntersection = errors.New("no negotiation possible")

// Result is the outcome of a successful negotiation.
type Result struct {
	// Format is the fixed format to configure. It is unset when
	// NotNeeded is true.
	Format caps.Descriptor

	// NotNeeded reports that this source accepts any format, so nothing
	// has to be configured.
	NotNeeded bool
}

// Negotiator computes the agreed format. The zero value is not usable;
// create one with New.
type Negotiator struct {
	target   caps.Target
	resolver caps.Resolver
	logger   *slog.Logger
}

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithTarget steers fixation towards t instead of caps.DefaultTarget.
func WithTarget(t caps.Target) Option {
	return func(n *Negotiator) {
		n.target = t
	}
}

// WithResolver lets the device backend pick enumerated fields.
func WithResolver(r caps.Resolver) Option {
	return func(n *Negotiator) {
		n.resolver = r
	}
}

// New returns a Negotiator.
func New(opts ...Option) *Negotiator {
	n := &Negotiator{
		target:   caps.DefaultTarget,
		resolver: caps.FirstResolver{},
		logger:   logging.GetLogger("negotiate"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Negotiate returns the single-descriptor set to hand to fixation. own is
// what this source can produce; peer is what downstream accepts, nil when
// there is no peer. A nil or ANY peer leaves own unchanged. Otherwise the
// intersection is taken in the peer's preference order and, when it holds
// several candidates, the smallest one still covering the peer's first
// preferred size wins.
func (n *Negotiator) Negotiate(own, peer caps.Set) (caps.Set, error) {
	n.logger.Debug("Negotiating", "own", own, "peer", peer)

	if peer == nil || peer.IsAny() {
		if own.IsEmpty() {
			return nil, ErrNoIntersection
		}
		return own.Truncate(), nil
	}

	inter := caps.Intersect(peer, own)
	n.logger.Debug("Intersection", "caps", inter)
	if inter.IsEmpty() {
		return nil, fmt.Errorf("%w: peer %s, source %s", ErrNoIntersection, peer, own)
	}

	best := 0
	if len(inter) > 1 {
		best = PickCovering(inter, peer[0])
	}
	return caps.Set{inter[best]}, nil
}

// Agree runs Negotiate followed by fixation. When own accepts anything
// the result has NotNeeded set and no format.
func (n *Negotiator) Agree(own, peer caps.Set) (Result, error) {
	if own.IsAny() {
		n.logger.Debug("No negotiation needed")
		return Result{NotNeeded: true}, nil
	}

	set, err := n.Negotiate(own, peer)
	if err != nil {
		return Result{}, err
	}

	format, err := caps.Fixate(set, n.target, n.resolver)
	if err != nil {
		return Result{}, err
	}
	n.logger.Debug("Fixated", "format", format)
	return Result{Format: format}, nil
}

// PickCovering returns the index of the candidate with the smallest area
// whose fixed width and height are both at least preferred's. Ties keep
// the earliest candidate. It returns 0 when preferred has no fixed size or
// no candidate covers it.
func PickCovering(candidates caps.Set, preferred caps.Descriptor) int {
	tw, th, ok := preferred.Size()
	if !ok {
		return 0
	}

	best, bestArea := 0, -1
	for i, c := range candidates {
		w, h, ok := c.Size()
		if !ok || w < tw || h < th {
			continue
		}
		area := w * h
		if bestArea < 0 || area < bestArea {
			best, bestArea = i, area
		}
	}
	return best
}
