package caps

import (
	"errors"
	"fmt"
)

// ErrNotFixed is returned when fixation leaves a field unresolved.
var ErrNotFixed = errors.New("format could not be fixed")

// Target holds the values fixation steers free fields towards.
type Target struct {
	Width     int
	Height    int
	FrameRate Fraction
}

// DefaultTarget is a modest 320x200 resolution at the highest frame rate
// up to 100/1.
var DefaultTarget = Target{Width: 320, Height: 200, FrameRate: Fraction{Num: 100, Den: 1}}

// Resolver picks a value for an enumerated field the device has to choose.
// field is FieldFormat or FieldInterlace.
type Resolver interface {
	Resolve(field string, f StringField) (string, bool)
}

// FirstResolver resolves enumerated fields to their first entry.
type FirstResolver struct{}

// Resolve returns the first permitted value of f.
func (FirstResolver) Resolve(_ string, f StringField) (string, bool) {
	return f.First()
}

// Fixate forces every field of every descriptor in s to one concrete
// value and returns the first descriptor. Numeric fields take the
// permitted value nearest to t. Enumerated fields go through r; a nil r
// behaves like FirstResolver, and fields left unconstrained stay for the
// device to decide.
func Fixate(s Set, t Target, r Resolver) (Descriptor, error) {
	if len(s) == 0 {
		return Descriptor{}, fmt.Errorf("%w: empty set", ErrNotFixed)
	}
	if r == nil {
		r = FirstResolver{}
	}

	fixed := make(Set, 0, len(s))
	for _, d := range s {
		fd, err := fixateDescriptor(d, t, r)
		if err != nil {
			return Descriptor{}, err
		}
		fixed = append(fixed, fd)
	}

	out := fixed[0]
	if !out.IsFixed() {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFixed, out)
	}
	return out, nil
}

func fixateDescriptor(d Descriptor, t Target, r Resolver) (Descriptor, error) {
	d = d.clone()

	w, ok := d.Width.Nearest(t.Width)
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: width %s", ErrNotFixed, d.Width)
	}
	d.Width = Int(w)

	h, ok := d.Height.Nearest(t.Height)
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: height %s", ErrNotFixed, d.Height)
	}
	d.Height = Int(h)

	fr, ok := d.FrameRate.Nearest(t.FrameRate)
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: framerate %s", ErrNotFixed, d.FrameRate)
	}
	d.FrameRate = FractionFixed(fr)

	if d.PixelFormat, ok = fixateString(FieldFormat, d.PixelFormat, r); !ok {
		return Descriptor{}, fmt.Errorf("%w: format %s", ErrNotFixed, d.PixelFormat)
	}
	if d.Interlace, ok = fixateString(FieldInterlace, d.Interlace, r); !ok {
		return Descriptor{}, fmt.Errorf("%w: interlace-mode %s", ErrNotFixed, d.Interlace)
	}
	return d, nil
}

func fixateString(field string, f StringField, r Resolver) (StringField, bool) {
	switch f.Kind {
	case KindFixed:
		return f, true
	case KindAny:
		if v, ok := r.Resolve(field, f); ok {
			return Str(v), true
		}
		return f, true
	}
	v, ok := r.Resolve(field, f)
	if !ok || !f.Contains(v) {
		return f, false
	}
	return Str(v), true
}
