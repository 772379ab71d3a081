package caps

import (
	"strings"
)

// Media types produced by capture devices.
const (
	MediaRaw   = "video/x-raw"
	MediaJPEG  = "image/jpeg"
	MediaH264  = "video/x-h264"
	MediaHEVC  = "video/x-h265"
	MediaBayer = "video/x-bayer"
)

// Interlace modes.
const (
	InterlaceProgressive = "progressive"
	InterlaceInterleaved = "interleaved"
	InterlaceMixed       = "mixed"
)

// Field names used in the text form.
const (
	FieldFormat    = "format"
	FieldWidth     = "width"
	FieldHeight    = "height"
	FieldFrameRate = "framerate"
	FieldInterlace = "interlace-mode"
)

// Descriptor is one candidate video format. An empty Media matches any
// media type.
type Descriptor struct {
	Media       string
	PixelFormat StringField
	Width       IntField
	Height      IntField
	FrameRate   FractionField
	Interlace   StringField
}

// IsUnconstrained reports whether d accepts every format.
func (d Descriptor) IsUnconstrained() bool {
	return d.Media == "" &&
		d.PixelFormat.Kind == KindAny &&
		d.Width.Kind == KindAny &&
		d.Height.Kind == KindAny &&
		d.FrameRate.Kind == KindAny &&
		d.Interlace.Kind == KindAny
}

// IsFixed reports whether d names exactly one format: width, height and
// frame rate are single values, and the enumerated fields are single
// values or left to the device.
func (d Descriptor) IsFixed() bool {
	return d.Width.IsFixed() &&
		d.Height.IsFixed() &&
		d.FrameRate.IsFixed() &&
		d.PixelFormat.Kind != KindList &&
		d.Interlace.Kind != KindList &&
		d.PixelFormat.Kind != KindRange &&
		d.Interlace.Kind != KindRange
}

// Size returns the fixed width and height of d.
func (d Descriptor) Size() (width, height int, ok bool) {
	w, okW := d.Width.Fixed()
	h, okH := d.Height.Fixed()
	return w, h, okW && okH
}

// Intersect returns the formats accepted by both d and o.
func (d Descriptor) Intersect(o Descriptor) (Descriptor, bool) {
	var out Descriptor
	switch {
	case d.Media == "":
		out.Media = o.Media
	case o.Media == "" || o.Media == d.Media:
		out.Media = d.Media
	default:
		return Descriptor{}, false
	}

	var ok bool
	if out.PixelFormat, ok = d.PixelFormat.Intersect(o.PixelFormat); !ok {
		return Descriptor{}, false
	}
	if out.Width, ok = d.Width.Intersect(o.Width); !ok {
		return Descriptor{}, false
	}
	if out.Height, ok = d.Height.Intersect(o.Height); !ok {
		return Descriptor{}, false
	}
	if out.FrameRate, ok = d.FrameRate.Intersect(o.FrameRate); !ok {
		return Descriptor{}, false
	}
	if out.Interlace, ok = d.Interlace.Intersect(o.Interlace); !ok {
		return Descriptor{}, false
	}
	return out, true
}

// Equal reports whether d and o describe the same constraint.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.Media == o.Media &&
		d.PixelFormat.Equal(o.PixelFormat) &&
		d.Width.Equal(o.Width) &&
		d.Height.Equal(o.Height) &&
		d.FrameRate.Equal(o.FrameRate) &&
		d.Interlace.Equal(o.Interlace)
}

// String renders d in the text form accepted by Parse.
func (d Descriptor) String() string {
	if d.IsUnconstrained() {
		return "ANY"
	}
	media := d.Media
	if media == "" {
		media = "*"
	}
	parts := []string{media}
	if d.PixelFormat.Kind != KindAny {
		parts = append(parts, FieldFormat+"=(string)"+d.PixelFormat.String())
	}
	if d.Width.Kind != KindAny {
		parts = append(parts, FieldWidth+"=(int)"+d.Width.String())
	}
	if d.Height.Kind != KindAny {
		parts = append(parts, FieldHeight+"=(int)"+d.Height.String())
	}
	if d.FrameRate.Kind != KindAny {
		parts = append(parts, FieldFrameRate+"=(fraction)"+d.FrameRate.String())
	}
	if d.Interlace.Kind != KindAny {
		parts = append(parts, FieldInterlace+"=(string)"+d.Interlace.String())
	}
	return strings.Join(parts, ", ")
}

// Set is an ordered sequence of descriptors, most preferred first.
type Set []Descriptor

// Any returns the set that accepts every format.
func Any() Set {
	return Set{Descriptor{}}
}

// IsAny reports whether s accepts every format.
func (s Set) IsAny() bool {
	for _, d := range s {
		if d.IsUnconstrained() {
			return true
		}
	}
	return false
}

// IsEmpty reports whether s accepts nothing.
func (s Set) IsEmpty() bool {
	return len(s) == 0
}

// IsFixed reports whether s holds exactly one fixed descriptor.
func (s Set) IsFixed() bool {
	return len(s) == 1 && s[0].IsFixed()
}

// Truncate keeps only the first descriptor.
func (s Set) Truncate() Set {
	if len(s) <= 1 {
		return s.Clone()
	}
	return Set{s[0]}
}

// Clone returns a copy of s that shares no slices with it.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	for i, d := range s {
		out[i] = d.clone()
	}
	return out
}

func (d Descriptor) clone() Descriptor {
	d.PixelFormat.Values = append([]string(nil), d.PixelFormat.Values...)
	d.Interlace.Values = append([]string(nil), d.Interlace.Values...)
	d.Width.Values = append([]int(nil), d.Width.Values...)
	d.Height.Values = append([]int(nil), d.Height.Values...)
	d.FrameRate.Values = append([]Fraction(nil), d.FrameRate.Values...)
	return d
}

// Equal reports whether s and o hold equal descriptors in the same order.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if !s[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Intersect returns every non-empty pairwise intersection of first and
// second, ordered by first's entries and then second's. Duplicate results
// are dropped.
func Intersect(first, second Set) Set {
	var out Set
	for _, a := range first {
		for _, b := range second {
			d, ok := a.Intersect(b)
			if !ok || out.contains(d) {
				continue
			}
			out = append(out, d)
		}
	}
	return out
}

// CanIntersect reports whether any format is accepted by both sets.
func CanIntersect(a, b Set) bool {
	for _, x := range a {
		for _, y := range b {
			if _, ok := x.Intersect(y); ok {
				return true
			}
		}
	}
	return false
}

func (s Set) contains(d Descriptor) bool {
	for _, x := range s {
		if x.Equal(d) {
			return true
		}
	}
	return false
}

// String renders s in the text form accepted by Parse.
func (s Set) String() string {
	if len(s) == 0 {
		return "EMPTY"
	}
	if s.IsAny() {
		return "ANY"
	}
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = d.String()
	}
	return strings.Join(parts, "; ")
}
