// Package caps models the capability sets a capture source exposes and
// consumes.
//
// A Descriptor names a media type and constrains five fields: width,
// height, frame rate, pixel format and interlace mode. Each field is
// either unconstrained (Any), a single value, a range (numeric fields
// only) or an ordered list. A Set is an ordered list of descriptors in
// preference order; an empty Set accepts nothing and a Set holding one
// unconstrained descriptor accepts anything.
//
// Sets are written and parsed in a compact text form:
//
//	video/x-raw, format=(string){ NV12, YUY2 }, width=[ 320, 1920 ], height=(int)480, framerate=30/1; image/jpeg
//
// The special strings ANY and EMPTY denote the two trivial sets.
//
// Fixate collapses a set with free fields into one concrete descriptor
// by picking, per field, the permitted value nearest to a default target.
package caps
