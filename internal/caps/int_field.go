package caps

import (
	"fmt"
	"strconv"
	"strings"
)

// IntField constrains an integer field such as width or height.
type IntField struct {
	Kind   Kind
	Value  int   // KindFixed
	Min    int   // KindRange
	Max    int   // KindRange
	Values []int // KindList
}

// IntAny returns an unconstrained integer field.
func IntAny() IntField {
	return IntField{}
}

// Int returns a field fixed to v.
func Int(v int) IntField {
	return IntField{Kind: KindFixed, Value: v}
}

// IntRange returns a field accepting every value in [lo, hi]. A range with
// lo == hi collapses to a fixed value.
func IntRange(lo, hi int) IntField {
	if lo == hi {
		return Int(lo)
	}
	return IntField{Kind: KindRange, Min: lo, Max: hi}
}

// IntList returns a field accepting any of vs, in preference order. A
// single-entry list collapses to a fixed value.
func IntList(vs ...int) IntField {
	if len(vs) == 1 {
		return Int(vs[0])
	}
	return IntField{Kind: KindList, Values: append([]int(nil), vs...)}
}

// IsFixed reports whether f holds exactly one value.
func (f IntField) IsFixed() bool {
	return f.Kind == KindFixed
}

// Fixed returns the single value of f.
func (f IntField) Fixed() (int, bool) {
	if f.Kind != KindFixed {
		return 0, false
	}
	return f.Value, true
}

// Contains reports whether v is permitted by f.
func (f IntField) Contains(v int) bool {
	switch f.Kind {
	case KindAny:
		return true
	case KindFixed:
		return f.Value == v
	case KindRange:
		return v >= f.Min && v <= f.Max
	case KindList:
		for _, x := range f.Values {
			if x == v {
				return true
			}
		}
	}
	return false
}

// Intersect returns the values permitted by both f and o. The order of
// f's list entries is preserved. ok is false if nothing remains.
func (f IntField) Intersect(o IntField) (IntField, bool) {
	switch {
	case f.Kind == KindAny:
		return o, o.valid()
	case o.Kind == KindAny:
		return f, f.valid()
	case f.Kind == KindFixed:
		return f, o.Contains(f.Value)
	case o.Kind == KindFixed:
		return o, f.Contains(o.Value)
	case f.Kind == KindRange && o.Kind == KindRange:
		lo, hi := max(f.Min, o.Min), min(f.Max, o.Max)
		if lo > hi {
			return IntField{}, false
		}
		return IntRange(lo, hi), true
	case f.Kind == KindList:
		return filterInts(f.Values, o)
	default:
		return filterInts(o.Values, f)
	}
}

func filterInts(vs []int, keep IntField) (IntField, bool) {
	var out []int
	for _, v := range vs {
		if keep.Contains(v) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return IntField{}, false
	}
	return IntList(out...), true
}

// Nearest returns the permitted value closest to target. Ties go to the
// lower value.
func (f IntField) Nearest(target int) (int, bool) {
	switch f.Kind {
	case KindAny:
		return target, true
	case KindFixed:
		return f.Value, true
	case KindRange:
		if f.Min > f.Max {
			return 0, false
		}
		return min(max(target, f.Min), f.Max), true
	case KindList:
		if len(f.Values) == 0 {
			return 0, false
		}
		best := f.Values[0]
		for _, v := range f.Values[1:] {
			db, dv := absDiff(best, target), absDiff(v, target)
			if dv < db || (dv == db && v < best) {
				best = v
			}
		}
		return best, true
	}
	return 0, false
}

// Equal reports whether f and o describe the same constraint.
func (f IntField) Equal(o IntField) bool {
	if f.Kind != o.Kind {
		return false
	}
	switch f.Kind {
	case KindFixed:
		return f.Value == o.Value
	case KindRange:
		return f.Min == o.Min && f.Max == o.Max
	case KindList:
		if len(f.Values) != len(o.Values) {
			return false
		}
		for i := range f.Values {
			if f.Values[i] != o.Values[i] {
				return false
			}
		}
	}
	return true
}

func (f IntField) valid() bool {
	switch f.Kind {
	case KindRange:
		return f.Min <= f.Max
	case KindList:
		return len(f.Values) > 0
	}
	return true
}

func (f IntField) String() string {
	switch f.Kind {
	case KindFixed:
		return strconv.Itoa(f.Value)
	case KindRange:
		return fmt.Sprintf("[ %d, %d ]", f.Min, f.Max)
	case KindList:
		parts := make([]string, len(f.Values))
		for i, v := range f.Values {
			parts[i] = strconv.Itoa(v)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	}
	return ""
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
