package caps

import "strings"

// StringField constrains an enumerated field such as the pixel format or
// the interlace mode.
type StringField struct {
	Kind   Kind
	Values []string // one entry for KindFixed, several for KindList
}

// StrAny returns an unconstrained string field.
func StrAny() StringField {
	return StringField{}
}

// Str returns a field fixed to v.
func Str(v string) StringField {
	return StringField{Kind: KindFixed, Values: []string{v}}
}

// StrList returns a field accepting any of vs, in preference order.
func StrList(vs ...string) StringField {
	if len(vs) == 1 {
		return Str(vs[0])
	}
	return StringField{Kind: KindList, Values: append([]string(nil), vs...)}
}

// IsFixed reports whether f holds exactly one value.
func (f StringField) IsFixed() bool {
	return f.Kind == KindFixed
}

// Fixed returns the single value of f.
func (f StringField) Fixed() (string, bool) {
	if f.Kind != KindFixed {
		return "", false
	}
	return f.Values[0], true
}

// Contains reports whether v is permitted by f.
func (f StringField) Contains(v string) bool {
	if f.Kind == KindAny {
		return true
	}
	for _, x := range f.Values {
		if x == v {
			return true
		}
	}
	return false
}

// Intersect returns the values permitted by both, in f's order.
func (f StringField) Intersect(o StringField) (StringField, bool) {
	switch {
	case f.Kind == KindAny:
		return o, o.Kind == KindAny || len(o.Values) > 0
	case o.Kind == KindAny:
		return f, len(f.Values) > 0
	}
	var out []string
	for _, v := range f.Values {
		if o.Contains(v) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return StringField{}, false
	}
	return StrList(out...), true
}

// First returns the first permitted value.
func (f StringField) First() (string, bool) {
	if f.Kind == KindAny || len(f.Values) == 0 {
		return "", false
	}
	return f.Values[0], true
}

// Equal reports whether f and o describe the same constraint.
func (f StringField) Equal(o StringField) bool {
	if f.Kind != o.Kind || len(f.Values) != len(o.Values) {
		return false
	}
	for i := range f.Values {
		if f.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

func (f StringField) String() string {
	switch f.Kind {
	case KindFixed:
		return f.Values[0]
	case KindList:
		return "{ " + strings.Join(f.Values, ", ") + " }"
	}
	return ""
}
