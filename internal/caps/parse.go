package caps

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a set from its text form. See the package documentation for
// the syntax.
func Parse(s string) (Set, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "ANY":
		return Any(), nil
	case "EMPTY", "NONE", "":
		return Set{}, nil
	}

	var set Set
	for _, part := range splitTopLevel(s, ';') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := ParseDescriptor(part)
		if err != nil {
			return nil, err
		}
		set = append(set, d)
	}
	return set, nil
}

// MustParse is like Parse but panics on error. It is meant for static
// template capabilities.
func MustParse(s string) Set {
	set, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return set
}

// ParseDescriptor reads a single descriptor.
func ParseDescriptor(s string) (Descriptor, error) {
	fields := splitTopLevel(s, ',')
	if strings.TrimSpace(s) == "ANY" {
		return Descriptor{}, nil
	}

	var d Descriptor
	media := strings.TrimSpace(fields[0])
	if strings.Contains(media, "=") {
		return Descriptor{}, fmt.Errorf("descriptor %q: missing media type", s)
	}
	if media != "*" {
		d.Media = media
	}

	for _, f := range fields[1:] {
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			return Descriptor{}, fmt.Errorf("descriptor %q: field %q has no value", s, strings.TrimSpace(f))
		}
		name = strings.TrimSpace(name)
		value = stripType(strings.TrimSpace(value))

		var err error
		switch name {
		case FieldWidth:
			d.Width, err = parseIntField(value)
		case FieldHeight:
			d.Height, err = parseIntField(value)
		case FieldFrameRate:
			d.FrameRate, err = parseFractionField(value)
		case FieldFormat:
			d.PixelFormat, err = parseStringField(value)
		case FieldInterlace:
			d.Interlace, err = parseStringField(value)
		default:
			err = fmt.Errorf("unknown field")
		}
		if err != nil {
			return Descriptor{}, fmt.Errorf("descriptor %q: field %s: %w", s, name, err)
		}
	}
	return d, nil
}

// stripType removes a leading "(int)", "(fraction)" or "(string)".
func stripType(v string) string {
	if strings.HasPrefix(v, "(") {
		if i := strings.Index(v, ")"); i > 0 {
			return strings.TrimSpace(v[i+1:])
		}
	}
	return v
}

func parseIntField(v string) (IntField, error) {
	switch {
	case strings.HasPrefix(v, "["):
		items, err := listItems(v, "[", "]")
		if err != nil {
			return IntField{}, err
		}
		if len(items) != 2 {
			return IntField{}, fmt.Errorf("range %q needs two bounds", v)
		}
		lo, err := strconv.Atoi(items[0])
		if err != nil {
			return IntField{}, err
		}
		hi, err := strconv.Atoi(items[1])
		if err != nil {
			return IntField{}, err
		}
		if lo > hi {
			return IntField{}, fmt.Errorf("range %q is empty", v)
		}
		return IntRange(lo, hi), nil
	case strings.HasPrefix(v, "{"):
		items, err := listItems(v, "{", "}")
		if err != nil {
			return IntField{}, err
		}
		vs := make([]int, len(items))
		for i, item := range items {
			if vs[i], err = strconv.Atoi(item); err != nil {
				return IntField{}, err
			}
		}
		return IntList(vs...), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return IntField{}, err
	}
	return Int(n), nil
}

func parseFractionField(v string) (FractionField, error) {
	switch {
	case strings.HasPrefix(v, "["):
		items, err := listItems(v, "[", "]")
		if err != nil {
			return FractionField{}, err
		}
		if len(items) != 2 {
			return FractionField{}, fmt.Errorf("range %q needs two bounds", v)
		}
		lo, err := ParseFraction(items[0])
		if err != nil {
			return FractionField{}, err
		}
		hi, err := ParseFraction(items[1])
		if err != nil {
			return FractionField{}, err
		}
		if lo.Cmp(hi) > 0 {
			return FractionField{}, fmt.Errorf("range %q is empty", v)
		}
		return FractionRange(lo, hi), nil
	case strings.HasPrefix(v, "{"):
		items, err := listItems(v, "{", "}")
		if err != nil {
			return FractionField{}, err
		}
		vs := make([]Fraction, len(items))
		for i, item := range items {
			if vs[i], err = ParseFraction(item); err != nil {
				return FractionField{}, err
			}
		}
		return FractionList(vs...), nil
	}
	f, err := ParseFraction(v)
	if err != nil {
		return FractionField{}, err
	}
	return FractionFixed(f), nil
}

func parseStringField(v string) (StringField, error) {
	if strings.HasPrefix(v, "{") {
		items, err := listItems(v, "{", "}")
		if err != nil {
			return StringField{}, err
		}
		return StrList(items...), nil
	}
	if v == "" {
		return StringField{}, fmt.Errorf("empty value")
	}
	return Str(v), nil
}

func listItems(v, open, closing string) ([]string, error) {
	if !strings.HasPrefix(v, open) || !strings.HasSuffix(v, closing) {
		return nil, fmt.Errorf("unterminated %s in %q", open, v)
	}
	inner := strings.TrimSpace(v[len(open) : len(v)-len(closing)])
	if inner == "" {
		return nil, fmt.Errorf("empty list %q", v)
	}
	items := strings.Split(inner, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items, nil
}

// splitTopLevel splits s on sep, ignoring separators nested in [] or {}.
func splitTopLevel(s string, sep rune) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '[', '{':
			depth++
		case ']', '}':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
