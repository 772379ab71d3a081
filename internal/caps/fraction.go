package caps

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Fraction is a rational number such as a frame rate.
type Fraction struct {
	Num int
	Den int
}

// Frac returns num/den.
func Frac(num, den int) Fraction {
	return Fraction{Num: num, Den: den}
}

// Cmp compares f and o, returning -1, 0 or +1.
func (f Fraction) Cmp(o Fraction) int {
	return f.rat().Cmp(o.rat())
}

// Equal reports whether f and o are the same rational number, so 60/2
// equals 30/1. A zero denominator only equals another zero denominator.
func (f Fraction) Equal(o Fraction) bool {
	if (f.Den == 0) != (o.Den == 0) {
		return false
	}
	return f.Cmp(o) == 0
}

// IsZero reports whether the fraction is 0 or has a zero denominator.
func (f Fraction) IsZero() bool {
	return f.Num == 0 || f.Den == 0
}

func (f Fraction) rat() *big.Rat {
	if f.Den == 0 {
		return new(big.Rat)
	}
	return big.NewRat(int64(f.Num), int64(f.Den))
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// ParseFraction parses "n/d" or a bare integer "n" (meaning n/1).
func ParseFraction(s string) (Fraction, error) {
	s = strings.TrimSpace(s)
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return Fraction{}, fmt.Errorf("invalid fraction %q: %w", s, err)
	}
	d := 1
	if found {
		d, err = strconv.Atoi(strings.TrimSpace(den))
		if err != nil {
			return Fraction{}, fmt.Errorf("invalid fraction %q: %w", s, err)
		}
	}
	if d <= 0 {
		return Fraction{}, fmt.Errorf("invalid fraction %q: denominator must be positive", s)
	}
	return Fraction{Num: n, Den: d}, nil
}

// FractionField constrains a fractional field such as the frame rate.
type FractionField struct {
	Kind   Kind
	Value  Fraction
	Min    Fraction
	Max    Fraction
	Values []Fraction
}

// FractionAny returns an unconstrained fraction field.
func FractionAny() FractionField {
	return FractionField{}
}

// FractionFixed returns a field fixed to v.
func FractionFixed(v Fraction) FractionField {
	return FractionField{Kind: KindFixed, Value: v}
}

// FractionRange returns a field accepting every fraction in [lo, hi].
func FractionRange(lo, hi Fraction) FractionField {
	if lo.Cmp(hi) == 0 {
		return FractionFixed(lo)
	}
	return FractionField{Kind: KindRange, Min: lo, Max: hi}
}

// FractionList returns a field accepting any of vs, in preference order.
func FractionList(vs ...Fraction) FractionField {
	if len(vs) == 1 {
		return FractionFixed(vs[0])
	}
	return FractionField{Kind: KindList, Values: append([]Fraction(nil), vs...)}
}

// IsFixed reports whether f holds exactly one value.
func (f FractionField) IsFixed() bool {
	return f.Kind == KindFixed
}

// Fixed returns the single value of f.
func (f FractionField) Fixed() (Fraction, bool) {
	if f.Kind != KindFixed {
		return Fraction{}, false
	}
	return f.Value, true
}

// Contains reports whether v is permitted by f.
func (f FractionField) Contains(v Fraction) bool {
	switch f.Kind {
	case KindAny:
		return true
	case KindFixed:
		return f.Value.Cmp(v) == 0
	case KindRange:
		return v.Cmp(f.Min) >= 0 && v.Cmp(f.Max) <= 0
	case KindList:
		for _, x := range f.Values {
			if x.Cmp(v) == 0 {
				return true
			}
		}
	}
	return false
}

// Intersect returns the fractions permitted by both f and o.
func (f FractionField) Intersect(o FractionField) (FractionField, bool) {
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
		lo, hi := f.Min, f.Max
		if o.Min.Cmp(lo) > 0 {
			lo = o.Min
		}
		if o.Max.Cmp(hi) < 0 {
			hi = o.Max
		}
		if lo.Cmp(hi) > 0 {
			return FractionField{}, false
		}
		return FractionRange(lo, hi), true
	case f.Kind == KindList:
		return filterFractions(f.Values, o)
	default:
		return filterFractions(o.Values, f)
	}
}

func filterFractions(vs []Fraction, keep FractionField) (FractionField, bool) {
	var out []Fraction
	for _, v := range vs {
		if keep.Contains(v) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return FractionField{}, false
	}
	return FractionList(out...), true
}

// Nearest returns the permitted fraction closest to target. Ties go to the
// lower value.
func (f FractionField) Nearest(target Fraction) (Fraction, bool) {
	switch f.Kind {
	case KindAny:
		return target, true
	case KindFixed:
		return f.Value, true
	case KindRange:
		if f.Min.Cmp(f.Max) > 0 {
			return Fraction{}, false
		}
		switch {
		case target.Cmp(f.Min) < 0:
			return f.Min, true
		case target.Cmp(f.Max) > 0:
			return f.Max, true
		}
		return target, true
	case KindList:
		if len(f.Values) == 0 {
			return Fraction{}, false
		}
		t := target.rat()
		best := f.Values[0]
		bestDist := fractionDistance(best, t)
		for _, v := range f.Values[1:] {
			d := fractionDistance(v, t)
			c := d.Cmp(bestDist)
			if c < 0 || (c == 0 && v.Cmp(best) < 0) {
				best, bestDist = v, d
			}
		}
		return best, true
	}
	return Fraction{}, false
}

func fractionDistance(v Fraction, target *big.Rat) *big.Rat {
	d := new(big.Rat).Sub(v.rat(), target)
	return d.Abs(d)
}

// Equal reports whether f and o describe the same constraint.
func (f FractionField) Equal(o FractionField) bool {
	if f.Kind != o.Kind {
		return false
	}
	switch f.Kind {
	case KindFixed:
		return f.Value.Equal(o.Value)
	case KindRange:
		return f.Min.Equal(o.Min) && f.Max.Equal(o.Max)
	case KindList:
		if len(f.Values) != len(o.Values) {
			return false
		}
		for i := range f.Values {
			if !f.Values[i].Equal(o.Values[i]) {
				return false
			}
		}
	}
	return true
}

func (f FractionField) valid() bool {
	switch f.Kind {
	case KindRange:
		return f.Min.Cmp(f.Max) <= 0
	case KindList:
		return len(f.Values) > 0
	}
	return true
}

func (f FractionField) String() string {
	switch f.Kind {
	case KindFixed:
		return f.Value.String()
	case KindRange:
		return fmt.Sprintf("[ %s, %s ]", f.Min, f.Max)
	case KindList:
		parts := make([]string, len(f.Values))
		for i, v := range f.Values {
			parts[i] = v.String()
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	}
	return ""
}
