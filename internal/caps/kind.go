package caps

// Kind describes how a field is constrained.
type Kind int

// Field kinds.
const (
	KindAny Kind = iota
	KindFixed
	KindRange
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindFixed:
		return "fixed"
	case KindRange:
		return "range"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}
