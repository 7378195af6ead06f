package marker

import "strings"

// Kind is the kind of program element a marker is attached to.
type Kind uint8

// Element kinds.
const (
	KindType Kind = iota + 1
	KindMethod
	KindField
	KindParameter
	KindMarker
)

var kindNames = map[Kind]string{
	KindType:      "type",
	KindMethod:    "method",
	KindField:     "field",
	KindParameter: "parameter",
	KindMarker:    "marker",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// Target returns the attachment point bit for the kind.
func (k Kind) Target() Target {
	if _, ok := kindNames[k]; !ok {
		return 0
	}
	return Target(1) << (k - 1)
}

// Target is a set of attachment points.
type Target uint8

// Attachment points. TargetMarker permits a marker to be placed on another
// marker's declaration, making it a meta-marker.
const (
	TargetType Target = 1 << iota
	TargetMethod
	TargetField
	TargetParameter
	TargetMarker
)

// Allows reports whether elements of kind k may carry the marker.
func (t Target) Allows(k Kind) bool {
	bit := k.Target()
	return bit != 0 && t&bit != 0
}

// Names returns the attachment points in the set, in declaration order.
func (t Target) Names() []string {
	var names []string
	for k := KindType; k <= KindMarker; k++ {
		if t.Allows(k) {
			names = append(names, k.String())
		}
	}
	return names
}

func (t Target) String() string {
	if t == 0 {
		return "none"
	}
	return strings.Join(t.Names(), "|")
}

// Retention controls whether a marker survives into the built Registry.
type Retention uint8

// Retention policies. Source-retained markers document intent only; Build
// erases them, so scanners never observe them.
const (
	RetentionSource Retention = iota + 1
	RetentionRuntime
)

func (r Retention) String() string {
	switch r {
	case RetentionSource:
		return "source"
	case RetentionRuntime:
		return "runtime"
	default:
		return "invalid"
	}
}

func (r Retention) valid() bool {
	return r == RetentionSource || r == RetentionRuntime
}
