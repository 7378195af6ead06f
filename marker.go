package marker

import (
	"fmt"
	"slices"
	"strings"
)

// Marker is an immutable, named piece of metadata. It is declared once,
// usually as a package-level variable, and compared by identity.
type Marker struct {
	namespace string
	name      string
	targets   Target
	retention Retention
	value     string
	param     bool
	meta      []*Marker
}

// Option configures a Marker at declaration time.
type Option func(*Marker)

// WithNamespace places the marker in a dot-separated namespace. Two
// markers collide only when both namespace and name match.
func WithNamespace(ns string) Option {
	return func(m *Marker) {
		m.namespace = ns
	}
}

// WithValue sets the fixed semantic value the marker exposes to scanners,
// such as the protocol verb of a verb marker.
func WithValue(v string) Option {
	return func(m *Marker) {
		m.value = v
	}
}

// WithParam declares that every attachment of the marker carries a
// string argument.
func WithParam() Option {
	return func(m *Marker) {
		m.param = true
	}
}

// WithMeta marks the declaration itself with the given meta-markers.
// Each meta-marker must allow TargetMarker.
func WithMeta(meta ...*Marker) Option {
	return func(m *Marker) {
		m.meta = append(m.meta, meta...)
	}
}

// New declares a marker.
func New(name string, targets Target, retention Retention, opts ...Option) (*Marker, error) {
	m := &Marker{
		name:      name,
		targets:   targets,
		retention: retention,
	}
	for _, opt := range opts {
		opt(m)
	}

	if !validName(name) {
		return nil, &DefinitionError{Marker: fmt.Sprintf("%q", name), Err: ErrInvalidName}
	}
	if m.namespace != "" && !validNamespace(m.namespace) {
		return nil, &DefinitionError{Marker: name, Err: fmt.Errorf("%w: namespace %q", ErrInvalidName, m.namespace)}
	}
	if targets.Names() == nil {
		return nil, &DefinitionError{Marker: m.QualifiedName(), Err: ErrNoTargets}
	}
	if !retention.valid() {
		return nil, &DefinitionError{Marker: m.QualifiedName(), Err: ErrInvalidRetention}
	}
	for _, mm := range m.meta {
		if mm == nil {
			return nil, &DefinitionError{Marker: m.QualifiedName(), Err: fmt.Errorf("%w: nil meta-marker", ErrUndeclared)}
		}
		if !mm.targets.Allows(KindMarker) {
			return nil, &DefinitionError{
				Marker:  mm.QualifiedName(),
				Element: "@" + m.QualifiedName(),
				Err:     ErrMisattached,
			}
		}
	}
	m.meta = slices.Clip(m.meta)

	return m, nil
}

// MustNew is like New but panics on error. It is intended for
// package-level marker declarations.
func MustNew(name string, targets Target, retention Retention, opts ...Option) *Marker {
	m, err := New(name, targets, retention, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the marker's unqualified name.
func (m *Marker) Name() string { return m.name }

// Namespace returns the marker's namespace, or "" if it has none.
func (m *Marker) Namespace() string { return m.namespace }

// QualifiedName returns namespace.name, or the bare name when the marker
// has no namespace.
func (m *Marker) QualifiedName() string {
	if m.namespace == "" {
		return m.name
	}
	return m.namespace + "." + m.name
}

// Targets returns the attachment points the marker allows.
func (m *Marker) Targets() Target { return m.targets }

// Retention returns the marker's retention.
func (m *Marker) Retention() Retention { return m.retention }

// Value returns the marker's fixed semantic value.
func (m *Marker) Value() string { return m.value }

// Param reports whether attachments carry an argument.
func (m *Marker) Param() bool { return m.param }

// Meta returns the meta-markers carried by the declaration.
func (m *Marker) Meta() []*Marker { return slices.Clone(m.meta) }

// HasMeta reports whether the declaration carries meta-marker mm.
// Scanners should prefer Registry.Has on MarkerElement(m), which honours
// retention.
func (m *Marker) HasMeta(mm *Marker) bool {
	return slices.Contains(m.meta, mm)
}

// Allows reports whether the marker may be attached to elements of kind k.
func (m *Marker) Allows(k Kind) bool { return m.targets.Allows(k) }

func (m *Marker) String() string {
	return "@" + m.QualifiedName()
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

func validNamespace(ns string) bool {
	for part := range strings.SplitSeq(ns, ".") {
		if !validName(part) {
			return false
		}
	}
	return true
}
