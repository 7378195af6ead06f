package marker

import (
	"errors"
	"fmt"
	"log/slog"
)

// Builder collects marker declarations and attachments. Errors are
// recorded as they occur and reported together by Build. A Builder is not
// safe for concurrent use; build the registry once at program start.
type Builder struct {
	logger   *slog.Logger
	declared map[string]*Marker
	attached map[Element]map[*Marker]string
	errs     []error
	spent    bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used to report erased source-retention
// attachments. The default is slog.Default().
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates an empty Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		declared: make(map[string]*Marker),
		attached: make(map[Element]map[*Marker]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Declare places markers in the builder's namespace. A marker's
// meta-markers are declared with it and attached to its declaration.
// Declaring the same *Marker again is a no-op; a different marker with
// the same qualified name is ErrDuplicateMarker.
func (b *Builder) Declare(markers ...*Marker) *Builder {
	for _, m := range markers {
		b.declare(m)
	}
	return b
}

func (b *Builder) declare(m *Marker) {
	if b.spent {
		b.fail(ErrBuilderSpent)
		return
	}
	if m == nil {
		b.fail(fmt.Errorf("%w: nil marker", ErrUndeclared))
		return
	}

	qn := m.QualifiedName()
	if prev, ok := b.declared[qn]; ok {
		if prev != m {
			b.fail(&DefinitionError{Marker: qn, Err: ErrDuplicateMarker})
		}
		return
	}
	b.declared[qn] = m

	for _, mm := range m.meta {
		b.declare(mm)
		b.attach(mm, MarkerElement(m), "", false)
	}
}

// Attach attaches m to each element. Attaching a marker twice to the same
// element is a no-op.
func (b *Builder) Attach(m *Marker, elems ...Element) *Builder {
	for _, e := range elems {
		b.attach(m, e, "", false)
	}
	return b
}

// AttachArg attaches a parameterised marker with the given argument.
func (b *Builder) AttachArg(m *Marker, arg string, elems ...Element) *Builder {
	for _, e := range elems {
		b.attach(m, e, arg, true)
	}
	return b
}

func (b *Builder) attach(m *Marker, e Element, arg string, hasArg bool) {
	if b.spent {
		b.fail(ErrBuilderSpent)
		return
	}
	if m == nil {
		b.fail(&DefinitionError{Element: e.ID(), Err: fmt.Errorf("%w: nil marker", ErrUndeclared)})
		return
	}

	qn := m.QualifiedName()
	defErr := func(err error) {
		b.fail(&DefinitionError{Marker: qn, Element: e.ID(), Err: err})
	}

	if b.declared[qn] != m {
		defErr(ErrUndeclared)
		return
	}
	if !m.Allows(e.kind) {
		defErr(fmt.Errorf("%w: %s allows %s", ErrMisattached, e.kind, m.targets))
		return
	}
	if err := e.resolve(); err != nil {
		defErr(err)
		return
	}
	if e.kind == KindMarker && b.declared[e.marker.QualifiedName()] != e.marker {
		defErr(fmt.Errorf("%w: %s is not declared", ErrUnknownElement, e.marker))
		return
	}
	switch {
	case m.param && !hasArg:
		defErr(ErrMissingArg)
		return
	case !m.param && hasArg:
		defErr(ErrUnexpectedArg)
		return
	}

	set, ok := b.attached[e]
	if !ok {
		set = make(map[*Marker]string)
		b.attached[e] = set
	}
	if prev, ok := set[m]; ok && prev != arg {
		defErr(fmt.Errorf("%w: %q and %q", ErrConflictingArg, prev, arg))
		return
	}
	set[m] = arg
}

func (b *Builder) fail(err error) {
	b.errs = append(b.errs, err)
}

// Build validates the collected definitions and returns the frozen
// Registry. Every recorded error is returned, joined. Source-retention
// attachments are erased and logged at warn level.
func (b *Builder) Build() (*Registry, error) {
	if b.spent {
		return nil, ErrBuilderSpent
	}
	b.spent = true

	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	reg := newRegistry(b.declared)
	for e, set := range b.attached {
		for m, arg := range set {
			if m.retention != RetentionRuntime {
				b.logger.Warn("marker erased at build",
					"marker", m.QualifiedName(),
					"element", e.ID(),
					"retention", m.retention.String(),
				)
				continue
			}
			reg.add(e, m, arg)
		}
	}
	reg.seal()

	return reg, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Registry {
	reg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return reg
}
