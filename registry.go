package marker

import (
	"cmp"
	"maps"
	"slices"
)

// Registry is the frozen set of declared markers and their runtime
// attachments. All methods are safe for concurrent use.
type Registry struct {
	markers  map[string]*Marker
	attached map[Element][]*Marker
	args     map[attachment]string
	elements map[*Marker][]Element
}

type attachment struct {
	elem   Element
	marker *Marker
}

func newRegistry(declared map[string]*Marker) *Registry {
	return &Registry{
		markers:  maps.Clone(declared),
		attached: make(map[Element][]*Marker),
		args:     make(map[attachment]string),
		elements: make(map[*Marker][]Element),
	}
}

func (r *Registry) add(e Element, m *Marker, arg string) {
	r.attached[e] = append(r.attached[e], m)
	r.elements[m] = append(r.elements[m], e)
	if m.param {
		r.args[attachment{elem: e, marker: m}] = arg
	}
}

func (r *Registry) seal() {
	for _, ms := range r.attached {
		slices.SortFunc(ms, compareMarkers)
	}
	for _, es := range r.elements {
		slices.SortFunc(es, compareElements)
	}
}

func compareMarkers(a, b *Marker) int {
	return cmp.Compare(a.QualifiedName(), b.QualifiedName())
}

func compareElements(a, b Element) int {
	return cmp.Or(
		cmp.Compare(a.ID(), b.ID()),
		cmp.Compare(a.kind, b.kind),
	)
}

// Query returns the runtime markers attached directly to e, ordered by
// qualified name. The returned slice is a copy.
func (r *Registry) Query(e Element) []*Marker {
	return slices.Clone(r.attached[e])
}

// Resolve returns the markers attached to e plus, for methods, fields,
// and parameters, those attached to the owning type. A marker on a type
// therefore applies to all of its members.
func (r *Registry) Resolve(e Element) []*Marker {
	direct := r.attached[e]
	owner, ok := e.OwnerType()
	if !ok || len(r.attached[owner]) == 0 {
		return slices.Clone(direct)
	}

	out := slices.Clone(direct)
	for _, m := range r.attached[owner] {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, compareMarkers)
	return out
}

// Has reports whether m is attached directly to e.
func (r *Registry) Has(e Element, m *Marker) bool {
	return slices.Contains(r.attached[e], m)
}

// Arg returns the argument m was attached to e with. ok is false when m
// is not attached to e or takes no argument.
func (r *Registry) Arg(e Element, m *Marker) (string, bool) {
	arg, ok := r.args[attachment{elem: e, marker: m}]
	return arg, ok
}

// Elements returns the elements m is attached to, ordered by ID.
func (r *Registry) Elements(m *Marker) []Element {
	return slices.Clone(r.elements[m])
}

// Lookup finds a declared marker by qualified name, falling back to an
// unqualified name when exactly one declared marker has it.
func (r *Registry) Lookup(name string) (*Marker, bool) {
	if m, ok := r.markers[name]; ok {
		return m, true
	}
	var found *Marker
	for _, m := range r.markers {
		if m.name != name {
			continue
		}
		if found != nil {
			return nil, false
		}
		found = m
	}
	return found, found != nil
}

// Markers returns every declared marker, ordered by qualified name,
// including source-retention markers whose attachments were erased.
func (r *Registry) Markers() []*Marker {
	return slices.SortedFunc(maps.Values(r.markers), compareMarkers)
}

// Attached returns every element carrying at least one runtime marker,
// ordered by ID.
func (r *Registry) Attached() []Element {
	return slices.SortedFunc(maps.Keys(r.attached), compareElements)
}
