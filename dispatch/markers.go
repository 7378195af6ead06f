package dispatch

import (
	"net/http"
	"slices"

	"github.com/bjaus/marker"
)

const namespace = "dispatch"

// HTTPMethod is the meta-marker that makes a marker a verb marker.
var HTTPMethod = marker.MustNew("HttpMethod", marker.TargetMarker, marker.RetentionRuntime,
	marker.WithNamespace(namespace),
)

// Built-in verb markers.
var (
	GET    = verbMarker(http.MethodGet)
	POST   = verbMarker(http.MethodPost)
	PUT    = verbMarker(http.MethodPut)
	DELETE = verbMarker(http.MethodDelete)
)

// Path sets the route pattern of a handler method, or the prefix of every
// route on a type. The pattern is the attachment argument and uses
// http.ServeMux wildcard syntax.
var Path = marker.MustNew("Path", marker.TargetType|marker.TargetMethod, marker.RetentionRuntime,
	marker.WithNamespace(namespace),
	marker.WithParam(),
)

func verbMarker(verb string) *marker.Marker {
	return marker.MustNew(verb, marker.TargetMethod, marker.RetentionRuntime,
		marker.WithNamespace(namespace),
		marker.WithValue(verb),
		marker.WithMeta(HTTPMethod),
	)
}

// Builtins returns the markers declared by this package.
func Builtins() []*marker.Marker {
	return []*marker.Marker{HTTPMethod, GET, POST, PUT, DELETE, Path}
}

// IsVerb reports whether m is a verb marker in reg.
func IsVerb(reg *marker.Registry, m *marker.Marker) bool {
	return reg.Has(marker.MarkerElement(m), HTTPMethod)
}

// Verbs returns the distinct HTTP verbs declared on e, sorted. Two verb
// markers carrying the same verb count once.
func Verbs(reg *marker.Registry, e marker.Element) []string {
	var verbs []string
	for _, m := range reg.Query(e) {
		if IsVerb(reg, m) && !slices.Contains(verbs, m.Value()) {
			verbs = append(verbs, m.Value())
		}
	}
	slices.Sort(verbs)
	return verbs
}
