// Package marker declares named, runtime-retained metadata markers and
// attaches them to program elements. It is the Go rendition of
// annotation-driven frameworks: Go has no annotations, so markers are
// declared as values, attached through a Builder, and frozen into an
// immutable Registry that scanners query.
//
// A marker carries no behavior. It has a name, the set of element kinds it
// may be attached to, a retention, and optionally a fixed value and the
// meta-markers that classify it:
//
//	var HTTPMethod = marker.MustNew("HttpMethod", marker.TargetMarker, marker.RetentionRuntime)
//
//	var PATCH = marker.MustNew("PATCH", marker.TargetMethod, marker.RetentionRuntime,
//	    marker.WithNamespace("exchange"),
//	    marker.WithValue(http.MethodPatch),
//	    marker.WithMeta(HTTPMethod),
//	)
//
// Attachments are collected by a Builder and validated when it is built.
// Misattachment, unknown elements, and name collisions are reported by
// Build, so a bad declaration fails at program start rather than while a
// request is being served:
//
//	b := marker.NewBuilder()
//	b.Declare(PATCH)
//	b.Attach(PATCH, marker.MethodOf[*Nodes]("UpdateResource"))
//	reg, err := b.Build()
//
// Scanners read the Registry:
//
//	for _, m := range reg.Query(marker.MethodOf[*Nodes]("UpdateResource")) {
//	    if reg.Has(marker.MarkerElement(m), HTTPMethod) {
//	        // m.Value() is the verb
//	    }
//	}
//
// The Registry never changes after Build, so any number of goroutines may
// query it concurrently.
package marker
