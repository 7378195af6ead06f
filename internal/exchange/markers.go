// Package exchange is the node exchange API. Its handlers are routed by
// verb markers and its admin tests are selected by category markers.
package exchange

import (
	"net/http"

	"github.com/bjaus/marker"
	"github.com/bjaus/marker/dispatch"
	"github.com/bjaus/marker/selector"
)

const namespace = "exchange"

// PATCH routes a handler method for HTTP PATCH requests.
var PATCH = marker.MustNew("PATCH", marker.TargetMethod, marker.RetentionRuntime,
	marker.WithNamespace(namespace),
	marker.WithValue(http.MethodPatch),
	marker.WithMeta(dispatch.HTTPMethod),
)

// AdminStatusTest tags tests that exercise the admin status endpoints.
var AdminStatusTest = marker.MustNew("AdminStatusTest", marker.TargetMethod|marker.TargetType, marker.RetentionRuntime,
	marker.WithNamespace(namespace),
	marker.WithMeta(selector.TagAnnotation),
)
