// Package dispatch routes HTTP requests to handler methods discovered
// through verb markers.
//
// A verb marker is any marker whose declaration carries the HTTPMethod
// meta-marker; its value is the protocol verb. The package ships GET,
// POST, PUT and DELETE. Applications declare further verbs the same way,
// and the dispatcher treats them identically:
//
//	var PATCH = marker.MustNew("PATCH", marker.TargetMethod, marker.RetentionRuntime,
//	    marker.WithValue(http.MethodPatch),
//	    marker.WithMeta(dispatch.HTTPMethod),
//	)
//
// Handler methods have the shape
//
//	func (s *Service) UpdateNode(ctx context.Context, req *UpdateReq) (*Node, error)
//
// and are routed by attaching a verb marker and a Path marker:
//
//	b := marker.NewBuilder().Declare(dispatch.Builtins()...).Declare(PATCH)
//	b.AttachArg(dispatch.Path, "/nodes", marker.TypeOf[Service]())
//	b.Attach(PATCH, marker.MethodOf[*Service]("UpdateNode"))
//	b.AttachArg(dispatch.Path, "/{id}", marker.MethodOf[*Service]("UpdateNode"))
//
//	r := dispatch.New()
//	if err := r.Mount(b.MustBuild(), svc); err != nil { ... }
//
// Request types bind path, query and header values from tagged fields and
// decode a JSON body into a Body field, or into the whole struct when it
// has no Body field. Methods without a verb marker are not routed.
//
// Errors are written as RFC 9457 problem details. The package also ships
// the middleware a marker-routed service usually needs: Recovery, Logger,
// RequestID, RateLimit, BodyLimit, Timeout and Router.CORS.
package dispatch
