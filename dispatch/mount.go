package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/bjaus/marker"
)

// Mount errors.
var (
	ErrAmbiguousVerb = errors.New("method carries more than one verb")
	ErrNoPath        = errors.New("verb method has no path")
	ErrHandlerShape  = errors.New("invalid handler method")
	ErrRouteConflict = errors.New("route conflict")
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
	voidPtrType = reflect.TypeFor[*Void]()
)

// Mount scans the exported methods of receiver for verb markers in reg
// and routes each one. Pass a pointer receiver so that pointer methods
// are visible. Nothing is routed if any method is invalid or any route
// conflicts; every problem is reported, joined.
func (r *Router) Mount(reg *marker.Registry, receiver any) error {
	rv := reflect.ValueOf(receiver)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return fmt.Errorf("%w: nil receiver", ErrHandlerShape)
	}
	rt := rv.Type()

	prefix, _ := reg.Arg(marker.Type(rt), Path)

	var (
		routes []routeEntry
		errs   []error
	)

	for i := range rt.NumMethod() {
		m := rt.Method(i)
		elem := marker.Method(rt, m.Name)

		verbs := Verbs(reg, elem)
		switch len(verbs) {
		case 0:
			continue
		case 1:
		default:
			errs = append(errs, fmt.Errorf("%w: %s: %s", ErrAmbiguousVerb, elem.ID(), strings.Join(verbs, ", ")))
			continue
		}

		p, ok := reg.Arg(elem, Path)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoPath, elem.ID()))
			continue
		}

		route := Route{Method: verbs[0], Pattern: joinPattern(prefix, p), Element: elem}
		h, err := r.methodHandler(rv.Method(i), route)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", elem.ID(), err))
			continue
		}

		routes = append(routes, routeEntry{route: route, handler: h})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if err := r.addRoutes(routes...); err != nil {
		return err
	}
	for _, e := range routes {
		r.logger.Debug("route mounted", "route", e.route.String(), "handler", e.route.Element.ID())
	}
	return nil
}

// joinPattern appends a method path to a type prefix.
func joinPattern(prefix, p string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if p == "" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return prefix + p
}

// methodHandler wraps a bound handler method of shape
// func(context.Context, *Req) (*Resp, error) into an http.Handler.
func (r *Router) methodHandler(fn reflect.Value, rt Route) (http.Handler, error) {
	ft := fn.Type()
	if ft.NumIn() != 2 || ft.In(0) != contextType ||
		ft.In(1).Kind() != reflect.Pointer || ft.In(1).Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: want func(context.Context, *Req) (*Resp, error), got %s", ErrHandlerShape, ft)
	}
	if ft.NumOut() != 2 || ft.Out(0).Kind() != reflect.Pointer || ft.Out(1) != errorType {
		return nil, fmt.Errorf("%w: want func(context.Context, *Req) (*Resp, error), got %s", ErrHandlerShape, ft)
	}

	reqType := ft.In(1).Elem()
	errHandler := r.errorHandler
	validator := r.validator

	writeErr := func(w http.ResponseWriter, req *http.Request, err error) {
		if errHandler != nil {
			errHandler(w, req, err)
			return
		}
		writeErrorResponse(w, req, err)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		noteRoute(req.Context(), rt)
		in := reflect.New(reqType)
		if err := decodeRequest(req, in); err != nil {
			status := http.StatusBadRequest
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				status = http.StatusRequestEntityTooLarge
			}
			writeErr(w, req, Error(status, err.Error()))
			return
		}
		if err := validateRequest(in.Interface(), validator); err != nil {
			writeErr(w, req, err)
			return
		}

		out := fn.Call([]reflect.Value{reflect.ValueOf(req.Context()), in})

		if errV := out[1]; !errV.IsNil() {
			writeErr(w, req, errV.Interface().(error))
			return
		}

		resp := out[0]
		if resp.IsNil() || resp.Type() == voidPtrType {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		encodeResponse(w, resp.Interface(), http.StatusOK)
	}), nil
}
