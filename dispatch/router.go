package dispatch

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/bjaus/marker"
)

// Router routes requests to mounted handler methods. It implements
// http.Handler.
type Router struct {
	mux        *http.ServeMux
	middleware []Middleware
	routes     []Route

	errorHandler ErrorHandler
	validator    Validator
	logger       *slog.Logger

	mu sync.Mutex
}

// Route is one entry of the routing table.
type Route struct {
	Method  string
	Pattern string
	Element marker.Element
}

func (rt Route) String() string {
	return rt.Method + " " + rt.Pattern
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// ErrorHandler is a custom error response writer.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithErrorHandler sets a custom error handler for the router.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// WithValidator sets a validator run on every decoded request, after the
// request's own Validate.
func WithValidator(v Validator) RouterOption {
	return func(r *Router) {
		r.validator = v
	}
}

// WithLogger sets the logger used for mount diagnostics.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// New creates a new Router with the given options.
func New(opts ...RouterOption) *Router {
	r := &Router{
		mux: http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Use adds middleware to the router. Middleware is applied in the order added.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(r.mux)
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

// Handle registers a plain handler outside of marker discovery, for
// operational endpoints such as the marker manifest.
func (r *Router) Handle(method, pattern string, h http.Handler) error {
	return r.addRoutes(routeEntry{route: Route{Method: method, Pattern: pattern}, handler: h})
}

// Routes returns the routing table ordered by pattern, then method.
func (r *Router) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()

	routes := slices.Clone(r.routes)
	slices.SortFunc(routes, func(a, b Route) int {
		return cmp.Or(cmp.Compare(a.Pattern, b.Pattern), cmp.Compare(a.Method, b.Method))
	})
	return routes
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type routeEntry struct {
	route   Route
	handler http.Handler
}

// addRoutes registers every entry or none. Entries are first tried on a
// scratch mux together with the existing routes, so exact duplicates and
// patterns ServeMux considers conflicting are both ErrRouteConflict.
func (r *Router) addRoutes(entries ...routeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRoutes(entries); err != nil {
		return err
	}
	for _, e := range entries {
		r.mux.Handle(e.route.String(), e.handler)
		r.routes = append(r.routes, e.route)
	}
	return nil
}

func (r *Router) checkRoutes(entries []routeEntry) (err error) {
	all := slices.Clone(r.routes)
	for _, e := range entries {
		for _, existing := range all {
			if existing.Method == e.route.Method && existing.Pattern == e.route.Pattern {
				return fmt.Errorf("%w: %s", ErrRouteConflict, e.route)
			}
		}
		all = append(all, e.route)
	}

	var current Route
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %s: %v", ErrRouteConflict, current, rec)
		}
	}()
	scratch := http.NewServeMux()
	for _, current = range all {
		scratch.Handle(current.String(), http.NotFoundHandler())
	}
	return nil
}
