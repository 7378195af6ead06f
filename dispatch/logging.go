package dispatch

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder captures the status code and body size a handler writes.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.size += n
	return n, err
}

// Unwrap supports http.ResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

type routeNoteKey struct{}

// routeNote is filled in by the mounted handler that served the request.
// Outer middleware cannot see r.Pattern once an inner layer copies the
// request.
type routeNote struct {
	route   string
	handler string
}

func noteRoute(ctx context.Context, rt Route) {
	if n, ok := ctx.Value(routeNoteKey{}).(*routeNote); ok {
		n.route = rt.String()
		n.handler = rt.Element.ID()
	}
}

// Logger returns middleware that logs one line per request. Mounted
// routes add the route pattern and the handler method that served it.
// Client errors log at warn level and server errors at error level.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			note := &routeNote{}
			r = r.WithContext(context.WithValue(r.Context(), routeNoteKey{}, note))
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("latency", time.Since(start)),
				slog.Int("size", rec.size),
				slog.String("remote", r.RemoteAddr),
			}

			route := note.route
			if route == "" {
				route = r.Pattern
			}
			if route != "" {
				attrs = append(attrs, slog.String("route", route))
			}
			if note.handler != "" {
				attrs = append(attrs, slog.String("handler", note.handler))
			}
			if id := GetRequestID(r); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}

			level := slog.LevelInfo
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case rec.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}
