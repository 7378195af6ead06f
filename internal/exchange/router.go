package exchange

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bjaus/marker"
	"github.com/bjaus/marker/dispatch"
)

// ManifestPattern is where NewRouter serves the marker manifest.
const ManifestPattern = "/markers.yaml"

// routes maps each Nodes handler to its verb marker and pattern.
var routes = []struct {
	method  string
	verb    *marker.Marker
	pattern string
}{
	{"ListNodes", dispatch.GET, "/nodes"},
	{"CreateNode", dispatch.POST, "/nodes"},
	{"GetNode", dispatch.GET, "/nodes/{id}"},
	{"ReplaceNode", dispatch.PUT, "/nodes/{id}"},
	{"UpdateResource", PATCH, "/nodes/{id}"},
	{"DeleteNode", dispatch.DELETE, "/nodes/{id}"},
	{"AdminStatus", dispatch.GET, "/admin/status"},
}

// Builder returns a builder holding every exchange declaration and
// handler attachment. Tests extend it with tags on their own suites.
func Builder(opts ...marker.BuilderOption) *marker.Builder {
	b := marker.NewBuilder(opts...).
		Declare(dispatch.Builtins()...).
		Declare(PATCH, AdminStatusTest)
	for _, rt := range routes {
		e := marker.MethodOf[*Nodes](rt.method)
		b.Attach(rt.verb, e).AttachArg(dispatch.Path, rt.pattern, e)
	}
	return b
}

// Registry returns the process-wide registry, built on first use.
var Registry = sync.OnceValue(func() *marker.Registry {
	return Builder().MustBuild()
})

// Defaults applied by NewRouter.
const (
	DefaultBodyLimit = 1 << 20
	DefaultTimeout   = 30 * time.Second
)

type config struct {
	logger    *slog.Logger
	registry  *marker.Registry
	limit     *dispatch.RateLimitConfig
	manifest  string
	bodyLimit int64
	timeout   time.Duration
	cors      *dispatch.CORSConfig
}

// Option configures NewRouter.
type Option func(*config)

// WithLogger sets the logger for request logs, panics and mount diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithRegistry mounts against reg instead of Registry().
func WithRegistry(reg *marker.Registry) Option {
	return func(c *config) {
		c.registry = reg
	}
}

// WithRateLimit limits each client to rps requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *config) {
		c.limit = &dispatch.RateLimitConfig{Rate: rps, Burst: burst}
	}
}

// WithBodyLimit caps request bodies at n bytes.
func WithBodyLimit(n int64) Option {
	return func(c *config) {
		c.bodyLimit = n
	}
}

// WithTimeout bounds each request by d.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithCORS answers cross-origin requests from origins; none allows any.
func WithCORS(origins ...string) Option {
	return func(c *config) {
		c.cors = &dispatch.CORSConfig{
			AllowOrigins:  origins,
			ExposeHeaders: []string{"X-Request-ID"},
		}
	}
}

// WithManifest serves the marker manifest at pattern. An empty pattern
// disables it.
func WithManifest(pattern string) Option {
	return func(c *config) {
		c.manifest = pattern
	}
}

// NewRouter returns a router serving nodes.
func NewRouter(nodes *Nodes, opts ...Option) (*dispatch.Router, error) {
	c := config{
		manifest:  ManifestPattern,
		bodyLimit: DefaultBodyLimit,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.registry == nil {
		c.registry = Registry()
	}

	r := dispatch.New(dispatch.WithLogger(c.logger))
	r.Use(dispatch.RequestID(), dispatch.Logger(c.logger), dispatch.Recovery(c.logger))
	if c.cors != nil {
		r.Use(r.CORS(*c.cors))
	}
	if c.limit != nil {
		r.Use(dispatch.RateLimit(*c.limit))
	}
	r.Use(dispatch.BodyLimit(c.bodyLimit), dispatch.Timeout(c.timeout))

	if err := r.Mount(c.registry, nodes); err != nil {
		return nil, err
	}
	if c.manifest != "" {
		if err := r.ServeManifest(c.registry, c.manifest); err != nil {
			return nil, err
		}
	}
	return r, nil
}
