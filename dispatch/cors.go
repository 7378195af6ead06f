package dispatch

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	AllowOrigins     []string // default: "*"
	AllowMethods     []string // default: every verb the router has routed
	AllowHeaders     []string // default: Content-Type, Authorization
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int // seconds
}

// CORS returns middleware that handles Cross-Origin Resource Sharing.
// Preflight requests are answered with 204. Unless cfg names them, the
// allowed methods are the verbs mounted on r, so a PATCH handler is
// advertised as soon as it is routed.
func (r *Router) CORS(cfg CORSConfig) Middleware {
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"*"}
	}
	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = []string{"Content-Type", "Authorization"}
	}

	anyOrigin := slices.Contains(cfg.AllowOrigins, "*")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := req.Header.Get("Origin")
			switch {
			case anyOrigin && cfg.AllowCredentials:
				// Browsers reject "*" on credentialed requests.
				if origin != "" {
					h.Set("Access-Control-Allow-Origin", origin)
				}
			case anyOrigin:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(cfg.AllowOrigins, origin):
				h.Set("Access-Control-Allow-Origin", origin)
			}

			h.Set("Access-Control-Allow-Methods", strings.Join(r.allowMethods(cfg.AllowMethods), ", "))
			h.Set("Access-Control-Allow-Headers", headers)
			if expose != "" {
				h.Set("Access-Control-Expose-Headers", expose)
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if maxAge != "" {
				h.Set("Access-Control-Max-Age", maxAge)
			}

			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// allowMethods returns configured, or the routed verbs plus OPTIONS.
func (r *Router) allowMethods(configured []string) []string {
	if len(configured) > 0 {
		return configured
	}
	var methods []string
	for _, rt := range r.Routes() {
		if !slices.Contains(methods, rt.Method) {
			methods = append(methods, rt.Method)
		}
	}
	slices.Sort(methods)
	return append(methods, http.MethodOptions)
}
