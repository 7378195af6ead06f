package dispatch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

// maxRequestIDLen bounds client-supplied request IDs.
const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header    string        // default: "X-Request-ID"
	Generator func() string // default: 32 hex characters
}

// RequestID returns middleware that tags each request with an ID. A
// client-supplied ID is kept when it is printable ASCII of at most 128
// bytes; otherwise a fresh one is generated. The ID is echoed in the
// response header and is available to handler methods via RequestIDFrom.
func RequestID(cfg ...RequestIDConfig) Middleware {
	header, generate := "X-Request-ID", newRequestID
	if len(cfg) > 0 {
		if cfg[0].Header != "" {
			header = cfg[0].Header
		}
		if cfg[0].Generator != nil {
			generate = cfg[0].Generator
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(header)
			if !validRequestID(id) {
				id = generate()
			}
			w.Header().Set(header, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// GetRequestID returns the request ID of r, or "".
func GetRequestID(r *http.Request) string {
	return RequestIDFrom(r.Context())
}

// RequestIDFrom returns the request ID carried by a handler context, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := range len(id) {
		if id[i] < '!' || id[i] > '~' {
			return false
		}
	}
	return true
}

func newRequestID() string {
	b := make([]byte, 16)
	//nolint:errcheck,gosec // crypto/rand.Read never returns an error
	rand.Read(b)
	return hex.EncodeToString(b)
}
