package dispatch

import (
	"encoding/json"
	"errors"
	"net/http"
)

// HeaderSetter is optionally implemented by response types to set response headers.
type HeaderSetter interface {
	SetHeaders(h http.Header)
}

// encodeResponse writes resp as JSON. A response implementing StatusCoder
// overrides the default status.
func encodeResponse(w http.ResponseWriter, resp any, defaultStatus int) {
	if hs, ok := resp.(HeaderSetter); ok {
		hs.SetHeaders(w.Header())
	}

	status := defaultStatus
	if sc, ok := resp.(StatusCoder); ok {
		status = sc.StatusCode()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(resp)
}

// writeErrorResponse writes err as an RFC 9457 problem details response.
// The instance is the request path unless err already names one.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var (
		problem ProblemDetail
		pd      *ProblemDetail
	)
	if errors.As(err, &pd) {
		problem = *pd
	} else {
		status := ErrorStatus(err)
		problem.Type = "about:blank"
		problem.Title = http.StatusText(status)
		problem.Status = status
		problem.Detail = err.Error()
	}
	if problem.Instance == "" && r != nil {
		problem.Instance = r.URL.Path
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(&problem)
}
