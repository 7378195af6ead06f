package dispatch

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/bjaus/marker"
)

// ServeManifest registers a GET handler that serves the registry manifest.
// A pattern ending in ".json" serves JSON; anything else serves YAML.
func (r *Router) ServeManifest(reg *marker.Registry, pattern string) error {
	format, contentType := marker.FormatYAML, "application/yaml"
	if strings.HasSuffix(pattern, ".json") {
		format, contentType = marker.FormatJSON, "application/json"
	}

	var buf bytes.Buffer
	if err := reg.WriteManifest(&buf, format); err != nil {
		return err
	}
	body := buf.Bytes()

	return r.Handle(http.MethodGet, pattern, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		//nolint:errcheck,gosec // best-effort write
		w.Write(body)
	}))
}
