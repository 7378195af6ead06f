package marker

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects a manifest encoding.
type Format string

// Manifest encodings.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Manifest is a serialisable listing of a Registry.
type Manifest struct {
	Markers     []MarkerInfo     `json:"markers" yaml:"markers"`
	Attachments []AttachmentInfo `json:"attachments" yaml:"attachments"`
}

// MarkerInfo describes one declared marker.
type MarkerInfo struct {
	Name      string   `json:"name" yaml:"name"`
	Targets   []string `json:"targets" yaml:"targets"`
	Retention string   `json:"retention" yaml:"retention"`
	Value     string   `json:"value,omitempty" yaml:"value,omitempty"`
	Param     bool     `json:"param,omitempty" yaml:"param,omitempty"`
	Meta      []string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// AttachmentInfo lists the runtime markers on one element.
type AttachmentInfo struct {
	Element string         `json:"element" yaml:"element"`
	Kind    string         `json:"kind" yaml:"kind"`
	Markers []AttachedInfo `json:"markers" yaml:"markers"`
}

// AttachedInfo is a marker reference with its attachment argument.
type AttachedInfo struct {
	Name string `json:"name" yaml:"name"`
	Arg  string `json:"arg,omitempty" yaml:"arg,omitempty"`
}

// Manifest renders the registry as a Manifest.
func (r *Registry) Manifest() Manifest {
	var man Manifest
	for _, m := range r.Markers() {
		info := MarkerInfo{
			Name:      m.QualifiedName(),
			Targets:   m.targets.Names(),
			Retention: m.retention.String(),
			Value:     m.value,
			Param:     m.param,
		}
		for _, mm := range m.meta {
			info.Meta = append(info.Meta, mm.QualifiedName())
		}
		man.Markers = append(man.Markers, info)
	}

	for _, e := range r.Attached() {
		ai := AttachmentInfo{Element: e.ID(), Kind: e.kind.String()}
		for _, m := range r.attached[e] {
			arg, _ := r.Arg(e, m)
			ai.Markers = append(ai.Markers, AttachedInfo{Name: m.QualifiedName(), Arg: arg})
		}
		man.Attachments = append(man.Attachments, ai)
	}

	return man
}

// WriteManifest encodes the registry manifest to w.
func (r *Registry) WriteManifest(w io.Writer, format Format) error {
	man := r.Manifest()
	switch format {
	case FormatYAML, "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(man); err != nil {
			return fmt.Errorf("encode manifest: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(man); err != nil {
			return fmt.Errorf("encode manifest: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported manifest format %q", format)
	}
}
