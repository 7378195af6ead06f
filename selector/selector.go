// Package selector includes or excludes tests by category markers.
//
// A category marker is any marker whose declaration carries the
// TagAnnotation meta-marker. The category is the marker's own name;
// it carries no value. Tags may be attached to a test method or to a
// whole suite type, in which case they apply to every test in the suite.
package selector

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bjaus/marker"
)

// Environment variables read by FromEnv.
const (
	EnvInclude = "MARKER_INCLUDE"
	EnvExclude = "MARKER_EXCLUDE"
)

// TagAnnotation is the meta-marker that makes a marker a test tag.
var TagAnnotation = marker.MustNew("TagAnnotation", marker.TargetMarker, marker.RetentionRuntime,
	marker.WithNamespace("selector"),
)

// IsTag reports whether m is a test tag in reg.
func IsTag(reg *marker.Registry, m *marker.Marker) bool {
	return reg.Has(marker.MarkerElement(m), TagAnnotation)
}

// Tags returns the tags that apply to e, including those inherited from
// its suite type, ordered by qualified name.
func Tags(reg *marker.Registry, e marker.Element) []*marker.Marker {
	var tags []*marker.Marker
	for _, m := range reg.Resolve(e) {
		if IsTag(reg, m) {
			tags = append(tags, m)
		}
	}
	return tags
}

// Selector decides which tests run. Entries match a tag by name or by
// qualified name. Exclusion wins over inclusion; an empty Include list
// includes everything not excluded.
type Selector struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Parse builds a Selector from comma- or space-separated tag lists.
func Parse(include, exclude string) Selector {
	return Selector{
		Include: splitList(include),
		Exclude: splitList(exclude),
	}
}

// FromEnv builds a Selector from MARKER_INCLUDE and MARKER_EXCLUDE.
func FromEnv() Selector {
	return Parse(os.Getenv(EnvInclude), os.Getenv(EnvExclude))
}

// Load reads a YAML selection document:
//
//	include: [AdminStatusTest]
//	exclude: [Slow]
func Load(r io.Reader) (Selector, error) {
	var s Selector
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Selector{}, fmt.Errorf("decode selection: %w", err)
	}
	s.Include = normalise(s.Include)
	s.Exclude = normalise(s.Exclude)
	return s, nil
}

// LoadFile reads a YAML selection document from path.
func LoadFile(path string) (Selector, error) {
	f, err := os.Open(path)
	if err != nil {
		return Selector{}, fmt.Errorf("open selection: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only
	return Load(f)
}

// Decision is the outcome for one test.
type Decision struct {
	Test    string
	Element marker.Element
	Tags    []string
	Run     bool
	Reason  string
}

// Decide applies the selector to e.
func (s Selector) Decide(reg *marker.Registry, e marker.Element) Decision {
	tags := Tags(reg, e)
	d := Decision{Test: e.Name(), Element: e, Run: true}
	for _, m := range tags {
		d.Tags = append(d.Tags, m.Name())
	}

	for _, m := range tags {
		if matches(s.Exclude, m) {
			d.Run = false
			d.Reason = "excluded by tag " + m.Name()
			return d
		}
	}

	if len(s.Include) == 0 {
		return d
	}
	for _, m := range tags {
		if matches(s.Include, m) {
			return d
		}
	}
	d.Run = false
	d.Reason = "not tagged " + strings.Join(s.Include, " or ")
	return d
}

// Selected reports whether the test at e should run.
func (s Selector) Selected(reg *marker.Registry, e marker.Element) bool {
	return s.Decide(reg, e).Run
}

func (s Selector) String() string {
	return fmt.Sprintf("include=%s exclude=%s", strings.Join(s.Include, ","), strings.Join(s.Exclude, ","))
}

func matches(entries []string, m *marker.Marker) bool {
	return slices.Contains(entries, m.Name()) || slices.Contains(entries, m.QualifiedName())
}

func splitList(s string) []string {
	return normalise(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	}))
}

func normalise(list []string) []string {
	var out []string
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
