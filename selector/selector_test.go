package selector_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/bjaus/marker"
	"github.com/bjaus/marker/selector"
)

var (
	adminStatusTest = marker.MustNew("AdminStatusTest", marker.TargetMethod|marker.TargetType, marker.RetentionRuntime,
		marker.WithNamespace("selector_test"),
		marker.WithMeta(selector.TagAnnotation),
	)
	slow = marker.MustNew("Slow", marker.TargetMethod|marker.TargetType, marker.RetentionRuntime,
		marker.WithNamespace("selector_test"),
		marker.WithMeta(selector.TagAnnotation),
	)
	notATag = marker.MustNew("Owner", marker.TargetMethod|marker.TargetType, marker.RetentionRuntime,
		marker.WithNamespace("selector_test"),
	)
)

type AdminEndpointsSuite struct {
	selector.Suite
	ran []string
}

func (s *AdminEndpointsSuite) TestGetStatus()    { s.ran = append(s.ran, "TestGetStatus") }
func (s *AdminEndpointsSuite) TestOrgStatus()    { s.ran = append(s.ran, "TestOrgStatus") }
func (s *AdminEndpointsSuite) TestStatusFields() { s.ran = append(s.ran, "TestStatusFields") }

type NodesSuite struct {
	selector.Suite
	ran      []string
	setup    int
	teardown int
	before   []string
}

func (s *NodesSuite) SetupSuite()    { s.setup++ }
func (s *NodesSuite) TearDownSuite() { s.teardown++ }

// BeforeTest records only the tests that pass selection.
func (s *NodesSuite) BeforeTest(suiteName, testName string) {
	s.Suite.BeforeTest(suiteName, testName)
	s.before = append(s.before, testName)
}

func (s *NodesSuite) TestPatchNode() { s.ran = append(s.ran, "TestPatchNode") }
func (s *NodesSuite) TestAdminOnly() { s.ran = append(s.ran, "TestAdminOnly") }
func (s *NodesSuite) TestSlowScan()  { s.ran = append(s.ran, "TestSlowScan") }

// Check is not a test.
func (s *NodesSuite) Check() {}

func registry(t *testing.T) *marker.Registry {
	t.Helper()

	reg, err := marker.NewBuilder().
		Declare(adminStatusTest, slow, notATag).
		Attach(adminStatusTest, marker.TypeOf[AdminEndpointsSuite]()).
		Attach(adminStatusTest, marker.MethodOf[*NodesSuite]("TestAdminOnly")).
		Attach(slow, marker.MethodOf[*NodesSuite]("TestSlowScan")).
		Attach(notATag, marker.MethodOf[*NodesSuite]("TestPatchNode")).
		Build()
	require.NoError(t, err)
	return reg
}

func TestCategoryMarker_name(t *testing.T) {
	t.Parallel()

	reg := registry(t)
	for _, e := range []marker.Element{
		marker.TypeOf[AdminEndpointsSuite](),
		marker.MethodOf[*NodesSuite]("TestAdminOnly"),
	} {
		ms := reg.Query(e)
		require.Len(t, ms, 1)
		assert.Equal(t, "AdminStatusTest", ms[0].Name())
		assert.Empty(t, ms[0].Value())
	}
}

func TestTags(t *testing.T) {
	t.Parallel()

	reg := registry(t)

	tests := map[string]struct {
		elem   marker.Element
		expect []*marker.Marker
	}{
		"inherited from suite": {elem: marker.MethodOf[*AdminEndpointsSuite]("TestOrgStatus"), expect: []*marker.Marker{adminStatusTest}},
		"suite itself":         {elem: marker.TypeOf[AdminEndpointsSuite](), expect: []*marker.Marker{adminStatusTest}},
		"method tag":           {elem: marker.MethodOf[*NodesSuite]("TestSlowScan"), expect: []*marker.Marker{slow}},
		"non-tag marker":       {elem: marker.MethodOf[*NodesSuite]("TestPatchNode")},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expect, selector.Tags(reg, tc.elem))
		})
	}

	assert.True(t, selector.IsTag(reg, adminStatusTest))
	assert.False(t, selector.IsTag(reg, notATag))
}

func TestSelector_Decide(t *testing.T) {
	t.Parallel()

	reg := registry(t)
	admin := marker.MethodOf[*NodesSuite]("TestAdminOnly")
	slowScan := marker.MethodOf[*NodesSuite]("TestSlowScan")
	plain := marker.MethodOf[*NodesSuite]("TestPatchNode")

	tests := map[string]struct {
		sel    selector.Selector
		elem   marker.Element
		run    bool
		reason string
	}{
		"empty selector runs all":    {elem: plain, run: true},
		"excluded tag":               {sel: selector.Parse("", "AdminStatusTest"), elem: admin, reason: "excluded by tag AdminStatusTest"},
		"exclude by qualified name":  {sel: selector.Parse("", "selector_test.AdminStatusTest"), elem: admin, reason: "excluded by tag AdminStatusTest"},
		"exclude leaves others":      {sel: selector.Parse("", "AdminStatusTest"), elem: plain, run: true},
		"included tag":               {sel: selector.Parse("AdminStatusTest", ""), elem: admin, run: true},
		"include filters untagged":   {sel: selector.Parse("AdminStatusTest", ""), elem: plain, reason: "not tagged AdminStatusTest"},
		"include filters other tags": {sel: selector.Parse("AdminStatusTest", ""), elem: slowScan, reason: "not tagged AdminStatusTest"},
		"exclusion wins":             {sel: selector.Parse("Slow", "Slow"), elem: slowScan, reason: "excluded by tag Slow"},
		"any included tag":           {sel: selector.Parse("AdminStatusTest,Slow", ""), elem: slowScan, run: true},
		"non-tag marker not matched": {sel: selector.Parse("Owner", ""), elem: plain, reason: "not tagged Owner"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			d := tc.sel.Decide(reg, tc.elem)
			assert.Equal(t, tc.run, d.Run)
			assert.Equal(t, tc.reason, d.Reason)
			assert.Equal(t, tc.run, tc.sel.Selected(reg, tc.elem))
		})
	}
}

func TestPlan(t *testing.T) {
	t.Parallel()

	plan := selector.Plan(registry(t), selector.Selector{}, &NodesSuite{})

	var names []string
	for _, d := range plan {
		names = append(names, d.Test)
	}
	assert.Equal(t, []string{"TestAdminOnly", "TestPatchNode", "TestSlowScan"}, names)
	assert.Equal(t, []string{"AdminStatusTest"}, plan[0].Tags)
	assert.Empty(t, plan[1].Tags)
}

func TestRun_exclude_admin_suite(t *testing.T) {
	reg := registry(t)
	sel := selector.Parse("", "AdminStatusTest")

	for _, d := range selector.Plan(reg, sel, &AdminEndpointsSuite{}) {
		assert.False(t, d.Run, d.Test)
	}

	admin := &AdminEndpointsSuite{}
	t.Run("admin", func(t *testing.T) { selector.Run(t, reg, sel, admin) })
	assert.Empty(t, admin.ran)

	nodes := &NodesSuite{}
	t.Run("nodes", func(t *testing.T) { selector.Run(t, reg, sel, nodes) })
	assert.Equal(t, []string{"TestPatchNode", "TestSlowScan"}, nodes.ran)
	assert.Equal(t, []string{"TestPatchNode", "TestSlowScan"}, nodes.before)
	assert.Equal(t, 1, nodes.setup)
	assert.Equal(t, 1, nodes.teardown)
}

func TestRun_include_only_admin(t *testing.T) {
	reg := registry(t)
	sel := selector.Parse("AdminStatusTest", "")

	admin := &AdminEndpointsSuite{}
	t.Run("admin", func(t *testing.T) { selector.Run(t, reg, sel, admin) })
	assert.Equal(t, []string{"TestGetStatus", "TestOrgStatus", "TestStatusFields"}, admin.ran)

	nodes := &NodesSuite{}
	t.Run("nodes", func(t *testing.T) { selector.Run(t, reg, sel, nodes) })
	assert.Equal(t, []string{"TestAdminOnly"}, nodes.ran)
}

func TestRun_no_selected_tests_skips_hooks(t *testing.T) {
	reg := registry(t)

	nodes := &NodesSuite{}
	t.Run("nodes", func(t *testing.T) { selector.Run(t, reg, selector.Parse("NoSuchTag", ""), nodes) })
	assert.Empty(t, nodes.ran)
	assert.Zero(t, nodes.setup)
	assert.Zero(t, nodes.teardown)
}

func TestSuite_without_selection_runs_all(t *testing.T) {
	nodes := &NodesSuite{}
	suite.Run(t, nodes)
	assert.Equal(t, []string{"TestAdminOnly", "TestPatchNode", "TestSlowScan"}, nodes.ran)
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		include string
		exclude string
		expect  selector.Selector
	}{
		"empty":           {},
		"comma list":      {include: "A,B", expect: selector.Selector{Include: []string{"A", "B"}}},
		"space list":      {exclude: "A  B\tC", expect: selector.Selector{Exclude: []string{"A", "B", "C"}}},
		"mixed and dupes": {include: " A, B ,A,", exclude: "C", expect: selector.Selector{Include: []string{"A", "B"}, Exclude: []string{"C"}}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expect, selector.Parse(tc.include, tc.exclude))
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(selector.EnvInclude, "AdminStatusTest")
	t.Setenv(selector.EnvExclude, "Slow,Flaky")

	sel := selector.FromEnv()
	assert.Equal(t, []string{"AdminStatusTest"}, sel.Include)
	assert.Equal(t, []string{"Slow", "Flaky"}, sel.Exclude)
	assert.Equal(t, "include=AdminStatusTest exclude=Slow,Flaky", sel.String())
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		doc    string
		expect selector.Selector
		err    bool
	}{
		"flow lists": {
			doc:    "include: [AdminStatusTest]\nexclude: [Slow]\n",
			expect: selector.Selector{Include: []string{"AdminStatusTest"}, Exclude: []string{"Slow"}},
		},
		"block lists with blanks": {
			doc:    "exclude:\n  - AdminStatusTest\n  - ' '\n  - AdminStatusTest\n",
			expect: selector.Selector{Exclude: []string{"AdminStatusTest"}},
		},
		"empty document": {},
		"unknown key": {
			doc: "includes: [AdminStatusTest]\n",
			err: true,
		},
		"malformed": {
			doc: "include: [AdminStatusTest\n",
			err: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			sel, err := selector.Load(strings.NewReader(tc.doc))
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expect, sel)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "selection.yaml")
	require.NoError(t, os.WriteFile(path, []byte("include: [AdminStatusTest]\n"), 0o600))

	sel, err := selector.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AdminStatusTest"}, sel.Include)

	_, err = selector.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
