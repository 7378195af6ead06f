package selector

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/bjaus/marker"
)

// Suite takes the place of suite.Suite in a testify suite. When the suite
// is started with Run, BeforeTest skips every test the selector rules out.
// A suite that defines its own BeforeTest must call Suite.BeforeTest first.
type Suite struct {
	suite.Suite

	reg   *marker.Registry
	sel   Selector
	owner reflect.Type
}

// TestingSuite is a testify suite that embeds Suite.
type TestingSuite interface {
	suite.TestingSuite
	selectorSuite() *Suite
}

func (s *Suite) selectorSuite() *Suite { return s }

// BeforeTest implements suite.BeforeTest.
func (s *Suite) BeforeTest(_, testName string) {
	if s.reg == nil {
		return
	}
	if d := s.sel.Decide(s.reg, marker.Method(s.owner, testName)); !d.Run {
		s.T().Skip(d.Reason)
	}
}

// Plan returns the decision for every test method of s: exported methods
// named TestXxx taking no arguments, as testify runs them. Pass a pointer
// so pointer methods are visible.
func Plan(reg *marker.Registry, sel Selector, s any) []Decision {
	rv := reflect.ValueOf(s)
	rt := rv.Type()

	var plan []Decision
	for i := range rt.NumMethod() {
		m := rt.Method(i)
		if !strings.HasPrefix(m.Name, "Test") || rv.Method(i).Type().NumIn() != 0 {
			continue
		}
		plan = append(plan, sel.Decide(reg, marker.Method(rt, m.Name)))
	}
	return plan
}

// Run runs s with suite.Run, skipping the tests sel rules out. When no
// test is selected t is skipped and no suite hook runs.
func Run(t *testing.T, reg *marker.Registry, sel Selector, s TestingSuite) {
	t.Helper()

	if !slices.ContainsFunc(Plan(reg, sel, s), func(d Decision) bool { return d.Run }) {
		t.Skipf("no test selected (%s)", sel)
	}

	ss := s.selectorSuite()
	ss.reg = reg
	ss.sel = sel
	ss.owner = reflect.TypeOf(s)
	suite.Run(t, s)
}
