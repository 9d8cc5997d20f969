package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
	"github.com/roach88/storygram/internal/ref"
	"github.com/roach88/storygram/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the steps taken to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Steps    []StepResult // Steps taken, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Steps) > 0 {
		fmt.Fprintf(&buf, "\nSteps:\n")
		for i, s := range e.Steps {
			status := "applied"
			if !s.Applied {
				status = "skipped"
			}
			fmt.Fprintf(&buf, "  [%d] %s @ %s (%s, modified %v, failed %v)\n",
				i+1, s.Production, s.Location, status, s.Modified, s.Failed)
		}
	}

	return buf.String()
}

// AssertionContext provides what assertions are evaluated against.
type AssertionContext struct {
	World *graph.World
	Store *store.Store // for history_count
	Ctx   context.Context
	Steps []StepResult
}

// EvaluateAssertions evaluates all assertions.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertAttributeEquals:
		return assertAttributeEquals(actx, a)
	case AssertAttributeAbsent:
		return assertAttributeAbsent(actx, a)
	case AssertNodeCount:
		return assertNodeCount(actx, a)
	case AssertNodePresent:
		return assertNodePresence(actx, a, true)
	case AssertNodeAbsent:
		return assertNodePresence(actx, a, false)
	case AssertNodeIn:
		return assertNodeIn(actx, a)
	case AssertHistoryCount:
		return assertHistoryCount(actx, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func (actx *AssertionContext) fail(typ, expected, actual string) error {
	return &AssertionError{Type: typ, Expected: expected, Actual: actual, Steps: actx.Steps}
}

// node resolves a single node by reference, reporting resolution failures
// as assertion failures of type typ.
func (actx *AssertionContext) node(typ, name string) (*graph.Node, error) {
	path, err := ref.ResolveOneIn(actx.World, name)
	if err != nil {
		return nil, actx.fail(typ, fmt.Sprintf("exactly one node %q", name), err.Error())
	}
	return actx.World.Get(path.Leaf()), nil
}

// assertAttributeEquals checks a node's attribute value. Numbers compare
// by value, so 15 matches 15.0.
func assertAttributeEquals(actx *AssertionContext, a Assertion) error {
	want, err := ir.ValueOf(a.Value)
	if err != nil {
		return fmt.Errorf("attribute_equals: value: %w", err)
	}
	n, err := actx.node(AssertAttributeEquals, a.Node)
	if err != nil {
		return err
	}
	got, ok := n.Attr(a.Attribute)
	if !ok {
		return actx.fail(AssertAttributeEquals,
			fmt.Sprintf("%s.%s = %s", a.Node, a.Attribute, ir.FormatValue(want)),
			"attribute not set")
	}
	if !ir.Equal(want, got) {
		return actx.fail(AssertAttributeEquals,
			fmt.Sprintf("%s.%s = %s", a.Node, a.Attribute, ir.FormatValue(want)),
			fmt.Sprintf("%s.%s = %s", a.Node, a.Attribute, ir.FormatValue(got)))
	}
	return nil
}

func assertAttributeAbsent(actx *AssertionContext, a Assertion) error {
	n, err := actx.node(AssertAttributeAbsent, a.Node)
	if err != nil {
		return err
	}
	if got, ok := n.Attr(a.Attribute); ok {
		return actx.fail(AssertAttributeAbsent,
			fmt.Sprintf("%s has no %s", a.Node, a.Attribute),
			fmt.Sprintf("%s.%s = %s", a.Node, a.Attribute, ir.FormatValue(got)))
	}
	return nil
}

func assertNodeCount(actx *AssertionContext, a Assertion) error {
	paths, err := ref.ResolveIn(actx.World, a.Ref)
	if err != nil {
		return fmt.Errorf("node_count: %w", err)
	}
	if len(paths) != *a.Count {
		return actx.fail(AssertNodeCount,
			fmt.Sprintf("%d nodes at %s", *a.Count, a.Ref),
			fmt.Sprintf("%d nodes", len(paths)))
	}
	return nil
}

func assertNodePresence(actx *AssertionContext, a Assertion, present bool) error {
	paths, err := ref.ResolveIn(actx.World, a.Node)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Type, err)
	}
	switch {
	case present && len(paths) == 0:
		return actx.fail(AssertNodePresent, fmt.Sprintf("node %s present", a.Node), "not found")
	case !present && len(paths) > 0:
		return actx.fail(AssertNodeAbsent, fmt.Sprintf("node %s absent", a.Node),
			fmt.Sprintf("%d found", len(paths)))
	}
	return nil
}

func assertNodeIn(actx *AssertionContext, a Assertion) error {
	n, err := actx.node(AssertNodeIn, a.Node)
	if err != nil {
		return err
	}
	owner := "no parent"
	if p := actx.World.Get(n.Parent()); p != nil {
		if p.Name == a.Parent || p.Id == a.Parent {
			return nil
		}
		owner = p.Label()
	}
	return actx.fail(AssertNodeIn, fmt.Sprintf("%s owned by %s", a.Node, a.Parent), owner)
}

func assertHistoryCount(actx *AssertionContext, a Assertion) error {
	if actx.Store == nil {
		return fmt.Errorf("history_count: no history store")
	}
	moves, err := actx.Store.MovesByProduction(actx.Ctx, a.Production)
	if err != nil {
		return fmt.Errorf("history_count: %w", err)
	}
	if len(moves) != *a.Count {
		return actx.fail(AssertHistoryCount,
			fmt.Sprintf("%q applied %d times", a.Production, *a.Count),
			fmt.Sprintf("%d times", len(moves)))
	}
	return nil
}
