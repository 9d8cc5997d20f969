package compiler

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/storygram/internal/expr"
	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
	"github.com/roach88/storygram/internal/ref"
)

// Validation error codes (E100-E199)
const (
	// Document shape (E100)
	ErrSchema = "E100" // document does not satisfy the CUE schema

	// Production metadata (E101-E102)
	ErrTitleEmpty     = "E101" // Title is required
	ErrDuplicateTitle = "E102" // Title used twice in one document

	// Left-hand side (E103-E107)
	ErrNoLocations                      = "E103" // LSide has no Locations
	ErrLSideLoad                        = "E104" // LSide violates layer rules or has a bad destination
	ErrDuplicateID                      = "E105" // Id not unique in LSide
	ErrNoSubject                        = "E106" // main Location has no IsObject Character
	ErrPreconditionsWithoutInstructions = "E107" // nothing to guard

	// Preconditions and expressions (E108-E110)
	ErrInvalidPrecondition = "E108" // needs exactly one of Cond or Count, Min <= Max
	ErrInvalidExpression   = "E109" // Cond or Expr does not parse
	ErrUnknownReference    = "E110" // reference does not anchor in LSide

	// Instructions (E111-E117)
	ErrUnknownOp          = "E111" // Op not recognised
	ErrMissingParam       = "E112" // required parameter absent
	ErrConflictingParams  = "E113" // mutually exclusive parameters both set
	ErrInvalidDestination = "E114" // To/In is not <ref>/<Layer>
	ErrInvalidAttribute   = "E115" // Attribute is not <ref>.<PascalName>
	ErrInvalidLimiter     = "E116" // unknown *Limiter value
	ErrInvalidSheaf       = "E117" // Sheaf cannot live in the target layer

	// Description (E118)
	ErrUnknownPlaceholder = "E118" // «X» names no LSide Id
)

// ValidationError represents a schema or rule validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var (
	attributeName = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	placeholder   = regexp.MustCompile(`«([^«»]*)»`)
)

// ValidateProductions checks every production and the uniqueness of their
// titles. Fields are prefixed with the production index.
// Returns all errors found (does not fail-fast).
func ValidateProductions(docs []ir.ProductionDoc) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]int)
	for i, doc := range docs {
		prefix := fmt.Sprintf("[%d]", i)
		for _, e := range ValidateProduction(doc) {
			e.Field = prefix + "." + e.Field
			errs = append(errs, e)
		}
		if doc.Title == "" {
			continue
		}
		if first, dup := seen[doc.Title]; dup {
			errs = append(errs, ValidationError{
				Field:   prefix + ".Title",
				Message: fmt.Sprintf("title %q already used by production %d", doc.Title, first),
				Code:    ErrDuplicateTitle,
			})
			continue
		}
		seen[doc.Title] = i
	}
	return errs
}

// ValidateProduction checks the rules the schema cannot express.
// Returns all errors found (does not fail-fast).
func ValidateProduction(doc ir.ProductionDoc) []ValidationError {
	c := &checker{doc: doc}
	if strings.TrimSpace(doc.Title) == "" {
		c.add("Title", ErrTitleEmpty, "title is required and must be non-empty")
	}
	c.checkLSide()
	c.checkPreconditions()
	c.checkInstructions()
	c.checkDescription()
	return c.errs
}

type checker struct {
	doc  ir.ProductionDoc
	lhs  *graph.World // nil when LSide failed to load
	errs []ValidationError
}

func (c *checker) add(field, code, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (c *checker) checkLSide() {
	if c.doc.LSide.IsEmpty() {
		c.add("LSide", ErrNoLocations, "every production must be set in a Location")
		return
	}
	lhs, err := graph.Load(c.doc.LSide)
	if err != nil {
		c.add("LSide", ErrLSideLoad, "%v", err)
		return
	}
	c.lhs = lhs

	ids := make(map[string]int)
	lhs.Walk(func(path []graph.Handle) bool {
		if id := lhs.Get(path[len(path)-1]).Id; id != "" {
			ids[id]++
		}
		return true
	})
	for _, id := range sortedKeys(ids) {
		if ids[id] > 1 {
			c.add("LSide", ErrDuplicateID, "Id %q is used %d times", id, ids[id])
		}
	}

	if len(c.doc.Instructions) == 0 {
		return
	}
	subject := slices.ContainsFunc(lhs.Children(lhs.Locations()[0], graph.Characters), func(h graph.Handle) bool {
		return lhs.Get(h).IsObject
	})
	if !subject {
		c.add("LSide.Locations[0].Characters", ErrNoSubject,
			"the main Location needs a Character marked IsObject as the acting subject")
	}
}

func (c *checker) checkPreconditions() {
	if len(c.doc.Preconditions) > 0 && len(c.doc.Instructions) == 0 {
		c.add("Preconditions", ErrPreconditionsWithoutInstructions, "preconditions given but there are no instructions")
	}
	for i, pre := range c.doc.Preconditions {
		field := fmt.Sprintf("Preconditions[%d]", i)
		switch {
		case pre.Cond != "" && pre.Count != "":
			c.add(field, ErrInvalidPrecondition, "Cond and Count are mutually exclusive")
		case pre.Cond != "":
			c.checkExpr(field+".Cond", pre.Cond)
		case pre.Count != "":
			c.checkRef(field+".Count", pre.Count)
			if pre.Min != nil && pre.Max != nil && *pre.Min > *pre.Max {
				c.add(field, ErrInvalidPrecondition, "Min %d is greater than Max %d", *pre.Min, *pre.Max)
			}
		default:
			c.add(field, ErrInvalidPrecondition, "needs Cond or Count")
		}
	}
}

func (c *checker) checkExpr(field, src string) {
	e, err := expr.Parse(src)
	if err != nil {
		c.add(field, ErrInvalidExpression, "%v", err)
		return
	}
	for _, r := range e.Refs() {
		c.checkRef(field, r.Ref)
	}
}

func (c *checker) checkRef(field, s string) {
	if c.lhs == nil {
		return
	}
	if _, err := ref.Anchor(c.lhs, s); err != nil {
		c.add(field, ErrUnknownReference, "%v", err)
	}
}

func (c *checker) checkInstructions() {
	for i, ins := range c.doc.Instructions {
		field := fmt.Sprintf("Instructions[%d]", i)
		if !ir.ValidOps[ins.Op] {
			c.add(field+".Op", ErrUnknownOp, "unknown operation %q", ins.Op)
			continue
		}
		switch ins.Op {
		case ir.OpMove, ir.OpCopy:
			c.checkSources(field, ins)
			c.checkDestination(field+".To", firstOf(ins.To, ins.In))
		case ir.OpCreate:
			layer, ok := c.checkDestination(field+".In", firstOf(ins.In, ins.To))
			switch {
			case ins.Sheaf == nil:
				c.add(field+".Sheaf", ErrMissingParam, "create needs a Sheaf")
			case ok:
				if _, err := graph.New().Instantiate(*ins.Sheaf, layer); err != nil {
					c.add(field+".Sheaf", ErrInvalidSheaf, "%v", err)
				}
			}
		case ir.OpDelete:
			c.checkSources(field, ins)
			c.checkLimiters(field, ins)
		case ir.OpSet, ir.OpAdd, ir.OpMul:
			c.checkAttribute(field+".Attribute", ins.Attribute)
			switch {
			case ins.Value == nil && ins.Expr == "":
				c.add(field, ErrMissingParam, "%s needs Value or Expr", ins.Op)
			case ins.Value != nil && ins.Expr != "":
				c.add(field, ErrConflictingParams, "Value and Expr are mutually exclusive")
			case ins.Expr != "":
				c.checkExpr(field+".Expr", ins.Expr)
			}
		case ir.OpUnset:
			c.checkAttribute(field+".Attribute", ins.Attribute)
		}
	}
}

func (c *checker) checkSources(field string, ins ir.InstructionDoc) {
	switch {
	case ins.Node == "" && ins.Nodes == "":
		c.add(field, ErrMissingParam, "%s needs Node or Nodes", ins.Op)
	case ins.Node != "" && ins.Nodes != "":
		c.add(field, ErrConflictingParams, "Node and Nodes are mutually exclusive")
	case ins.Node != "":
		c.checkRef(field+".Node", ins.Node)
	default:
		c.checkRef(field+".Nodes", ins.Nodes)
	}
}

func (c *checker) checkDestination(field, spec string) (graph.Layer, bool) {
	if spec == "" {
		c.add(field, ErrMissingParam, "destination is required")
		return 0, false
	}
	i := strings.LastIndex(spec, "/")
	if i <= 0 {
		c.add(field, ErrInvalidDestination, "%q is not <ref>/<Layer>", spec)
		return 0, false
	}
	l, err := graph.ParseLayer(spec[i+1:])
	if err != nil || !l.IsChild() {
		c.add(field, ErrInvalidDestination, "%q does not end in Characters, Items or Narration", spec)
		return 0, false
	}
	c.checkRef(field, spec[:i])
	return l, true
}

func (c *checker) checkAttribute(field, spec string) {
	if spec == "" {
		c.add(field, ErrMissingParam, "Attribute is required")
		return
	}
	i := strings.LastIndex(spec, ".")
	if i <= 0 {
		c.add(field, ErrInvalidAttribute, "%q is not <ref>.<Name>", spec)
		return
	}
	if name := spec[i+1:]; !attributeName.MatchString(name) {
		c.add(field, ErrInvalidAttribute, "attribute name %q must be PascalCase letters and digits", name)
	}
	c.checkRef(field, spec[:i])
}

func (c *checker) checkLimiters(field string, ins ir.InstructionDoc) {
	for name, lim := range map[string]string{
		"ChildrenLimiter":   ins.ChildrenLimiter,
		"CharactersLimiter": ins.CharactersLimiter,
		"ItemsLimiter":      ins.ItemsLimiter,
		"NarrationLimiter":  ins.NarrationLimiter,
	} {
		if !ir.ValidLimiters[lim] {
			c.add(field+"."+name, ErrInvalidLimiter, "unknown limiter %q", lim)
		}
	}
}

func (c *checker) checkDescription() {
	if c.lhs == nil {
		return
	}
	ids := make(map[string]bool)
	c.lhs.Walk(func(path []graph.Handle) bool {
		if id := c.lhs.Get(path[len(path)-1]).Id; id != "" {
			ids[id] = true
		}
		return true
	})
	for _, m := range placeholder.FindAllStringSubmatch(c.doc.Description, -1) {
		if !ids[m[1]] {
			c.add("Description", ErrUnknownPlaceholder, "«%s» is not an Id of the left-hand side", m[1])
		}
	}
}

func firstOf(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
