package engine

import (
	"fmt"

	"github.com/roach88/storygram/internal/expr"
	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
)

// Production is a loaded production: its document plus the left-hand side
// as a graph and its expressions parsed once.
type Production struct {
	Doc ir.ProductionDoc
	LHS *graph.World

	conds    []*expr.Expr // by precondition index; nil for Count
	condErrs []error
	exprs    []*expr.Expr // by instruction index; nil when no Expr
	exprErrs []error
}

// NewProduction loads doc's left-hand side. Expression syntax errors are
// kept and surface when the expression is used: a bad Cond rejects every
// variant, a bad Expr fails its instruction.
func NewProduction(doc ir.ProductionDoc) (*Production, error) {
	if doc.LSide.IsEmpty() {
		return nil, fmt.Errorf("production %q: left-hand side has no Locations", doc.Title)
	}
	lhs, err := graph.Load(doc.LSide)
	if err != nil {
		return nil, fmt.Errorf("production %q: left-hand side: %w", doc.Title, err)
	}

	p := &Production{
		Doc:      doc,
		LHS:      lhs,
		conds:    make([]*expr.Expr, len(doc.Preconditions)),
		condErrs: make([]error, len(doc.Preconditions)),
		exprs:    make([]*expr.Expr, len(doc.Instructions)),
		exprErrs: make([]error, len(doc.Instructions)),
	}
	for i, pre := range doc.Preconditions {
		if pre.Cond != "" {
			p.conds[i], p.condErrs[i] = expr.Parse(pre.Cond)
		}
	}
	for i, ins := range doc.Instructions {
		if ins.Expr != "" {
			p.exprs[i], p.exprErrs[i] = expr.Parse(ins.Expr)
		}
	}
	return p, nil
}

// MustProduction is like NewProduction but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustProduction(doc ir.ProductionDoc) *Production {
	p, err := NewProduction(doc)
	if err != nil {
		panic(err)
	}
	return p
}

// LoadProductions loads every document, stopping at the first failure.
func LoadProductions(docs []ir.ProductionDoc) ([]*Production, error) {
	out := make([]*Production, 0, len(docs))
	for _, d := range docs {
		p, err := NewProduction(d)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Title returns the production title.
func (p *Production) Title() string { return p.Doc.Title }

// Main returns the left-hand side's main Location.
func (p *Production) Main() graph.Handle {
	return p.LHS.Locations()[0]
}

// FindProduction returns the production with the given title.
func FindProduction(ps []*Production, title string) (*Production, error) {
	for _, p := range ps {
		if p.Title() == title {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no production titled %q", title)
}
