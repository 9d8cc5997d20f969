package expr

import (
	"strings"

	"github.com/roach88/storygram/internal/ir"
)

// Node is an expression AST node.
type Node interface {
	Pos() int
	String() string
}

// Literal is a constant.
type Literal struct {
	At    int
	Value ir.Value
}

// AttrRef reads attribute Name of the node addressed by Ref.
type AttrRef struct {
	At   int
	Ref  string
	Name string
}

// Unary is "-x" or "not x".
type Unary struct {
	At int
	Op string
	X  Node
}

// Binary is "x op y". Logical operators are normalized to "and"/"or".
type Binary struct {
	At   int
	Op   string
	X, Y Node
}

func (n *Literal) Pos() int { return n.At }
func (n *AttrRef) Pos() int { return n.At }
func (n *Unary) Pos() int   { return n.At }
func (n *Binary) Pos() int  { return n.At }

func (n *Literal) String() string {
	if s, ok := n.Value.(ir.String); ok {
		return quote(string(s))
	}
	return ir.FormatValue(n.Value)
}

func (n *AttrRef) String() string { return n.Ref + "." + n.Name }

func (n *Unary) String() string {
	if n.Op == "not" {
		return "(not " + n.X.String() + ")"
	}
	return "(" + n.Op + n.X.String() + ")"
}

func (n *Binary) String() string {
	return "(" + n.X.String() + " " + n.Op + " " + n.Y.String() + ")"
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

// Walk calls fn for n and every node below it, parents first.
func Walk(n Node, fn func(Node)) {
	fn(n)
	switch n := n.(type) {
	case *Unary:
		Walk(n.X, fn)
	case *Binary:
		Walk(n.X, fn)
		Walk(n.Y, fn)
	}
}
