package expr

import (
	"strconv"
	"strings"

	"github.com/roach88/storygram/internal/ir"
)

// Expr is a parsed expression.
type Expr struct {
	src  string
	root Node
}

// Parse parses src into an Expr.
func Parse(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, errorf(t.pos, "unexpected %q", t.text)
	}
	return &Expr{src: src, root: root}, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or with constant input.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

// Source returns the text the expression was parsed from.
func (e *Expr) Source() string { return e.src }

// Root returns the AST.
func (e *Expr) Root() Node { return e.root }

// String returns the fully parenthesized form.
func (e *Expr) String() string { return e.root.String() }

// Refs returns the attribute references in source order.
func (e *Expr) Refs() []*AttrRef {
	var out []*AttrRef
	Walk(e.root, func(n Node) {
		if a, ok := n.(*AttrRef); ok {
			out = append(out, a)
		}
	})
	return out
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

// accept consumes the next token when it is one of the given operators or
// keywords and returns its normalized spelling.
func (p *parser) accept(words ...string) (string, int, bool) {
	t := p.peek()
	if t.kind != tokOp && t.kind != tokIdent {
		return "", 0, false
	}
	for _, w := range words {
		if t.text == w {
			p.next()
			return normalizeOp(w), t.pos, true
		}
	}
	return "", 0, false
}

func normalizeOp(op string) string {
	switch op {
	case "&&":
		return "and"
	case "||":
		return "or"
	case "!":
		return "not"
	}
	return op
}

func (p *parser) parseOr() (Node, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		op, pos, ok := p.accept("or", "||")
		if !ok {
			return x, nil
		}
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = &Binary{At: pos, Op: op, X: x, Y: y}
	}
}

func (p *parser) parseAnd() (Node, error) {
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		op, pos, ok := p.accept("and", "&&")
		if !ok {
			return x, nil
		}
		y, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		x = &Binary{At: pos, Op: op, X: x, Y: y}
	}
}

func (p *parser) parseNot() (Node, error) {
	if op, pos, ok := p.accept("not", "!"); ok {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{At: pos, Op: op, X: x}, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (Node, error) {
	x, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	op, pos, ok := p.accept("==", "!=", "<=", ">=", "<", ">")
	if !ok {
		return x, nil
	}
	y, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	return &Binary{At: pos, Op: op, X: x, Y: y}, nil
}

func (p *parser) parseSum() (Node, error) {
	x, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		op, pos, ok := p.accept("+", "-")
		if !ok {
			return x, nil
		}
		y, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		x = &Binary{At: pos, Op: op, X: x, Y: y}
	}
}

func (p *parser) parseProduct() (Node, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, pos, ok := p.accept("*", "/", "%")
		if !ok {
			return x, nil
		}
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = &Binary{At: pos, Op: op, X: x, Y: y}
	}
}

func (p *parser) parseUnary() (Node, error) {
	if _, pos, ok := p.accept("-"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{At: pos, Op: "-", X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := parseNumber(t.text)
		if err != nil {
			return nil, errorf(t.pos, "bad number %q", t.text)
		}
		return &Literal{At: t.pos, Value: v}, nil

	case tokString:
		return &Literal{At: t.pos, Value: ir.String(t.text)}, nil

	case tokLParen:
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if r := p.next(); r.kind != tokRParen {
			return nil, errorf(r.pos, "expected \")\"")
		}
		return x, nil

	case tokIdent:
		switch t.text {
		case "True", "true":
			return &Literal{At: t.pos, Value: ir.Bool(true)}, nil
		case "False", "false":
			return &Literal{At: t.pos, Value: ir.Bool(false)}, nil
		case "null", "None":
			return &Literal{At: t.pos, Value: ir.Null{}}, nil
		}
		return p.parseAttr(t)

	case tokEOF:
		return nil, errorf(t.pos, "unexpected end of expression")
	}
	return nil, errorf(t.pos, "unexpected %q", t.text)
}

func (p *parser) parseAttr(first token) (Node, error) {
	parts := []string{first.text}
	for p.peek().kind == tokDot {
		p.next()
		t := p.next()
		if t.kind != tokIdent {
			return nil, errorf(t.pos, "expected name after \".\"")
		}
		parts = append(parts, t.text)
	}
	if len(parts) < 2 {
		return nil, errorf(first.pos, "%q must be written as <node>.<attribute>", first.text)
	}
	last := len(parts) - 1
	return &AttrRef{At: first.pos, Ref: strings.Join(parts[:last], "."), Name: parts[last]}, nil
}

func parseNumber(s string) (ir.Value, error) {
	if !strings.Contains(s, ".") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return ir.Int(n), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return ir.Float(f), nil
}
