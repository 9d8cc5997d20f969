package expr

import (
	"fmt"
	"math"

	"github.com/roach88/storygram/internal/ir"
)

// Env supplies attribute values to an evaluation.
type Env interface {
	Attr(ref, name string) (ir.Value, error)
}

// Attrs is an Env over a fixed map from reference to attributes.
type Attrs map[string]ir.Attributes

// Attr implements Env.
func (a Attrs) Attr(ref, name string) (ir.Value, error) {
	attrs, ok := a[ref]
	if !ok {
		return nil, fmt.Errorf("unknown node %q", ref)
	}
	v, ok := attrs[name]
	if !ok {
		return nil, fmt.Errorf("%s has no attribute %q", ref, name)
	}
	return v, nil
}

// Eval evaluates e against env.
func (e *Expr) Eval(env Env) (ir.Value, error) {
	return eval(e.root, env)
}

// EvalBool evaluates e and requires a boolean result.
func (e *Expr) EvalBool(env Env) (bool, error) {
	v, err := e.Eval(env)
	if err != nil {
		return false, err
	}
	b, ok := v.(ir.Bool)
	if !ok {
		return false, errorf(-1, "condition yields %s, want bool", ir.TypeName(v))
	}
	return bool(b), nil
}

func eval(n Node, env Env) (ir.Value, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil

	case *AttrRef:
		v, err := env.Attr(n.Ref, n.Name)
		if err != nil {
			return nil, &Error{Pos: n.At, Message: err.Error(), Err: err}
		}
		return v, nil

	case *Unary:
		x, err := eval(n.X, env)
		if err != nil {
			return nil, err
		}
		return evalUnary(n, x)

	case *Binary:
		if n.Op == "and" || n.Op == "or" {
			return evalLogical(n, env)
		}
		x, err := eval(n.X, env)
		if err != nil {
			return nil, err
		}
		y, err := eval(n.Y, env)
		if err != nil {
			return nil, err
		}
		return evalBinary(n, x, y)
	}
	return nil, errorf(-1, "unknown node %T", n)
}

func evalUnary(n *Unary, x ir.Value) (ir.Value, error) {
	switch n.Op {
	case "not":
		b, ok := x.(ir.Bool)
		if !ok {
			return nil, errorf(n.At, "not needs bool, got %s", ir.TypeName(x))
		}
		return !b, nil
	case "-":
		switch v := x.(type) {
		case ir.Int:
			return -v, nil
		case ir.Float:
			return -v, nil
		}
		return nil, errorf(n.At, "cannot negate %s", ir.TypeName(x))
	}
	return nil, errorf(n.At, "unknown operator %q", n.Op)
}

func evalLogical(n *Binary, env Env) (ir.Value, error) {
	x, err := eval(n.X, env)
	if err != nil {
		return nil, err
	}
	xb, ok := x.(ir.Bool)
	if !ok {
		return nil, errorf(n.At, "%s needs bool, got %s", n.Op, ir.TypeName(x))
	}
	if (n.Op == "and" && !bool(xb)) || (n.Op == "or" && bool(xb)) {
		return xb, nil
	}
	y, err := eval(n.Y, env)
	if err != nil {
		return nil, err
	}
	yb, ok := y.(ir.Bool)
	if !ok {
		return nil, errorf(n.At, "%s needs bool, got %s", n.Op, ir.TypeName(y))
	}
	return yb, nil
}

func evalBinary(n *Binary, x, y ir.Value) (ir.Value, error) {
	switch n.Op {
	case "==":
		return ir.Bool(ir.Equal(x, y)), nil
	case "!=":
		return ir.Bool(!ir.Equal(x, y)), nil
	case "<", "<=", ">", ">=":
		c, err := compare(n, x, y)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "<":
			return ir.Bool(c < 0), nil
		case "<=":
			return ir.Bool(c <= 0), nil
		case ">":
			return ir.Bool(c > 0), nil
		}
		return ir.Bool(c >= 0), nil
	}

	if n.Op == "+" {
		xs, xok := x.(ir.String)
		ys, yok := y.(ir.String)
		if xok && yok {
			return xs + ys, nil
		}
	}
	return Arith(n.Op, x, y)
}

func compare(n *Binary, x, y ir.Value) (int, error) {
	if xs, ok := x.(ir.String); ok {
		if ys, ok := y.(ir.String); ok {
			switch {
			case xs < ys:
				return -1, nil
			case xs > ys:
				return 1, nil
			}
			return 0, nil
		}
	}
	xf, xok := ir.AsFloat(x)
	yf, yok := ir.AsFloat(y)
	if !xok || !yok {
		return 0, errorf(n.At, "cannot order %s and %s", ir.TypeName(x), ir.TypeName(y))
	}
	switch {
	case xf < yf:
		return -1, nil
	case xf > yf:
		return 1, nil
	}
	return 0, nil
}

// Arith applies a numeric operator. Two Ints stay Int except for "/",
// which divides exactly, and results that overflow int64, which become
// Float. Integral results are normalized to Int.
func Arith(op string, x, y ir.Value) (ir.Value, error) {
	if !ir.IsNumber(x) || !ir.IsNumber(y) {
		return nil, errorf(-1, "%s needs numbers, got %s and %s", op, ir.TypeName(x), ir.TypeName(y))
	}
	xi, xInt := x.(ir.Int)
	yi, yInt := y.(ir.Int)
	if xInt && yInt {
		if op == "%" {
			if yi == 0 {
				return nil, errorf(-1, "modulo by zero")
			}
			return xi % yi, nil
		}
		if r, ok := intArith(op, xi, yi); ok {
			return r, nil
		}
	}

	xf, _ := ir.AsFloat(x)
	yf, _ := ir.AsFloat(y)
	var r float64
	switch op {
	case "+":
		r = xf + yf
	case "-":
		r = xf - yf
	case "*":
		r = xf * yf
	case "/":
		if yf == 0 {
			return nil, errorf(-1, "division by zero")
		}
		r = xf / yf
	case "%":
		if yf == 0 {
			return nil, errorf(-1, "modulo by zero")
		}
		r = math.Mod(xf, yf)
	default:
		return nil, errorf(-1, "unknown operator %q", op)
	}
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return nil, errorf(-1, "%s overflows", op)
	}
	return ir.Normalize(ir.Float(r)), nil
}

// intArith computes +, - and * on Ints. ok is false for other operators
// and when the result does not fit in int64.
func intArith(op string, x, y ir.Int) (r ir.Int, ok bool) {
	switch op {
	case "+":
		r = x + y
		return r, (r > x) == (y > 0)
	case "-":
		r = x - y
		return r, (r < x) == (y > 0)
	case "*":
		if x == 0 || y == 0 {
			return 0, true
		}
		r = x * y
		if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
			return 0, false
		}
		return r, true
	}
	return 0, false
}
