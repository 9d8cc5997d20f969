package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
	"github.com/roach88/storygram/internal/ref"
)

// variantEnv resolves expression attribute terms through a variant: the
// reference is resolved to a single world node and its attribute is read.
type variantEnv struct {
	lhs   *graph.World
	world *graph.World
	v     Variant
}

func (e variantEnv) Attr(r, name string) (ir.Value, error) {
	p, err := ref.ResolveOne(e.lhs, e.world, e.v, r)
	if err != nil {
		return nil, err
	}
	val, ok := e.world.Get(p.Leaf()).Attr(name)
	if !ok {
		return nil, fmt.Errorf("%s has no attribute %q", r, name)
	}
	return val, nil
}

// Filter keeps the variants that satisfy every precondition of p, in their
// original order. An evaluation error rejects the variant, never the call.
func Filter(world *graph.World, p *Production, variants []Variant) []Variant {
	return filter(slog.Default(), world, p, variants)
}

func filter(log *slog.Logger, world *graph.World, p *Production, variants []Variant) []Variant {
	if len(p.Doc.Preconditions) == 0 {
		return variants
	}
	var out []Variant
	for i, v := range variants {
		ok, err := satisfies(world, p, v)
		switch {
		case err != nil:
			log.Debug("variant rejected",
				"production", p.Title(),
				"variant", i,
				"error", err)
		case !ok:
			log.Debug("variant rejected", "production", p.Title(), "variant", i)
		default:
			out = append(out, v)
		}
	}
	return out
}

// satisfies evaluates the preconditions in order and stops at the first
// one that fails.
func satisfies(world *graph.World, p *Production, v Variant) (bool, error) {
	env := variantEnv{lhs: p.LHS, world: world, v: v}
	for i, pre := range p.Doc.Preconditions {
		switch {
		case pre.Cond != "":
			if err := p.condErrs[i]; err != nil {
				return false, fmt.Errorf("precondition %d: %w", i, err)
			}
			ok, err := p.conds[i].EvalBool(env)
			if err != nil {
				return false, fmt.Errorf("precondition %d: %w", i, err)
			}
			if !ok {
				return false, nil
			}

		case pre.Count != "":
			paths, err := ref.Resolve(p.LHS, world, v, pre.Count)
			if err != nil {
				return false, fmt.Errorf("precondition %d: %w", i, err)
			}
			n := len(paths)
			if pre.Min != nil && n < *pre.Min {
				return false, nil
			}
			if pre.Max != nil && n > *pre.Max {
				return false, nil
			}

		default:
			return false, fmt.Errorf("precondition %d has neither Cond nor Count", i)
		}
	}
	return true, nil
}
