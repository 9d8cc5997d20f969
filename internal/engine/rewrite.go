package engine

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/storygram/internal/expr"
	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
	"github.com/roach88/storygram/internal/ref"
)

// ApplyResult describes one application of a production.
type ApplyResult struct {
	// Modified holds the live world nodes touched by successful
	// instructions, in first-touch order without duplicates.
	Modified []graph.Handle

	// Failed holds one error per failed instruction, in instruction order.
	Failed []*OpError

	// RolledBack is set in strict mode when a failure restored the world.
	RolledBack bool
}

// OK reports whether every instruction succeeded.
func (r ApplyResult) OK() bool { return len(r.Failed) == 0 }

// FailedIndices returns the instruction index of every failure.
func (r ApplyResult) FailedIndices() []int {
	out := make([]int, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, f.Index)
	}
	return out
}

// Apply runs p's instructions against world under v, best-effort: a
// failing instruction is logged and skipped.
func Apply(world *graph.World, p *Production, v Variant) ApplyResult {
	return apply(slog.Default(), world, p, v, false)
}

type rewriter struct {
	world *graph.World
	p     *Production
	v     Variant
	env   variantEnv
	log   *slog.Logger

	modified []graph.Handle
	seen     map[graph.Handle]bool
}

func apply(log *slog.Logger, world *graph.World, p *Production, v Variant, strict bool) ApplyResult {
	var snapshot *graph.World
	if strict {
		snapshot = world.Clone()
	}

	rw := &rewriter{
		world: world,
		p:     p,
		v:     v,
		env:   variantEnv{lhs: p.LHS, world: world, v: v},
		log:   log,
		seen:  make(map[graph.Handle]bool),
	}

	var res ApplyResult
	for i, ins := range p.Doc.Instructions {
		oe := rw.exec(i, ins)
		if oe == nil {
			continue
		}
		oe.Index, oe.Op = i, ins.Op
		res.Failed = append(res.Failed, oe)
		log.Warn("instruction failed",
			"production", p.Title(),
			"index", i,
			"op", ins.Op,
			"code", oe.Code,
			"error", oe.Message)

		if strict {
			world.ReplaceWith(snapshot)
			res.RolledBack = true
			log.Warn("production rolled back", "production", p.Title())
			return res
		}
	}

	res.Modified = slices.DeleteFunc(rw.modified, func(h graph.Handle) bool {
		return world.Get(h) == nil
	})
	return res
}

func (rw *rewriter) touch(h graph.Handle) {
	if rw.seen[h] {
		return
	}
	rw.seen[h] = true
	rw.modified = append(rw.modified, h)
}

func (rw *rewriter) exec(i int, ins ir.InstructionDoc) *OpError {
	switch ins.Op {
	case ir.OpMove:
		return rw.move(ins)
	case ir.OpCopy:
		return rw.copy(ins)
	case ir.OpCreate:
		return rw.create(ins)
	case ir.OpDelete:
		return rw.delete(ins)
	case ir.OpSet:
		return rw.set(i, ins)
	case ir.OpAdd, ir.OpMul:
		return rw.arith(i, ins)
	case ir.OpUnset:
		return rw.unset(ins)
	case ir.OpWinning:
		return rw.winning()
	default:
		return opErrorf(ErrCodeUnknownOp, "unknown operation %q", ins.Op)
	}
}

// refOpError maps a resolver failure onto an instruction failure.
func refOpError(err error) *OpError {
	switch ref.CodeOf(err) {
	case ref.ErrCodeAmbiguous:
		return opErrorf(ErrCodeAmbiguous, "%v", err)
	case ref.ErrCodeSyntax:
		return opErrorf(ErrCodeBadParams, "%v", err)
	default:
		return opErrorf(ErrCodeUnresolved, "%v", err)
	}
}

// sources resolves Node (exactly one path) or Nodes (any number).
func (rw *rewriter) sources(ins ir.InstructionDoc) ([]ref.Path, *OpError) {
	switch {
	case ins.Node != "":
		p, err := ref.ResolveOne(rw.p.LHS, rw.world, rw.v, ins.Node)
		if err != nil {
			return nil, refOpError(err)
		}
		return []ref.Path{p}, nil
	case ins.Nodes != "":
		paths, err := ref.Resolve(rw.p.LHS, rw.world, rw.v, ins.Nodes)
		if err != nil {
			return nil, refOpError(err)
		}
		return paths, nil
	}
	return nil, opErrorf(ErrCodeBadParams, "missing Node or Nodes")
}

// target resolves a "<ref>/<Layer>" destination.
func (rw *rewriter) target(dest string) (graph.Handle, graph.Layer, *OpError) {
	if dest == "" {
		return graph.Handle{}, 0, opErrorf(ErrCodeBadParams, "missing destination")
	}
	i := strings.LastIndex(dest, "/")
	if i <= 0 {
		return graph.Handle{}, 0, opErrorf(ErrCodeBadParams, "destination %q is not <ref>/<Layer>", dest)
	}
	l, err := graph.ParseLayer(dest[i+1:])
	if err != nil || !l.IsChild() {
		return graph.Handle{}, 0, opErrorf(ErrCodeBadParams, "destination %q names no child layer", dest)
	}
	p, err := ref.ResolveOne(rw.p.LHS, rw.world, rw.v, dest[:i])
	if err != nil {
		return graph.Handle{}, 0, refOpError(err)
	}
	return p.Leaf(), l, nil
}

// attribute resolves a "<ref>.<Name>" attribute reference.
func (rw *rewriter) attribute(s string) (*graph.Node, string, *OpError) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return nil, "", opErrorf(ErrCodeBadParams, "attribute %q is not <ref>.<Name>", s)
	}
	p, err := ref.ResolveOne(rw.p.LHS, rw.world, rw.v, s[:i])
	if err != nil {
		return nil, "", refOpError(err)
	}
	return rw.world.Get(p.Leaf()), s[i+1:], nil
}

func limited(paths []ref.Path, limit int) []ref.Path {
	if limit > 0 && limit < len(paths) {
		return paths[:limit]
	}
	return paths
}

func destination(ins ir.InstructionDoc, primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

func (rw *rewriter) move(ins ir.InstructionDoc) *OpError {
	paths, oe := rw.sources(ins)
	if oe != nil {
		return oe
	}
	to, layer, oe := rw.target(destination(ins, ins.To, ins.In))
	if oe != nil {
		return oe
	}

	var first *OpError
	for _, p := range limited(paths, ins.Limit) {
		if oe := rw.moveOne(p.Leaf(), to, layer); oe != nil {
			rw.log.Debug("move skipped node", "production", rw.p.Title(), "node", p.Leaf(), "error", oe.Message)
			if first == nil {
				first = oe
			}
		}
	}
	return first
}

func (rw *rewriter) moveOne(h, to graph.Handle, layer graph.Layer) *OpError {
	n := rw.world.Get(h)
	switch {
	case n == nil:
		return opErrorf(ErrCodeUnresolved, "node %s no longer exists", h)
	case n.Layer == graph.Locations:
		return opErrorf(ErrCodeOrphan, "Location %s cannot be moved", n.Label())
	case h == to || rw.world.IsAncestor(h, to):
		return opErrorf(ErrCodeCycle, "cannot move %s into itself", n.Label())
	case n.Layer != layer:
		return opErrorf(ErrCodeBadParams, "%s node %s cannot be placed in %s", n.Layer, n.Label(), layer)
	}

	if err := rw.world.Move(h, to, layer); err != nil {
		if errors.Is(err, graph.ErrNoParent) {
			return opErrorf(ErrCodeOrphan, "%v", err)
		}
		return opErrorf(ErrCodeBadParams, "%v", err)
	}
	rw.touch(h)
	return nil
}

func (rw *rewriter) copy(ins ir.InstructionDoc) *OpError {
	paths, oe := rw.sources(ins)
	if oe != nil {
		return oe
	}
	to, layer, oe := rw.target(destination(ins, ins.To, ins.In))
	if oe != nil {
		return oe
	}

	var first *OpError
	for _, p := range limited(paths, ins.Limit) {
		n := rw.world.Get(p.Leaf())
		if n == nil || n.Layer != layer {
			if first == nil {
				first = opErrorf(ErrCodeBadParams, "%s cannot be copied into %s", p.Leaf(), layer)
			}
			continue
		}
		dup, err := rw.world.CopySubtree(p.Leaf())
		if err != nil {
			return opErrorf(ErrCodeBadParams, "%v", err)
		}
		if err := rw.world.AddChild(to, layer, dup); err != nil {
			return opErrorf(ErrCodeBadParams, "%v", err)
		}
		rw.touch(dup)
	}
	return first
}

func (rw *rewriter) create(ins ir.InstructionDoc) *OpError {
	if ins.Sheaf == nil {
		return opErrorf(ErrCodeBadParams, "missing Sheaf")
	}
	to, layer, oe := rw.target(destination(ins, ins.In, ins.To))
	if oe != nil {
		return oe
	}

	count := 1
	switch {
	case ins.Count != nil:
		count = *ins.Count
	case ins.Limit > 0:
		count = ins.Limit
	}
	if count < 0 {
		return opErrorf(ErrCodeBadParams, "negative Count %d", count)
	}

	// A scratch instantiation rejects a bad Sheaf before the world is touched.
	if _, err := graph.New().Instantiate(*ins.Sheaf, layer); err != nil {
		return opErrorf(ErrCodeBadParams, "Sheaf: %v", err)
	}
	for i := 0; i < count; i++ {
		h, err := rw.world.Instantiate(*ins.Sheaf, layer)
		if err != nil {
			return opErrorf(ErrCodeBadParams, "Sheaf: %v", err)
		}
		if err := rw.world.AddChild(to, layer, h); err != nil {
			return opErrorf(ErrCodeBadParams, "%v", err)
		}
		rw.touch(h)
	}
	return nil
}

// limiters returns the disposition of each child layer on delete; the
// layer-specific limiter overrides ChildrenLimiter.
func limiters(ins ir.InstructionDoc) (map[graph.Layer]string, *OpError) {
	specific := map[graph.Layer]string{
		graph.Characters: ins.CharactersLimiter,
		graph.Items:      ins.ItemsLimiter,
		graph.Narration:  ins.NarrationLimiter,
	}
	out := make(map[graph.Layer]string, len(specific))
	for _, l := range graph.ChildLayers {
		lim := specific[l]
		if lim == "" {
			lim = ins.ChildrenLimiter
		}
		if !ir.ValidLimiters[lim] {
			return nil, opErrorf(ErrCodeBadParams, "unknown %s limiter %q", l, lim)
		}
		out[l] = lim
	}
	return out, nil
}

func (rw *rewriter) delete(ins ir.InstructionDoc) *OpError {
	lims, oe := limiters(ins)
	if oe != nil {
		return oe
	}
	paths, oe := rw.sources(ins)
	if oe != nil {
		return oe
	}

	remaining := len(paths)
	if ins.Limit > 0 {
		remaining = min(remaining, ins.Limit)
	}

	var first *OpError
	for _, p := range paths {
		if remaining == 0 {
			break
		}
		h := p.Leaf()
		n := rw.world.Get(h)
		if n == nil {
			// Already removed with an ancestor.
			continue
		}
		if n.Layer == graph.Locations {
			if first == nil {
				first = opErrorf(ErrCodeOrphan, "Location %s cannot be deleted", n.Label())
			}
			continue
		}
		if l, ok := rw.prohibited(h, lims); ok {
			rw.log.Debug("delete prohibited", "production", rw.p.Title(), "node", n.Label(), "layer", l)
			continue
		}

		parent, _, err := rw.world.FindParent(h)
		if err != nil {
			if first == nil {
				first = opErrorf(ErrCodeOrphan, "%v", err)
			}
			continue
		}
		for _, l := range graph.ChildLayers {
			if lims[l] != ir.LimiterMove {
				continue
			}
			for _, c := range slices.Clone(rw.world.Children(h, l)) {
				if err := rw.world.RemoveChild(h, l, c); err != nil {
					return opErrorf(ErrCodeOrphan, "%v", err)
				}
				if err := rw.world.AddChild(parent, l, c); err != nil {
					return opErrorf(ErrCodeBadParams, "%v", err)
				}
				rw.touch(c)
			}
		}
		if err := rw.world.Delete(h); err != nil {
			return opErrorf(ErrCodeOrphan, "%v", err)
		}
		rw.touch(parent)
		remaining--
	}
	return first
}

func (rw *rewriter) prohibited(h graph.Handle, lims map[graph.Layer]string) (graph.Layer, bool) {
	for _, l := range graph.ChildLayers {
		if lims[l] == ir.LimiterProhibit && len(rw.world.Children(h, l)) > 0 {
			return l, true
		}
	}
	return 0, false
}

// operand returns the instruction's Value, or evaluates its Expr.
func (rw *rewriter) operand(i int, ins ir.InstructionDoc) (ir.Value, *OpError) {
	switch {
	case ins.Value != nil:
		return ins.Value, nil
	case ins.Expr != "":
		if err := rw.p.exprErrs[i]; err != nil {
			return nil, opErrorf(ErrCodeBadParams, "Expr: %v", err)
		}
		v, err := rw.p.exprs[i].Eval(rw.env)
		if err != nil {
			var re *ref.Error
			if errors.As(err, &re) {
				return nil, refOpError(err)
			}
			return nil, opErrorf(ErrCodeBadParams, "Expr: %v", err)
		}
		return v, nil
	}
	return nil, opErrorf(ErrCodeBadParams, "missing Value or Expr")
}

func (rw *rewriter) set(i int, ins ir.InstructionDoc) *OpError {
	n, name, oe := rw.attribute(ins.Attribute)
	if oe != nil {
		return oe
	}
	v, oe := rw.operand(i, ins)
	if oe != nil {
		return oe
	}
	n.SetAttr(name, v)
	rw.touch(n.Handle())
	return nil
}

func (rw *rewriter) arith(i int, ins ir.InstructionDoc) *OpError {
	n, name, oe := rw.attribute(ins.Attribute)
	if oe != nil {
		return oe
	}
	v, oe := rw.operand(i, ins)
	if oe != nil {
		return oe
	}
	if !ir.IsNumber(v) {
		return opErrorf(ErrCodeTypeMismatch, "%s by %s value", ins.Op, ir.TypeName(v))
	}

	op, identity := "+", ir.Value(ir.Int(0))
	if ins.Op == ir.OpMul {
		op, identity = "*", ir.Int(1)
	}
	cur, ok := n.Attr(name)
	if !ok {
		cur = identity
	}
	if !ir.IsNumber(cur) {
		return opErrorf(ErrCodeTypeMismatch, "%s.%s is %s", n.Label(), name, ir.TypeName(cur))
	}
	res, err := expr.Arith(op, cur, v)
	if err != nil {
		return opErrorf(ErrCodeTypeMismatch, "%v", err)
	}
	n.SetAttr(name, res)
	rw.touch(n.Handle())
	return nil
}

func (rw *rewriter) unset(ins ir.InstructionDoc) *OpError {
	n, name, oe := rw.attribute(ins.Attribute)
	if oe != nil {
		return oe
	}
	if _, ok := n.Attr(name); !ok {
		return opErrorf(ErrCodeMissingAttribute, "%s has no attribute %q", n.Label(), name)
	}
	delete(n.Attributes, name)
	rw.touch(n.Handle())
	return nil
}

// winning flags the world Character bound to the first pattern Character
// of the main Location.
func (rw *rewriter) winning() *OpError {
	kids := rw.p.LHS.Children(rw.p.Main(), graph.Characters)
	if len(kids) == 0 {
		return opErrorf(ErrCodeUnresolved, "main Location has no Character to flag")
	}
	h, ok := rw.v.WorldOf(kids[0])
	if !ok || rw.world.Get(h) == nil {
		return opErrorf(ErrCodeUnresolved, "first Character is not bound")
	}
	rw.world.Get(h).SetAttr(WinnerAttribute, ir.Bool(true))
	rw.touch(h)
	return nil
}

// WinnerAttribute is the flag set by the winning operation.
const WinnerAttribute = "IsWinner"
