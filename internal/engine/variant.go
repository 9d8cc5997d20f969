package engine

import (
	"slices"

	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
)

// Pair binds one left-hand side node to one world node.
type Pair struct {
	Pattern graph.Handle
	World   graph.Handle
}

// Variant is one complete, injective binding of a left-hand side to the
// world. Pairs are ordered by pattern handle, which is document order.
type Variant struct {
	Pairs []Pair
}

func newVariant(pairs []Pair) Variant {
	sorted := slices.Clone(pairs)
	slices.SortFunc(sorted, func(a, b Pair) int {
		return a.Pattern.Compare(b.Pattern)
	})
	return Variant{Pairs: sorted}
}

// WorldOf returns the world node bound to a pattern node.
func (v Variant) WorldOf(pattern graph.Handle) (graph.Handle, bool) {
	for _, p := range v.Pairs {
		if p.Pattern == pattern {
			return p.World, true
		}
	}
	return graph.Handle{}, false
}

// Worlds returns the bound world handles in pattern order.
func (v Variant) Worlds() []graph.Handle {
	out := make([]graph.Handle, len(v.Pairs))
	for i, p := range v.Pairs {
		out[i] = p.World
	}
	return out
}

// Compare orders variants lexicographically by their world handles.
func (v Variant) Compare(o Variant) int {
	for i := 0; i < len(v.Pairs) && i < len(o.Pairs); i++ {
		if c := v.Pairs[i].World.Compare(o.Pairs[i].World); c != 0 {
			return c
		}
	}
	return len(v.Pairs) - len(o.Pairs)
}

// Bindings renders the variant for history records.
func (v Variant) Bindings(lhs, world *graph.World) []ir.Binding {
	out := make([]ir.Binding, 0, len(v.Pairs))
	for _, p := range v.Pairs {
		b := ir.Binding{WorldHandle: p.World.String()}
		if n := lhs.Get(p.Pattern); n != nil {
			b.PatternRef = n.Label()
		}
		if n := world.Get(p.World); n != nil {
			b.WorldName = n.Name
		}
		out = append(out, b)
	}
	return out
}

// Hash identifies the variant by its pattern references and world handles.
func (v Variant) Hash(lhs, world *graph.World) (string, error) {
	return ir.VariantHash(v.Bindings(lhs, world))
}

func sortVariants(vs []Variant) {
	slices.SortFunc(vs, Variant.Compare)
}
