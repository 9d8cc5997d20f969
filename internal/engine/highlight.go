package engine

import (
	"strings"

	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ref"
)

// Edge is a directed world Connection.
type Edge struct {
	From graph.Handle
	To   graph.Handle
}

// Highlight marks what a variant touches, for a renderer.
type Highlight struct {
	// Nodes are the bound world nodes in pattern order.
	Nodes []graph.Handle

	// Edges are the world Connections that realise pattern Connections.
	Edges []Edge

	// Labels maps each bound world node to its pattern label.
	Labels map[graph.Handle]string
}

// Highlights computes the highlight of v.
func Highlights(lhs *graph.World, v Variant) Highlight {
	h := Highlight{
		Nodes:  v.Worlds(),
		Labels: make(map[graph.Handle]string, len(v.Pairs)),
	}
	for _, p := range v.Pairs {
		pn := lhs.Get(p.Pattern)
		if label := pn.Label(); label != "" {
			h.Labels[p.World] = label
		}
		for _, dest := range pn.Connections {
			to, ok := v.WorldOf(dest)
			if !ok {
				continue
			}
			h.Edges = append(h.Edges, Edge{From: p.World, To: to})
		}
	}
	return h
}

// Personalise replaces «Label» placeholders in a description with the Name
// of the world node bound to that pattern node. Placeholders that name no
// unique pattern node, or an unbound one, are left as they are.
func Personalise(desc string, lhs, world *graph.World, v Variant) string {
	var b strings.Builder
	rest := desc
	for {
		before, after, ok := strings.Cut(rest, "«")
		if !ok {
			break
		}
		label, tail, ok := strings.Cut(after, "»")
		if !ok {
			break
		}
		b.WriteString(before)
		if name, ok := boundName(lhs, world, v, label); ok {
			b.WriteString(name)
		} else {
			b.WriteString("«" + label + "»")
		}
		rest = tail
	}
	b.WriteString(rest)
	return b.String()
}

func boundName(lhs, world *graph.World, v Variant, label string) (string, bool) {
	paths := ref.Find(lhs, label)
	if len(paths) != 1 {
		return "", false
	}
	h, ok := v.WorldOf(paths[0].Leaf())
	if !ok {
		return "", false
	}
	n := world.Get(h)
	if n == nil {
		return "", false
	}
	return n.Name, true
}
