package ref

import (
	"slices"

	"github.com/roach88/storygram/internal/graph"
)

// Path is the chain of handles from a Location down to an addressed node.
type Path []graph.Handle

// Leaf returns the addressed node.
func (p Path) Leaf() graph.Handle {
	return p[len(p)-1]
}

// Bindings maps left-hand side handles to the world handles they are
// bound to.
type Bindings interface {
	WorldOf(pattern graph.Handle) (graph.Handle, bool)
}

// Find returns the path of every node in tree whose Id or Name equals
// ident, shortest first.
func Find(tree *graph.World, ident string) []Path {
	var out []Path
	tree.Walk(func(p []graph.Handle) bool {
		n := tree.Get(p[len(p)-1])
		if n.Id == ident || n.Name == ident {
			out = append(out, slices.Clone(Path(p)))
		}
		return true
	})
	sortByLength(out)
	return out
}

// Anchor resolves the first segment of s to the unique left-hand side
// node it names.
func Anchor(lhs *graph.World, s string) (graph.Handle, error) {
	r, err := Parse(s)
	if err != nil {
		return graph.Handle{}, err
	}
	return anchorOf(lhs, r)
}

func anchorOf(lhs *graph.World, r *Reference) (graph.Handle, error) {
	head := r.Head()
	if head.Kind != TokName {
		return graph.Handle{}, newError(ErrCodeSyntax, r.Raw, "reference must start with an Id or Name")
	}
	paths := Find(lhs, head.Name)
	switch len(paths) {
	case 0:
		return graph.Handle{}, newError(ErrCodeNotFound, r.Raw, "no left-hand side node %q", head.Name)
	case 1:
		return paths[0].Leaf(), nil
	default:
		return graph.Handle{}, newError(ErrCodeAmbiguous, r.Raw, "%d left-hand side nodes match %q", len(paths), head.Name)
	}
}

// Resolve returns the world paths addressed by s under a variant. The
// first segment is looked up in lhs and mapped to the world through b;
// the remaining segments are matched below that world node. Paths are
// ordered by length, shorter first, with ties in tree order.
//
// A missing, ambiguous or unbound anchor is an error. Matching no world
// node is not.
func Resolve(lhs, world *graph.World, b Bindings, s string) ([]Path, error) {
	r, err := Parse(s)
	if err != nil {
		return nil, err
	}
	anchor, err := anchorOf(lhs, r)
	if err != nil {
		return nil, err
	}
	bound, ok := b.WorldOf(anchor)
	if !ok {
		return nil, newError(ErrCodeUnbound, s, "left-hand side node %s is not bound", anchor)
	}
	base, err := world.Path(bound)
	if err != nil {
		return nil, newError(ErrCodeUnbound, s, "bound world node %s no longer exists", bound)
	}
	if r.IsSimple() {
		return []Path{base}, nil
	}

	m := &matcher{tree: world, ref: r, anchored: true, anchor: bound, literal: true}
	prefix := base[:len(base)-1]
	var out []Path
	world.WalkFrom(bound, func(p []graph.Handle) bool {
		if m.accepts(p) {
			full := make(Path, 0, len(prefix)+len(p))
			full = append(full, prefix...)
			out = append(out, append(full, p...))
		}
		return true
	})
	sortByLength(out)
	return out, nil
}

// ResolveOne is Resolve for call sites that address exactly one node.
func ResolveOne(lhs, world *graph.World, b Bindings, s string) (Path, error) {
	paths, err := Resolve(lhs, world, b, s)
	if err != nil {
		return nil, err
	}
	return one(s, paths)
}

// ResolveIn resolves s within a single tree. Every segment, including the
// first, matches a node by Id or Name, and paths run from the tree's
// Locations.
func ResolveIn(tree *graph.World, s string) ([]Path, error) {
	r, err := Parse(s)
	if err != nil {
		return nil, err
	}
	if r.IsSimple() {
		return Find(tree, r.Head().Name), nil
	}
	m := &matcher{tree: tree, ref: r}
	var out []Path
	tree.Walk(func(p []graph.Handle) bool {
		if m.accepts(p) {
			out = append(out, slices.Clone(Path(p)))
		}
		return true
	})
	sortByLength(out)
	return out, nil
}

// ResolveOneIn is ResolveIn for call sites that address exactly one node.
func ResolveOneIn(tree *graph.World, s string) (Path, error) {
	paths, err := ResolveIn(tree, s)
	if err != nil {
		return nil, err
	}
	return one(s, paths)
}

func one(s string, paths []Path) (Path, error) {
	switch len(paths) {
	case 0:
		return nil, newError(ErrCodeNotFound, s, "no node matches")
	case 1:
		return paths[0], nil
	default:
		return nil, newError(ErrCodeAmbiguous, s, "%d nodes match", len(paths))
	}
}

func sortByLength(paths []Path) {
	slices.SortStableFunc(paths, func(a, b Path) int {
		return len(a) - len(b)
	})
}

// matcher checks candidate paths against a parsed reference.
//
// In anchored mode the first token matches only the bound anchor at the
// start of the path, and name tokens compare against a node's Name (its
// Id when unnamed). Literal strips are then located with indexKMP.
// Otherwise name tokens match either Id or Name and strips are scanned
// directly.
type matcher struct {
	tree     *graph.World
	ref      *Reference
	anchored bool
	anchor   graph.Handle
	literal  bool
}

func (m *matcher) accepts(path []graph.Handle) bool {
	strips := m.ref.Strips
	last := strips[len(strips)-1]
	tail := len(path) - len(last)
	if tail < 0 {
		return false
	}
	// Cheap rejection before searching the middle strips.
	if !m.tokenMatches(len(strips)-1, len(last)-1, last[len(last)-1], path, len(path)-1) {
		return false
	}

	pos := 0
	for si, strip := range strips[:len(strips)-1] {
		idx := m.index(si, strip, path, pos, tail)
		if idx < 0 {
			return false
		}
		pos = idx + len(strip)
	}
	if tail < pos {
		return false
	}
	return m.matchAt(len(strips)-1, last, path, tail)
}

// index returns the first start in [from, to-len(strip)] where strip
// matches, or -1.
func (m *matcher) index(si int, strip []Token, path []graph.Handle, from, to int) int {
	if to-from < len(strip) {
		return -1
	}
	if m.isLiteral(si, strip) {
		names := make([]string, len(strip))
		for i, tok := range strip {
			names[i] = tok.Name
		}
		keys := make([]string, 0, to-from)
		for _, h := range path[from:to] {
			keys = append(keys, key(m.tree.Get(h)))
		}
		if i := indexKMP(names, keys); i >= 0 {
			return from + i
		}
		return -1
	}
	for start := from; start+len(strip) <= to; start++ {
		if m.matchAt(si, strip, path, start) {
			return start
		}
	}
	return -1
}

func (m *matcher) isLiteral(si int, strip []Token) bool {
	if !m.literal || (m.anchored && si == 0) {
		return false
	}
	for _, tok := range strip {
		if tok.Kind != TokName {
			return false
		}
	}
	return true
}

func (m *matcher) matchAt(si int, strip []Token, path []graph.Handle, start int) bool {
	for ti, tok := range strip {
		if !m.tokenMatches(si, ti, tok, path, start+ti) {
			return false
		}
	}
	return true
}

func (m *matcher) tokenMatches(si, ti int, tok Token, path []graph.Handle, p int) bool {
	if m.anchored && si == 0 && ti == 0 {
		return p == 0 && path[p] == m.anchor
	}
	n := m.tree.Get(path[p])
	if n == nil {
		return false
	}
	switch tok.Kind {
	case TokLocationStar:
		return p == 0 && n.Layer == graph.Locations
	case TokLayerStar:
		return p > 0 && n.Layer == tok.Layer
	}
	if m.literal {
		return key(n) == tok.Name
	}
	return n.Id == tok.Name || n.Name == tok.Name
}

// key is the single name a world node answers to in anchored references.
func key(n *graph.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.Id
}
