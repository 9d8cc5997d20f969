package graph

import (
	"fmt"
	"slices"

	"github.com/roach88/storygram/internal/ir"
)

// Node is a vertex of a world or pattern graph.
//
// Fields may be read and Attributes may be mutated in place; ownership
// fields are private and change only through World methods.
type Node struct {
	Layer      Layer
	Id         string
	Name       string
	Attributes ir.Attributes
	IsObject   bool // Characters only

	// Connections lists destination Locations. Locations only.
	Connections []Handle

	handle   Handle
	parent   Handle
	children [len(layerNames)][]Handle // indexed by Layer; Locations slot unused
}

// Handle returns the node's identity.
func (n *Node) Handle() Handle { return n.handle }

// Parent returns the owning node, or the zero Handle for a Location.
func (n *Node) Parent() Handle { return n.parent }

// Label returns Id when present, otherwise Name.
func (n *Node) Label() string {
	if n.Id != "" {
		return n.Id
	}
	return n.Name
}

// Attr returns an attribute value.
func (n *Node) Attr(key string) (ir.Value, bool) {
	v, ok := n.Attributes[key]
	return v, ok
}

// SetAttr assigns an attribute, allocating the map when needed.
func (n *Node) SetAttr(key string, v ir.Value) {
	if n.Attributes == nil {
		n.Attributes = ir.Attributes{}
	}
	n.Attributes[key] = v
}

type slot struct {
	gen  uint32
	node *Node
}

// World is an arena of nodes plus the ordered top-level Locations.
type World struct {
	slots     []slot // index 0 is never used so the zero Handle stays invalid
	free      []uint32
	locations []Handle
}

// New returns an empty World.
func New() *World {
	return &World{slots: make([]slot, 1)}
}

func (w *World) alloc(n *Node) Handle {
	var idx uint32
	if k := len(w.free); k > 0 {
		idx = w.free[k-1]
		w.free = w.free[:k-1]
	} else {
		idx = uint32(len(w.slots))
		w.slots = append(w.slots, slot{})
	}
	s := &w.slots[idx]
	s.gen++
	s.node = n
	n.handle = Handle{Index: idx, Gen: s.gen}
	return n.handle
}

func (w *World) release(h Handle) {
	w.slots[h.Index].node = nil
	w.free = append(w.free, h.Index)
}

// Get returns the node for h, or nil when h is zero or stale.
func (w *World) Get(h Handle) *Node {
	if h.IsZero() || int(h.Index) >= len(w.slots) {
		return nil
	}
	s := w.slots[h.Index]
	if s.gen != h.Gen || s.node == nil {
		return nil
	}
	return s.node
}

func (w *World) live(h Handle) (*Node, error) {
	n := w.Get(h)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ErrStale, h)
	}
	return n, nil
}

// Len returns the number of live nodes.
func (w *World) Len() int {
	n := 0
	for _, s := range w.slots {
		if s.node != nil {
			n++
		}
	}
	return n
}

// Locations returns the top-level Locations in order.
func (w *World) Locations() []Handle {
	return slices.Clone(w.locations)
}

// Children returns the children of h in layer l. The slice must not be
// modified.
func (w *World) Children(h Handle, l Layer) []Handle {
	n := w.Get(h)
	if n == nil || !l.IsChild() {
		return nil
	}
	return n.children[l]
}

// NewLocation appends a Location to the top level.
func (w *World) NewLocation(id, name string, attrs ir.Attributes) Handle {
	h := w.alloc(&Node{Layer: Locations, Id: id, Name: name, Attributes: attrs})
	w.locations = append(w.locations, h)
	return h
}

// NewNode allocates an unattached node for a child layer.
func (w *World) NewNode(l Layer, id, name string, attrs ir.Attributes) (Handle, error) {
	if !l.IsChild() {
		return Handle{}, fmt.Errorf("%w: cannot allocate a free-standing %s node", ErrLayer, l)
	}
	return w.alloc(&Node{Layer: l, Id: id, Name: name, Attributes: attrs}), nil
}

// AddChild appends child to parent's layer l. The child must be unattached
// and already tagged with l.
func (w *World) AddChild(parent Handle, l Layer, child Handle) error {
	if !l.IsChild() {
		return fmt.Errorf("%w: %s is not a child layer", ErrLayer, l)
	}
	p, err := w.live(parent)
	if err != nil {
		return err
	}
	c, err := w.live(child)
	if err != nil {
		return err
	}
	if c.Layer != l {
		return fmt.Errorf("%w: %s node cannot be placed in %s", ErrLayer, c.Layer, l)
	}
	if !c.parent.IsZero() {
		return fmt.Errorf("%w: %s", ErrAttached, child)
	}
	if parent == child || w.IsAncestor(child, parent) {
		return fmt.Errorf("%w: %s under %s", ErrCycle, child, parent)
	}
	p.children[l] = append(p.children[l], child)
	c.parent = parent
	return nil
}

// RemoveChild detaches child from parent's layer l.
func (w *World) RemoveChild(parent Handle, l Layer, child Handle) error {
	if !l.IsChild() {
		return fmt.Errorf("%w: %s is not a child layer", ErrLayer, l)
	}
	p, err := w.live(parent)
	if err != nil {
		return err
	}
	c, err := w.live(child)
	if err != nil {
		return err
	}
	i := slices.Index(p.children[l], child)
	if i < 0 {
		return fmt.Errorf("%w: %s in %s/%s", ErrNotChild, child, parent, l)
	}
	p.children[l] = slices.Delete(p.children[l], i, i+1)
	c.parent = Handle{}
	return nil
}

// FindParent returns the owner of h and the layer h sits in.
func (w *World) FindParent(h Handle) (Handle, Layer, error) {
	n, err := w.live(h)
	if err != nil {
		return Handle{}, 0, err
	}
	if n.parent.IsZero() {
		return Handle{}, 0, fmt.Errorf("%w: %s %q", ErrNoParent, n.Layer, n.Label())
	}
	return n.parent, n.Layer, nil
}

// Detach removes h from its parent and returns where it was.
func (w *World) Detach(h Handle) (Handle, Layer, error) {
	parent, l, err := w.FindParent(h)
	if err != nil {
		return Handle{}, 0, err
	}
	if err := w.RemoveChild(parent, l, h); err != nil {
		return Handle{}, 0, err
	}
	return parent, l, nil
}

// Move re-parents h into layer l of to. On error h keeps its owner and
// its position among its siblings.
func (w *World) Move(h, to Handle, l Layer) error {
	parent, from, err := w.FindParent(h)
	if err != nil {
		return err
	}
	p := w.Get(parent)
	i := slices.Index(p.children[from], h)
	if err := w.RemoveChild(parent, from, h); err != nil {
		return err
	}
	if err := w.AddChild(to, l, h); err != nil {
		p.children[from] = slices.Insert(p.children[from], i, h)
		w.Get(h).parent = parent
		return err
	}
	return nil
}

// Delete detaches h and frees it with all its descendants. Their handles
// become stale.
func (w *World) Delete(h Handle) error {
	if _, _, err := w.Detach(h); err != nil {
		return err
	}
	w.freeSubtree(h)
	return nil
}

func (w *World) freeSubtree(h Handle) {
	n := w.Get(h)
	if n == nil {
		return
	}
	for _, l := range ChildLayers {
		for _, c := range n.children[l] {
			w.freeSubtree(c)
		}
	}
	w.release(h)
}

// Connect adds a directed Connection between two Locations.
func (w *World) Connect(from, to Handle) error {
	f, err := w.live(from)
	if err != nil {
		return err
	}
	t, err := w.live(to)
	if err != nil {
		return err
	}
	if f.Layer != Locations || t.Layer != Locations {
		return fmt.Errorf("%w: connections join Locations only", ErrLayer)
	}
	f.Connections = append(f.Connections, to)
	return nil
}

// Path returns the nodes from the owning Location down to h.
func (w *World) Path(h Handle) ([]Handle, error) {
	var rev []Handle
	for cur := h; !cur.IsZero(); {
		n, err := w.live(cur)
		if err != nil {
			return nil, err
		}
		rev = append(rev, cur)
		cur = n.parent
	}
	slices.Reverse(rev)
	return rev, nil
}

// IsAncestor reports whether anc is a strict ancestor of h.
func (w *World) IsAncestor(anc, h Handle) bool {
	n := w.Get(h)
	for n != nil && !n.parent.IsZero() {
		if n.parent == anc {
			return true
		}
		n = w.Get(n.parent)
	}
	return false
}

// Walk calls fn for every node in depth-first pre-order, starting from
// each Location in order and visiting layers Characters, Items, Narration.
// The path slice is reused between calls; clone it to retain it.
// Returning false from fn skips the node's descendants.
func (w *World) Walk(fn func(path []Handle) bool) {
	var path []Handle
	for _, loc := range w.locations {
		path = w.walk(loc, path[:0], fn)
	}
}

// WalkFrom is Walk restricted to the subtree rooted at root; paths start
// at root.
func (w *World) WalkFrom(root Handle, fn func(path []Handle) bool) {
	if w.Get(root) == nil {
		return
	}
	w.walk(root, nil, fn)
}

func (w *World) walk(h Handle, path []Handle, fn func([]Handle) bool) []Handle {
	path = append(path, h)
	if fn(path) {
		n := w.Get(h)
		for _, l := range ChildLayers {
			for _, c := range n.children[l] {
				path = w.walk(c, path, fn)
			}
		}
	}
	return path[:len(path)-1]
}

// CopySubtree deep-copies h and its descendants into fresh, unattached
// nodes and returns the new root.
func (w *World) CopySubtree(h Handle) (Handle, error) {
	n, err := w.live(h)
	if err != nil {
		return Handle{}, err
	}
	if n.Layer == Locations {
		return Handle{}, fmt.Errorf("%w: Locations cannot be copied", ErrLayer)
	}
	return w.copySubtree(n), nil
}

func (w *World) copySubtree(n *Node) Handle {
	dup := &Node{
		Layer:      n.Layer,
		Id:         n.Id,
		Name:       n.Name,
		Attributes: n.Attributes.Clone(),
		IsObject:   n.IsObject,
	}
	h := w.alloc(dup)
	for _, l := range ChildLayers {
		for _, c := range n.children[l] {
			ch := w.copySubtree(w.Get(c))
			dup.children[l] = append(dup.children[l], ch)
			w.Get(ch).parent = h
		}
	}
	return h
}

// Clone returns a deep copy that preserves every handle, including the
// free list, so handles taken from w are valid in the clone.
func (w *World) Clone() *World {
	c := &World{
		slots:     make([]slot, len(w.slots)),
		free:      slices.Clone(w.free),
		locations: slices.Clone(w.locations),
	}
	for i, s := range w.slots {
		c.slots[i].gen = s.gen
		if s.node == nil {
			continue
		}
		n := *s.node
		n.Attributes = s.node.Attributes.Clone()
		n.Connections = slices.Clone(s.node.Connections)
		for l := range n.children {
			n.children[l] = slices.Clone(s.node.children[l])
		}
		c.slots[i].node = &n
	}
	return c
}

// ReplaceWith makes w hold src's contents. src must not be used afterwards.
func (w *World) ReplaceWith(src *World) {
	w.slots = src.slots
	w.free = src.free
	w.locations = src.locations
}
