package graph

import (
	"errors"
	"fmt"

	"github.com/roach88/storygram/internal/ir"
)

// Load builds a World from its document form. Connection destinations are
// resolved to Location handles immediately; a destination that names no
// Location or more than one is a LoadError.
//
// Handles are assigned in document pre-order, so loading the same document
// twice yields the same handles.
func Load(doc ir.WorldDoc) (*World, error) {
	w := New()
	for i, loc := range doc.Locations {
		path := fmt.Sprintf("Locations[%d]", i)
		if loc.IsObject {
			return nil, &LoadError{Code: ErrCodeLayerViolation, Path: path, Message: "IsObject is only allowed on Characters"}
		}
		h := w.NewLocation(loc.Id, loc.Name, loc.Attributes.Clone())
		if err := w.loadChildren(h, loc, path); err != nil {
			return nil, err
		}
	}

	for i, loc := range doc.Locations {
		from := w.locations[i]
		for j, conn := range loc.Connections {
			path := fmt.Sprintf("Locations[%d].Connections[%d]", i, j)
			to, err := w.resolveDestination(conn.Destination, path)
			if err != nil {
				return nil, err
			}
			if err := w.Connect(from, to); err != nil {
				return nil, &LoadError{Code: ErrCodeMalformed, Path: path, Message: err.Error()}
			}
		}
	}
	return w, nil
}

func (w *World) resolveDestination(dest, path string) (Handle, error) {
	if dest == "" {
		return Handle{}, &LoadError{Code: ErrCodeMalformed, Path: path, Message: "empty Destination"}
	}
	var found []Handle
	for _, loc := range w.locations {
		n := w.Get(loc)
		if n.Id == dest || n.Name == dest {
			found = append(found, loc)
		}
	}
	switch len(found) {
	case 0:
		return Handle{}, &LoadError{Code: ErrCodeUnresolvedDestination, Path: path,
			Message: fmt.Sprintf("no Location named %q", dest)}
	case 1:
		return found[0], nil
	default:
		return Handle{}, &LoadError{Code: ErrCodeAmbiguousDestination, Path: path,
			Message: fmt.Sprintf("%d Locations match %q", len(found), dest)}
	}
}

func (w *World) loadChildren(parent Handle, doc ir.NodeDoc, path string) error {
	for _, l := range ChildLayers {
		for i, child := range layerDocs(doc, l) {
			childPath := fmt.Sprintf("%s.%s[%d]", path, l, i)
			h, err := w.instantiate(child, l, childPath)
			if err != nil {
				return err
			}
			if err := w.AddChild(parent, l, h); err != nil {
				return &LoadError{Code: ErrCodeMalformed, Path: childPath, Message: err.Error()}
			}
		}
	}
	return nil
}

// Instantiate builds an unattached subtree of layer l from a template
// document. Each call yields fresh handles.
func (w *World) Instantiate(doc ir.NodeDoc, l Layer) (Handle, error) {
	if !l.IsChild() {
		return Handle{}, fmt.Errorf("%w: cannot instantiate a %s node", ErrLayer, l)
	}
	return w.instantiate(doc, l, "Sheaf")
}

func (w *World) instantiate(doc ir.NodeDoc, l Layer, path string) (Handle, error) {
	if len(doc.Connections) > 0 {
		return Handle{}, &LoadError{Code: ErrCodeLayerViolation, Path: path, Message: "Connections are only allowed on Locations"}
	}
	if doc.IsObject && l != Characters {
		return Handle{}, &LoadError{Code: ErrCodeLayerViolation, Path: path, Message: "IsObject is only allowed on Characters"}
	}
	h, err := w.NewNode(l, doc.Id, doc.Name, doc.Attributes.Clone())
	if err != nil {
		return Handle{}, err
	}
	w.Get(h).IsObject = doc.IsObject
	if err := w.loadChildren(h, doc, path); err != nil {
		return Handle{}, err
	}
	return h, nil
}

func layerDocs(doc ir.NodeDoc, l Layer) []ir.NodeDoc {
	switch l {
	case Characters:
		return doc.Characters
	case Items:
		return doc.Items
	case Narration:
		return doc.Narration
	}
	return nil
}

// Export renders the World back into its document form. Connection
// destinations are written as the destination's Id when it has one,
// otherwise its Name.
func (w *World) Export() ir.WorldDoc {
	doc := ir.WorldDoc{Locations: make([]ir.NodeDoc, 0, len(w.locations))}
	for _, loc := range w.locations {
		doc.Locations = append(doc.Locations, w.ExportNode(loc))
	}
	return doc
}

// ExportNode renders the subtree rooted at h.
func (w *World) ExportNode(h Handle) ir.NodeDoc {
	n := w.Get(h)
	if n == nil {
		return ir.NodeDoc{}
	}
	doc := ir.NodeDoc{
		Id:         n.Id,
		Name:       n.Name,
		Attributes: n.Attributes.Clone(),
		IsObject:   n.IsObject,
	}
	for _, dest := range n.Connections {
		if d := w.Get(dest); d != nil {
			doc.Connections = append(doc.Connections, ir.ConnectionDoc{Destination: d.Label()})
		}
	}
	for _, l := range ChildLayers {
		var kids []ir.NodeDoc
		for _, c := range n.children[l] {
			kids = append(kids, w.ExportNode(c))
		}
		switch l {
		case Characters:
			doc.Characters = kids
		case Items:
			doc.Items = kids
		case Narration:
			doc.Narration = kids
		}
	}
	return doc
}

// MustLoad is like Load but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustLoad(doc ir.WorldDoc) *World {
	w, err := Load(doc)
	if err != nil {
		panic(err)
	}
	return w
}

// IsLayerError reports whether err is a layer invariant violation.
func IsLayerError(err error) bool {
	if errors.Is(err, ErrLayer) {
		return true
	}
	var le *LoadError
	return errors.As(err, &le) && le.Code == ErrCodeLayerViolation
}
