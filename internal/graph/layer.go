package graph

import "fmt"

// Layer classifies a node and names the child array it lives in.
type Layer uint8

const (
	Locations Layer = iota
	Characters
	Items
	Narration
)

// ChildLayers are the three layers a node can own children in, in the
// order matching and export walk them.
var ChildLayers = [...]Layer{Characters, Items, Narration}

var layerNames = [...]string{"Locations", "Characters", "Items", "Narration"}

func (l Layer) String() string {
	if int(l) < len(layerNames) {
		return layerNames[l]
	}
	return fmt.Sprintf("Layer(%d)", l)
}

// IsChild reports whether l is one of the owned child layers.
func (l Layer) IsChild() bool {
	return l == Characters || l == Items || l == Narration
}

// ParseLayer maps a layer name to a Layer.
func ParseLayer(s string) (Layer, error) {
	for i, name := range layerNames {
		if name == s {
			return Layer(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown layer %q", ErrLayer, s)
}
