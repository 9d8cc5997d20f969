package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
)

func TestNodeBuilder(t *testing.T) {
	doc := Loc("Inn").ID("I").Connect("Road").Characters(
		Node("Hero").Object().Attr("Gold", 3).Attr("Title", "Sir").Items(Node("Bag")),
	).Narration(Node("Rumour")).Doc()

	assert.Equal(t, ir.NodeDoc{
		Id:          "I",
		Name:        "Inn",
		Connections: []ir.ConnectionDoc{{Destination: "Road"}},
		Characters: []ir.NodeDoc{{
			Name:       "Hero",
			IsObject:   true,
			Attributes: ir.Attributes{"Gold": ir.Int(3), "Title": ir.String("Sir")},
			Items:      []ir.NodeDoc{{Name: "Bag"}},
		}},
		Narration: []ir.NodeDoc{{Name: "Rumour"}},
	}, doc)
}

func TestInnWorld_Loads(t *testing.T) {
	w := LoadWorld(t, InnWorld())

	require.Len(t, w.Locations(), 2)
	inn := w.Locations()[0]
	assert.Len(t, w.Children(inn, graph.Characters), 2)
	// Inn, Merchant, Coin, Sword, Hero, Bag, Road
	assert.Equal(t, 7, w.Len())
}
