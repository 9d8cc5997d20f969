package testutil

import (
	"testing"

	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
)

// NodeBuilder assembles an ir.NodeDoc fluently for test fixtures.
//
//	testutil.Loc("Inn").Connect("Road").Characters(
//	    testutil.Node("Merchant").Attr("Gold", 10),
//	)
type NodeBuilder struct {
	doc ir.NodeDoc
}

// Node starts a node with the given Name.
func Node(name string) *NodeBuilder {
	return &NodeBuilder{doc: ir.NodeDoc{Name: name}}
}

// Loc is Node, for readability where a Location is meant.
func Loc(name string) *NodeBuilder { return Node(name) }

// ID sets the node Id.
func (b *NodeBuilder) ID(id string) *NodeBuilder {
	b.doc.Id = id
	return b
}

// Attr sets an attribute. v is converted with ir.ValueOf and must be a
// scalar; anything else panics.
func (b *NodeBuilder) Attr(key string, v any) *NodeBuilder {
	val, err := ir.ValueOf(v)
	if err != nil {
		panic(err)
	}
	if b.doc.Attributes == nil {
		b.doc.Attributes = ir.Attributes{}
	}
	b.doc.Attributes[key] = val
	return b
}

// Object marks the node IsObject.
func (b *NodeBuilder) Object() *NodeBuilder {
	b.doc.IsObject = true
	return b
}

// Connect adds Connections to the named Locations.
func (b *NodeBuilder) Connect(dests ...string) *NodeBuilder {
	for _, d := range dests {
		b.doc.Connections = append(b.doc.Connections, ir.ConnectionDoc{Destination: d})
	}
	return b
}

// Characters appends children in the Characters layer.
func (b *NodeBuilder) Characters(children ...*NodeBuilder) *NodeBuilder {
	b.doc.Characters = append(b.doc.Characters, docs(children)...)
	return b
}

// Items appends children in the Items layer.
func (b *NodeBuilder) Items(children ...*NodeBuilder) *NodeBuilder {
	b.doc.Items = append(b.doc.Items, docs(children)...)
	return b
}

// Narration appends children in the Narration layer.
func (b *NodeBuilder) Narration(children ...*NodeBuilder) *NodeBuilder {
	b.doc.Narration = append(b.doc.Narration, docs(children)...)
	return b
}

// Doc returns the built document.
func (b *NodeBuilder) Doc() ir.NodeDoc { return b.doc }

func docs(bs []*NodeBuilder) []ir.NodeDoc {
	out := make([]ir.NodeDoc, len(bs))
	for i, b := range bs {
		out[i] = b.doc
	}
	return out
}

// World assembles a world document from Location builders.
func World(locs ...*NodeBuilder) ir.WorldDoc {
	return ir.WorldDoc{Locations: docs(locs)}
}

// LoadWorld loads a world document, failing the test on error.
func LoadWorld(t testing.TB, doc ir.WorldDoc) *graph.World {
	t.Helper()
	w, err := graph.Load(doc)
	if err != nil {
		t.Fatalf("load world: %v", err)
	}
	return w
}

// InnWorld is the shared trading fixture:
//
//	Inn -> Road
//	  Merchant {Gold: 10} [Coin, Sword]
//	  Hero {Gold: 3} (object) [Bag]
//	Road
func InnWorld() ir.WorldDoc {
	return World(
		Loc("Inn").Connect("Road").Characters(
			Node("Merchant").Attr("Gold", 10).Items(Node("Coin"), Node("Sword")),
			Node("Hero").Attr("Gold", 3).Items(Node("Bag")),
		),
		Loc("Road"),
	)
}
