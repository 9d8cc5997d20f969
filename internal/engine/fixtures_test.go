package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
)

// h builds a first-generation handle, which is what Load hands out.
func h(i uint32) graph.Handle { return graph.Handle{Index: i, Gen: 1} }

func intPtr(i int) *int { return &i }

func quietEngine(opts ...EngineOption) *Engine {
	return New(append([]EngineOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)...)
}

func conns(dests ...string) []ir.ConnectionDoc {
	out := make([]ir.ConnectionDoc, len(dests))
	for i, d := range dests {
		out[i] = ir.ConnectionDoc{Destination: d}
	}
	return out
}

// innDoc is the world of the merchant scenario:
//
//	Inn(1) -> Road
//	  Merchant(2) {Gold: 10}
//	Road(3) -> Inn
func innDoc() ir.WorldDoc {
	return ir.WorldDoc{Locations: []ir.NodeDoc{
		{
			Name:        "Inn",
			Connections: conns("Road"),
			Characters: []ir.NodeDoc{
				{Name: "Merchant", Attributes: ir.Attributes{"Gold": ir.Int(10)}},
			},
		},
		{Name: "Road", Connections: conns("Inn")},
	}}
}

func earnGold() ir.ProductionDoc {
	return ir.ProductionDoc{
		Title: "Earn gold",
		LSide: ir.WorldDoc{Locations: []ir.NodeDoc{
			{Id: "L", Characters: []ir.NodeDoc{{Id: "M", Name: "Merchant"}}},
		}},
		Instructions: []ir.InstructionDoc{
			{Op: ir.OpAdd, Attribute: "M.Gold", Value: ir.Int(5)},
		},
	}
}

// shopDoc is the world used by the rewrite tests:
//
//	Inn(1) -> Road
//	  Merchant(2) {Gold: 10}
//	    Bag(3)
//	      Coin(4)
//	    Sword(5)
//	  Hero(6)
//	    Shield(7)
//	Road(8) -> Inn
func shopDoc() ir.WorldDoc {
	return ir.WorldDoc{Locations: []ir.NodeDoc{
		{
			Name:        "Inn",
			Connections: conns("Road"),
			Characters: []ir.NodeDoc{
				{
					Name:       "Merchant",
					Attributes: ir.Attributes{"Gold": ir.Int(10)},
					Items: []ir.NodeDoc{
						{Name: "Bag", Items: []ir.NodeDoc{{Name: "Coin"}}},
						{Name: "Sword"},
					},
				},
				{Name: "Hero", Items: []ir.NodeDoc{{Name: "Shield"}}},
			},
		},
		{Name: "Road", Connections: conns("Inn")},
	}}
}

// shopLSide binds L to Inn, M to Merchant and H to Hero.
func shopLSide() ir.WorldDoc {
	return ir.WorldDoc{Locations: []ir.NodeDoc{
		{Id: "L", Characters: []ir.NodeDoc{
			{Id: "M", Name: "Merchant"},
			{Id: "H", Name: "Hero"},
		}},
	}}
}

// shop loads the shop world and the single variant of a production made
// of the given instructions.
func shop(t *testing.T, instrs ...ir.InstructionDoc) (*graph.World, *Production, Variant) {
	t.Helper()
	world := graph.MustLoad(shopDoc())
	p := MustProduction(ir.ProductionDoc{
		Title:        "shop",
		LSide:        shopLSide(),
		Instructions: instrs,
	})
	vs, _ := Match(world, h(1), p, graph.Handle{})
	require.Len(t, vs, 1)
	return world, p, vs[0]
}

func names(w *graph.World, hs []graph.Handle) []string {
	out := make([]string, len(hs))
	for i, x := range hs {
		out[i] = w.Get(x).Name
	}
	return out
}

func pairs(v Variant) map[graph.Handle]graph.Handle {
	out := make(map[graph.Handle]graph.Handle, len(v.Pairs))
	for _, p := range v.Pairs {
		out[p.Pattern] = p.World
	}
	return out
}
