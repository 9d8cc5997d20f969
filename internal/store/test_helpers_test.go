package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/storygram/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// innWorld is a two-Location world whose Merchant holds gold.
func innWorld(gold int64) ir.WorldDoc {
	return ir.WorldDoc{Locations: []ir.NodeDoc{
		{
			Name:        "Inn",
			Connections: []ir.ConnectionDoc{{Destination: "Road"}},
			Characters: []ir.NodeDoc{{
				Name:       "Merchant",
				Attributes: ir.Attributes{"Gold": ir.Int(gold), "Title": ir.String("Trader")},
				Items:      []ir.NodeDoc{{Name: "Coin"}},
			}},
		},
		{Name: "Road"},
	}}
}

// createTestMove creates a move from one world to another.
func createTestMove(id string, seq int64, before, after ir.WorldDoc) ir.Move {
	return ir.Move{
		ID:              id,
		Seq:             seq,
		ProductionTitle: "Earn gold",
		Bindings: []ir.Binding{
			{PatternRef: "L", WorldHandle: "1.1", WorldName: "Inn"},
			{PatternRef: "M", WorldHandle: "2.1", WorldName: "Merchant"},
		},
		VariantHash:  "vh-" + id,
		Modified:     []string{"2.1"},
		Failed:       []int{},
		BeforeDigest: ir.MustWorldDigest(before),
		AfterDigest:  ir.MustWorldDigest(after),
	}
}
