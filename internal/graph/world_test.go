package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storygram/internal/ir"
)

func innDoc() ir.WorldDoc {
	return ir.WorldDoc{Locations: []ir.NodeDoc{
		{
			Name:        "Inn",
			Connections: []ir.ConnectionDoc{{Destination: "Road"}},
			Characters: []ir.NodeDoc{
				{
					Name:       "Merchant",
					Attributes: ir.Attributes{"Gold": ir.Int(10)},
					Items:      []ir.NodeDoc{{Name: "Sword"}},
				},
				{Name: "Hero"},
			},
		},
		{
			Name:        "Road",
			Connections: []ir.ConnectionDoc{{Destination: "Inn"}},
		},
	}}
}

func TestLoadAssignsPreOrderHandles(t *testing.T) {
	w := MustLoad(innDoc())

	locs := w.Locations()
	require.Len(t, locs, 2)
	assert.Equal(t, Handle{Index: 1, Gen: 1}, locs[0])
	assert.Equal(t, Handle{Index: 5, Gen: 1}, locs[1])

	merchant := w.Children(locs[0], Characters)[0]
	assert.Equal(t, "Merchant", w.Get(merchant).Name)
	assert.Equal(t, Handle{Index: 2, Gen: 1}, merchant)
	assert.Equal(t, 5, w.Len())

	again := MustLoad(innDoc())
	assert.Equal(t, w.Locations(), again.Locations())
}

func TestLoadResolvesConnections(t *testing.T) {
	w := MustLoad(innDoc())
	locs := w.Locations()

	inn := w.Get(locs[0])
	require.Len(t, inn.Connections, 1)
	assert.Equal(t, locs[1], inn.Connections[0])
	assert.Equal(t, locs[0], w.Get(locs[1]).Connections[0])
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  ir.WorldDoc
		code LoadErrorCode
	}{
		{
			name: "unresolved destination",
			doc:  ir.WorldDoc{Locations: []ir.NodeDoc{{Name: "Inn", Connections: []ir.ConnectionDoc{{Destination: "Nowhere"}}}}},
			code: ErrCodeUnresolvedDestination,
		},
		{
			name: "ambiguous destination",
			doc: ir.WorldDoc{Locations: []ir.NodeDoc{
				{Name: "Inn", Connections: []ir.ConnectionDoc{{Destination: "Forest"}}},
				{Name: "Forest"},
				{Name: "Forest"},
			}},
			code: ErrCodeAmbiguousDestination,
		},
		{
			name: "empty destination",
			doc:  ir.WorldDoc{Locations: []ir.NodeDoc{{Name: "Inn", Connections: []ir.ConnectionDoc{{}}}}},
			code: ErrCodeMalformed,
		},
		{
			name: "connections on a character",
			doc: ir.WorldDoc{Locations: []ir.NodeDoc{
				{Name: "Inn", Characters: []ir.NodeDoc{{Name: "Hero", Connections: []ir.ConnectionDoc{{Destination: "Inn"}}}}},
			}},
			code: ErrCodeLayerViolation,
		},
		{
			name: "IsObject on an item",
			doc: ir.WorldDoc{Locations: []ir.NodeDoc{
				{Name: "Inn", Items: []ir.NodeDoc{{Name: "Sword", IsObject: true}}},
			}},
			code: ErrCodeLayerViolation,
		},
		{
			name: "IsObject on a location",
			doc:  ir.WorldDoc{Locations: []ir.NodeDoc{{Name: "Inn", IsObject: true}}},
			code: ErrCodeLayerViolation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.doc)
			require.Error(t, err)
			assert.True(t, IsLoadError(err))
			assert.Equal(t, tt.code, LoadErrorCodeOf(err))
		})
	}
}

func TestLoadDestinationById(t *testing.T) {
	doc := ir.WorldDoc{Locations: []ir.NodeDoc{
		{Name: "Inn", Connections: []ir.ConnectionDoc{{Destination: "F2"}}},
		{Id: "F1", Name: "Forest"},
		{Id: "F2", Name: "Forest"},
	}}
	w := MustLoad(doc)
	locs := w.Locations()
	assert.Equal(t, locs[2], w.Get(locs[0]).Connections[0])
}

func TestExportRoundTrip(t *testing.T) {
	doc := innDoc()
	w := MustLoad(doc)
	if diff := cmp.Diff(doc, w.Export()); diff != "" {
		t.Errorf("export mismatch (-want +got):\n%s", diff)
	}
}

func TestAddChildEnforcesLayer(t *testing.T) {
	w := MustLoad(innDoc())
	inn := w.Locations()[0]

	coin, err := w.NewNode(Items, "", "Coin", nil)
	require.NoError(t, err)

	err = w.AddChild(inn, Characters, coin)
	assert.ErrorIs(t, err, ErrLayer)

	require.NoError(t, w.AddChild(inn, Items, coin))
	assert.Equal(t, []Handle{coin}, w.Children(inn, Items))

	err = w.AddChild(inn, Items, coin)
	assert.ErrorIs(t, err, ErrAttached)

	_, err = w.NewNode(Locations, "", "Cave", nil)
	assert.ErrorIs(t, err, ErrLayer)
}

func TestAddChildRejectsCycle(t *testing.T) {
	w := MustLoad(innDoc())
	inn := w.Locations()[0]
	merchant := w.Children(inn, Characters)[0]
	sword := w.Children(merchant, Items)[0]

	box, err := w.NewNode(Items, "", "Box", nil)
	require.NoError(t, err)
	require.NoError(t, w.AddChild(sword, Items, box))

	_, _, err = w.Detach(sword)
	require.NoError(t, err)
	err = w.AddChild(box, Items, sword)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestMove(t *testing.T) {
	w := MustLoad(innDoc())
	inn, road := w.Locations()[0], w.Locations()[1]
	merchant := w.Children(inn, Characters)[0]
	hero := w.Children(inn, Characters)[1]

	require.NoError(t, w.Move(merchant, road, Characters))
	assert.Equal(t, []Handle{hero}, w.Children(inn, Characters))
	assert.Equal(t, []Handle{merchant}, w.Children(road, Characters))
	assert.Equal(t, road, w.Get(merchant).Parent())

	err := w.Move(inn, road, Characters)
	assert.ErrorIs(t, err, ErrNoParent)
}

func TestMoveFailureKeepsPosition(t *testing.T) {
	w := MustLoad(innDoc())
	inn := w.Locations()[0]
	merchant := w.Children(inn, Characters)[0]
	sword := w.Children(merchant, Items)[0]

	var boxes []Handle
	for _, name := range []string{"Chest", "Box", "Crate"} {
		h, err := w.NewNode(Items, "", name, nil)
		require.NoError(t, err)
		require.NoError(t, w.AddChild(merchant, Items, h))
		boxes = append(boxes, h)
	}
	box := boxes[1]
	inner, err := w.NewNode(Items, "", "Pouch", nil)
	require.NoError(t, err)
	require.NoError(t, w.AddChild(box, Items, inner))
	require.Equal(t, []Handle{sword, boxes[0], box, boxes[2]}, w.Children(merchant, Items))

	err = w.Move(box, inner, Items)
	assert.ErrorIs(t, err, ErrCycle)
	assert.Equal(t, []Handle{sword, boxes[0], box, boxes[2]}, w.Children(merchant, Items))
	assert.Equal(t, merchant, w.Get(box).Parent())

	err = w.Move(box, inn, Characters)
	assert.ErrorIs(t, err, ErrLayer)
	assert.Equal(t, []Handle{sword, boxes[0], box, boxes[2]}, w.Children(merchant, Items))
	assert.Equal(t, merchant, w.Get(box).Parent())
}

func TestFindParent(t *testing.T) {
	w := MustLoad(innDoc())
	inn := w.Locations()[0]
	merchant := w.Children(inn, Characters)[0]

	parent, layer, err := w.FindParent(merchant)
	require.NoError(t, err)
	assert.Equal(t, inn, parent)
	assert.Equal(t, Characters, layer)

	_, _, err = w.FindParent(inn)
	assert.ErrorIs(t, err, ErrNoParent)
}

func TestDeleteLocationRejected(t *testing.T) {
	w := MustLoad(innDoc())
	inn := w.Locations()[0]

	err := w.Delete(inn)
	assert.ErrorIs(t, err, ErrNoParent)
	assert.NotNil(t, w.Get(inn))
}

func TestDeleteMakesHandlesStale(t *testing.T) {
	w := MustLoad(innDoc())
	inn := w.Locations()[0]
	merchant := w.Children(inn, Characters)[0]
	sword := w.Children(merchant, Items)[0]

	require.NoError(t, w.Delete(merchant))
	assert.Nil(t, w.Get(merchant))
	assert.Nil(t, w.Get(sword))
	assert.Len(t, w.Children(inn, Characters), 1)

	// A recycled slot gets a new generation.
	fresh, err := w.NewNode(Items, "", "Coin", nil)
	require.NoError(t, err)
	assert.NotEqual(t, merchant, fresh)
	assert.NotEqual(t, sword, fresh)
	assert.Nil(t, w.Get(sword))

	_, err = w.Path(merchant)
	assert.ErrorIs(t, err, ErrStale)
}

func TestRemoveChildNotChild(t *testing.T) {
	w := MustLoad(innDoc())
	locs := w.Locations()
	merchant := w.Children(locs[0], Characters)[0]

	err := w.RemoveChild(locs[1], Characters, merchant)
	assert.ErrorIs(t, err, ErrNotChild)
}

func TestPathAndAncestor(t *testing.T) {
	w := MustLoad(innDoc())
	inn := w.Locations()[0]
	merchant := w.Children(inn, Characters)[0]
	sword := w.Children(merchant, Items)[0]

	path, err := w.Path(sword)
	require.NoError(t, err)
	assert.Equal(t, []Handle{inn, merchant, sword}, path)

	assert.True(t, w.IsAncestor(inn, sword))
	assert.True(t, w.IsAncestor(merchant, sword))
	assert.False(t, w.IsAncestor(sword, merchant))
	assert.False(t, w.IsAncestor(sword, sword))
}

func TestCopySubtreeFreshIdentity(t *testing.T) {
	w := MustLoad(innDoc())
	inn := w.Locations()[0]
	merchant := w.Children(inn, Characters)[0]

	dup, err := w.CopySubtree(merchant)
	require.NoError(t, err)
	assert.NotEqual(t, merchant, dup)
	assert.True(t, w.Get(dup).Parent().IsZero())

	dupSword := w.Children(dup, Items)
	require.Len(t, dupSword, 1)
	assert.NotEqual(t, w.Children(merchant, Items)[0], dupSword[0])

	w.Get(dup).SetAttr("Gold", ir.Int(99))
	assert.Equal(t, ir.Int(10), w.Get(merchant).Attributes["Gold"])

	_, err = w.CopySubtree(inn)
	assert.ErrorIs(t, err, ErrLayer)
}

func TestCloneIsIndependent(t *testing.T) {
	w := MustLoad(innDoc())
	inn := w.Locations()[0]
	merchant := w.Children(inn, Characters)[0]

	c := w.Clone()
	c.Get(merchant).SetAttr("Gold", ir.Int(0))
	require.NoError(t, c.Delete(w.Children(inn, Characters)[1]))

	assert.Equal(t, ir.Int(10), w.Get(merchant).Attributes["Gold"])
	assert.Len(t, w.Children(inn, Characters), 2)
	assert.Len(t, c.Children(inn, Characters), 1)

	w.ReplaceWith(c)
	assert.Equal(t, ir.Int(0), w.Get(merchant).Attributes["Gold"])
	assert.Len(t, w.Children(inn, Characters), 1)
}

func TestWalkPreOrder(t *testing.T) {
	w := MustLoad(innDoc())

	var names []string
	var depths []int
	w.Walk(func(path []Handle) bool {
		names = append(names, w.Get(path[len(path)-1]).Name)
		depths = append(depths, len(path))
		return true
	})
	assert.Equal(t, []string{"Inn", "Merchant", "Sword", "Hero", "Road"}, names)
	assert.Equal(t, []int{1, 2, 3, 2, 1}, depths)

	names = nil
	w.Walk(func(path []Handle) bool {
		names = append(names, w.Get(path[len(path)-1]).Name)
		return len(path) < 2
	})
	assert.Equal(t, []string{"Inn", "Merchant", "Hero", "Road"}, names)
}

func TestInstantiate(t *testing.T) {
	w := MustLoad(innDoc())
	sheaf := ir.NodeDoc{Name: "Chest", Items: []ir.NodeDoc{{Name: "Coin"}}}

	a, err := w.Instantiate(sheaf, Items)
	require.NoError(t, err)
	b, err := w.Instantiate(sheaf, Items)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, w.Children(a, Items), 1)

	_, err = w.Instantiate(sheaf, Locations)
	assert.ErrorIs(t, err, ErrLayer)

	_, err = w.Instantiate(ir.NodeDoc{Name: "Ghost", IsObject: true}, Narration)
	assert.True(t, IsLayerError(err))
}

func TestHandleStringRoundTrip(t *testing.T) {
	h := Handle{Index: 12, Gen: 3}
	assert.Equal(t, "12.3", h.String())

	back, err := ParseHandle("12.3")
	require.NoError(t, err)
	assert.Equal(t, h, back)

	for _, bad := range []string{"", "12", "x.1", "1.0"} {
		_, err := ParseHandle(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, -1, Handle{Index: 1, Gen: 2}.Compare(Handle{Index: 2, Gen: 1}))
	assert.Equal(t, 1, Handle{Index: 2, Gen: 2}.Compare(Handle{Index: 2, Gen: 1}))
	assert.Equal(t, 0, h.Compare(h))
}

func TestParseLayer(t *testing.T) {
	l, err := ParseLayer("Items")
	require.NoError(t, err)
	assert.Equal(t, Items, l)
	assert.Equal(t, "Narration", Narration.String())

	_, err = ParseLayer("Stuff")
	assert.ErrorIs(t, err, ErrLayer)
}
