package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storygram/internal/graph"
	"github.com/roach88/storygram/internal/ir"
)

func TestParseProductions(t *testing.T) {
	docs, err := ParseProductions([]byte(earnGoldJSON))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "Earn gold", doc.Title)
	require.Len(t, doc.LSide.Locations, 1)
	assert.True(t, doc.LSide.Locations[0].Characters[0].IsObject)
	require.Len(t, doc.Preconditions, 2)
	assert.Equal(t, intPtr(3), doc.Preconditions[1].Max)
	require.Len(t, doc.Instructions, 3)
	assert.Equal(t, ir.Int(5), doc.Instructions[0].Value)
	assert.Equal(t, ir.Null{}, doc.Instructions[1].Value)
	assert.Nil(t, doc.Instructions[2].Value)
	assert.Equal(t, 1, doc.Instructions[2].Limit)

	docs, err = ParseProductions([]byte("[" + earnGoldJSON + "," + earnGoldJSON + "]"))
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = ParseProductions([]byte(`{"Title": 1}`))
	assert.Error(t, err)
}

func TestReadProductions(t *testing.T) {
	docs, err := ReadProductions(strings.NewReader(earnGoldJSON))
	require.NoError(t, err)
	assert.Equal(t, "Earn gold", docs[0].Title)
}

func TestParseWorld(t *testing.T) {
	w, err := ParseWorld([]byte(`[{"Name": "Inn", "Connections": [{"Destination": "Road"}]}, {"Name": "Road"}]`))
	require.NoError(t, err)
	assert.Equal(t, 2, w.Len())

	_, err = ParseWorld([]byte(`{"Locations": 3}`))
	assert.Equal(t, graph.ErrCodeMalformed, graph.LoadErrorCodeOf(err))

	_, err = ParseWorld([]byte(`[{"Name": "Inn", "Connections": [{"Destination": "Cave"}]}]`))
	assert.Equal(t, graph.ErrCodeUnresolvedDestination, graph.LoadErrorCodeOf(err))
}

func TestWorldFileRoundTrip(t *testing.T) {
	src := graph.MustLoad(ir.WorldDoc{Locations: []ir.NodeDoc{
		{Name: "Inn", Connections: []ir.ConnectionDoc{{Destination: "Road"}},
			Characters: []ir.NodeDoc{{Name: "Merchant", Attributes: ir.Attributes{"Gold": ir.Int(10)}}}},
		{Name: "Road"},
	}})
	path := filepath.Join(t.TempDir(), "out", "world.json")

	require.NoError(t, WriteWorldFile(path, src))
	got, err := LoadWorldFile(path)
	require.NoError(t, err)

	assert.Equal(t, ir.MustWorldDigest(src.Export()), ir.MustWorldDigest(got.Export()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"Locations\": ["))
}

func TestLoadFilesMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadWorldFile(filepath.Join(dir, "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadProductionsFile(filepath.Join(dir, "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadProductionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.json")
	require.NoError(t, os.WriteFile(path, []byte(earnGoldJSON), 0o644))

	docs, err := LoadProductionsFile(path)

	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestCheckProductions(t *testing.T) {
	sv := newValidator(t)

	docs, errs := CheckProductions(sv, "p.json", []byte(earnGoldJSON))
	assert.Empty(t, errs)
	assert.Len(t, docs, 1)

	// Schema failures stop before rule checks.
	_, errs = CheckProductions(sv, "p.json", []byte(`{"LSide": []}`))
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrSchema, errs[0].Code)

	// Schema-valid but rule-invalid.
	bad := strings.Replace(earnGoldJSON, `"Count": "L/Characters/*"`, `"Count": "Ghost/Items/*"`, 1)
	_, errs = CheckProductions(sv, "p.json", []byte(bad))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownReference, errs[0].Code)
	assert.Equal(t, "Preconditions[1].Count", errs[0].Field)

	// Arrays get index-prefixed fields.
	_, errs = CheckProductions(sv, "p.json", []byte("["+earnGoldJSON+","+earnGoldJSON+"]"))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateTitle, errs[0].Code)
}

func TestCheckWorld(t *testing.T) {
	sv := newValidator(t)

	w, errs := CheckWorld(sv, "w.json", []byte(`[{"Name": "Inn"}]`))
	assert.Empty(t, errs)
	assert.Equal(t, 1, w.Len())

	_, errs = CheckWorld(sv, "w.json", []byte(`[{"Name": "Inn", "Connections": [{"Destination": "Cave"}]}]`))
	require.Len(t, errs, 1)
	assert.Equal(t, string(graph.ErrCodeUnresolvedDestination), errs[0].Code)
	assert.Equal(t, "Locations[0].Connections[0]", errs[0].Field)
}
