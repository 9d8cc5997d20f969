package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldDigestStable(t *testing.T) {
	a := WorldDoc{Locations: []NodeDoc{{Name: "Inn", Attributes: Attributes{"x": Int(1), "y": Int(2)}}}}
	b := WorldDoc{Locations: []NodeDoc{{Name: "Inn", Attributes: Attributes{"y": Int(2), "x": Int(1)}}}}

	da, err := WorldDigest(a)
	require.NoError(t, err)
	db, err := WorldDigest(b)
	require.NoError(t, err)

	assert.Equal(t, da, db)
	assert.Len(t, da, 64)
}

func TestWorldDigestChangesWithContent(t *testing.T) {
	a := WorldDoc{Locations: []NodeDoc{{Name: "Inn"}}}
	b := WorldDoc{Locations: []NodeDoc{{Name: "Road"}}}
	assert.NotEqual(t, MustWorldDigest(a), MustWorldDigest(b))
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t,
		hashWithDomain(DomainWorld, data),
		hashWithDomain(DomainVariant, data))
}

func TestVariantHashOrderSensitive(t *testing.T) {
	b1 := []Binding{{PatternRef: "L", WorldHandle: "1.1"}, {PatternRef: "M", WorldHandle: "2.1"}}
	b2 := []Binding{{PatternRef: "M", WorldHandle: "2.1"}, {PatternRef: "L", WorldHandle: "1.1"}}

	h1, err := VariantHash(b1)
	require.NoError(t, err)
	h2, err := VariantHash(b2)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	// WorldName is informational only.
	b1[0].WorldName = "Inn"
	h3, err := VariantHash(b1)
	require.NoError(t, err)
	assert.Equal(t, h1, h3)
}

func TestProductionDigest(t *testing.T) {
	p := ProductionDoc{Title: "Earn gold", LSide: WorldDoc{Locations: []NodeDoc{{Id: "L"}}}}
	d1, err := ProductionDigest(p)
	require.NoError(t, err)

	p.Description = "changes nothing"
	d2, err := ProductionDigest(p)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}
