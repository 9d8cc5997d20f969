package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldDocAcceptsBareArray(t *testing.T) {
	var w WorldDoc
	require.NoError(t, json.Unmarshal([]byte(`[{"Name":"Inn"},{"Name":"Road"}]`), &w))
	require.Len(t, w.Locations, 2)
	assert.Equal(t, "Road", w.Locations[1].Name)

	var w2 WorldDoc
	require.NoError(t, json.Unmarshal([]byte(`{"Locations":[{"Name":"Inn"}]}`), &w2))
	require.Len(t, w2.Locations, 1)
}

func TestWorldDocIsEmpty(t *testing.T) {
	var nilDoc *WorldDoc
	assert.True(t, nilDoc.IsEmpty())

	var rside WorldDoc
	require.NoError(t, json.Unmarshal([]byte(`{}`), &rside))
	assert.True(t, rside.IsEmpty())
}

func TestInstructionValueDecoding(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Value
	}{
		{"int", `{"Op":"add","Attribute":"M.Gold","Value":5}`, Int(5)},
		{"float", `{"Op":"mul","Attribute":"M.Gold","Value":1.5}`, Float(1.5)},
		{"string", `{"Op":"set","Attribute":"M.Mood","Value":"happy"}`, String("happy")},
		{"explicit null", `{"Op":"set","Attribute":"M.Mood","Value":null}`, Null{}},
		{"absent", `{"Op":"set","Attribute":"M.Mood","Expr":"1 + 1"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in InstructionDoc
			require.NoError(t, json.Unmarshal([]byte(tt.json), &in))
			assert.Equal(t, tt.want, in.Value)
		})
	}
}

func TestInstructionMarshalKeepsValue(t *testing.T) {
	limit := 2
	in := InstructionDoc{Op: OpCreate, In: "L/Items", Count: &limit, Sheaf: &NodeDoc{Name: "Coin"}}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"Value"`)

	in = InstructionDoc{Op: OpAdd, Attribute: "M.Gold", Value: Int(5)}
	data, err = json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Value":5`)
	assert.Contains(t, string(data), `"Attribute":"M.Gold"`)

	var back InstructionDoc
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, in, back)
}

func TestProductionDocFieldNames(t *testing.T) {
	doc := `{
		"Title": "Earn gold",
		"LSide": {"Locations": [{"Id": "L", "Characters": [{"Id": "M", "Name": "Merchant"}]}]},
		"RSide": {},
		"Preconditions": [{"Count": "L/Characters/*", "Min": 1}],
		"Instructions": [{"Op": "add", "Attribute": "M.Gold", "Value": 5}]
	}`
	var p ProductionDoc
	require.NoError(t, json.Unmarshal([]byte(doc), &p))

	assert.Equal(t, "Earn gold", p.Title)
	require.Len(t, p.LSide.Locations, 1)
	assert.Equal(t, "M", p.LSide.Locations[0].Characters[0].Id)
	assert.True(t, p.RSide.IsEmpty())
	require.Len(t, p.Preconditions, 1)
	require.NotNil(t, p.Preconditions[0].Min)
	assert.Equal(t, 1, *p.Preconditions[0].Min)
	assert.Nil(t, p.Preconditions[0].Max)
	assert.Equal(t, Int(5), p.Instructions[0].Value)
}

func TestNodeDocLabel(t *testing.T) {
	assert.Equal(t, "M", NodeDoc{Id: "M", Name: "Merchant"}.Label())
	assert.Equal(t, "Merchant", NodeDoc{Name: "Merchant"}.Label())
}
