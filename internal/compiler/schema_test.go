package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *SchemaValidator {
	t.Helper()
	sv, err := NewSchemaValidator()
	require.NoError(t, err)
	return sv
}

const earnGoldJSON = `{
  "Title": "Earn gold",
  "Description": "«M» earns some gold.",
  "LSide": {"Locations": [{"Id": "L", "Characters": [{"Id": "M", "Name": "Merchant", "IsObject": true}]}]},
  "Preconditions": [{"Cond": "M.Gold < 100"}, {"Count": "L/Characters/*", "Min": 1, "Max": 3}],
  "Instructions": [
    {"Op": "add", "Attribute": "M.Gold", "Value": 5},
    {"Op": "set", "Attribute": "M.Rested", "Value": null},
    {"Op": "delete", "Nodes": "M/Items/*", "Limit": 1, "ChildrenLimiter": "move"}
  ]
}`

func TestSchemaValidator_Productions(t *testing.T) {
	sv := newValidator(t)

	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"single production", earnGoldJSON, true},
		{"array of productions", "[" + earnGoldJSON + "," + earnGoldJSON + "]", true},
		{"empty array", "[]", true},
		{"bare array lside", `{"Title": "Look", "LSide": [{"Id": "L"}]}`, true},
		{"extra production metadata", `{"Title": "Look", "Author": "kim", "LSide": [{"Id": "L"}]}`, true},
		{"missing title", `{"LSide": [{"Id": "L"}]}`, false},
		{"empty title", `{"Title": "", "LSide": [{"Id": "L"}]}`, false},
		{"missing lside", `{"Title": "Look"}`, false},
		{"unknown node key", `{"Title": "Look", "LSide": [{"Id": "L", "Colour": "red"}]}`, false},
		{"object attribute value", `{"Title": "Look", "LSide": [{"Id": "L", "Attributes": {"A": {"x": 1}}}]}`, false},
		{"empty destination", `{"Title": "Look", "LSide": [{"Id": "L", "Connections": [{"Destination": ""}]}]}`, false},
		{"unknown op", `{"Title": "Look", "LSide": [{"Id": "L"}], "Instructions": [{"Op": "teleport"}]}`, false},
		{"negative limit", `{"Title": "Look", "LSide": [{"Id": "L"}], "Instructions": [{"Op": "delete", "Nodes": "L", "Limit": -1}]}`, false},
		{"unknown limiter", `{"Title": "Look", "LSide": [{"Id": "L"}], "Instructions": [{"Op": "delete", "Nodes": "L", "ItemsLimiter": "keep"}]}`, false},
		{"not json", `{"Title": `, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := sv.ValidateProductions("productions.json", []byte(tt.input))
			if tt.ok {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			for _, e := range errs {
				assert.Equal(t, ErrSchema, e.Code)
				assert.NotEmpty(t, e.Field)
			}
		})
	}
}

func TestSchemaValidator_World(t *testing.T) {
	sv := newValidator(t)

	assert.Empty(t, sv.ValidateWorld("w.json", []byte(`{"Locations": [{"Name": "Inn", "Characters": [{"Name": "Merchant", "Attributes": {"Gold": 10}}]}]}`)))
	assert.Empty(t, sv.ValidateWorld("w.json", []byte(`[{"Name": "Inn"}, {"Name": "Road", "Connections": [{"Destination": "Inn"}]}]`)))
	assert.NotEmpty(t, sv.ValidateWorld("w.json", []byte(`{"Places": []}`)))
	assert.NotEmpty(t, sv.ValidateWorld("w.json", []byte(`{"Locations": [{"Name": 3}]}`)))
}
