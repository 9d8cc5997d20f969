package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NodeDoc is the authored form of a node. The same shape serves world
// nodes, pattern (left-hand side) nodes and create templates.
type NodeDoc struct {
	Id          string          `json:"Id,omitempty"`
	Name        string          `json:"Name,omitempty"`
	Attributes  Attributes      `json:"Attributes,omitempty"`
	IsObject    bool            `json:"IsObject,omitempty"`
	Connections []ConnectionDoc `json:"Connections,omitempty"`
	Characters  []NodeDoc       `json:"Characters,omitempty"`
	Items       []NodeDoc       `json:"Items,omitempty"`
	Narration   []NodeDoc       `json:"Narration,omitempty"`
}

// Label returns Id when present, otherwise Name.
func (n NodeDoc) Label() string {
	if n.Id != "" {
		return n.Id
	}
	return n.Name
}

// ConnectionDoc is a directed edge between Locations. Destination is a
// Name or Id string in the document form.
type ConnectionDoc struct {
	Destination string `json:"Destination"`
}

// WorldDoc is a top-level ordered sequence of Locations.
type WorldDoc struct {
	Locations []NodeDoc `json:"Locations"`
}

// UnmarshalJSON accepts either {"Locations": [...]} or a bare array of
// Locations.
func (w *WorldDoc) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var locs []NodeDoc
		if err := json.Unmarshal(trimmed, &locs); err != nil {
			return err
		}
		w.Locations = locs
		return nil
	}
	type plain WorldDoc
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*w = WorldDoc(p)
	return nil
}

// IsEmpty reports whether the document holds no Locations.
func (w *WorldDoc) IsEmpty() bool {
	return w == nil || len(w.Locations) == 0
}

// ProductionDoc is the authored form of a production.
type ProductionDoc struct {
	Title         string            `json:"Title"`
	TitleGeneric  string            `json:"TitleGeneric,omitempty"`
	Description   string            `json:"Description,omitempty"`
	LSide         WorldDoc          `json:"LSide"`
	RSide         *WorldDoc         `json:"RSide,omitempty"`
	Preconditions []PreconditionDoc `json:"Preconditions,omitempty"`
	Instructions  []InstructionDoc  `json:"Instructions,omitempty"`
}

// PreconditionDoc holds either a Cond expression or a Count multireference
// with optional bounds.
type PreconditionDoc struct {
	Cond  string `json:"Cond,omitempty"`
	Count string `json:"Count,omitempty"`
	Min   *int   `json:"Min,omitempty"`
	Max   *int   `json:"Max,omitempty"`
}

// Instruction operations.
const (
	OpMove    = "move"
	OpCopy    = "copy"
	OpCreate  = "create"
	OpDelete  = "delete"
	OpSet     = "set"
	OpAdd     = "add"
	OpMul     = "mul"
	OpUnset   = "unset"
	OpWinning = "winning"
)

// ValidOps lists the recognised instruction operations.
var ValidOps = map[string]bool{
	OpMove:    true,
	OpCopy:    true,
	OpCreate:  true,
	OpDelete:  true,
	OpSet:     true,
	OpAdd:     true,
	OpMul:     true,
	OpUnset:   true,
	OpWinning: true,
}

// Delete limiter dispositions.
const (
	LimiterDelete   = "delete"
	LimiterProhibit = "prohibit"
	LimiterMove     = "move"
)

// ValidLimiters lists the allowed *Limiter values. Empty means default.
var ValidLimiters = map[string]bool{
	"":              true,
	LimiterDelete:   true,
	LimiterProhibit: true,
	LimiterMove:     true,
}

// InstructionDoc is one rewrite operation.
//
// Value is nil when the document carries no Value field. A literal JSON
// null decodes to Null{}.
type InstructionDoc struct {
	Op                string   `json:"Op"`
	Node              string   `json:"Node,omitempty"`
	Nodes             string   `json:"Nodes,omitempty"`
	To                string   `json:"To,omitempty"`
	In                string   `json:"In,omitempty"`
	Sheaf             *NodeDoc `json:"Sheaf,omitempty"`
	Attribute         string   `json:"Attribute,omitempty"`
	Value             Value    `json:"-"`
	Expr              string   `json:"Expr,omitempty"`
	Limit             int      `json:"Limit,omitempty"`
	Count             *int     `json:"Count,omitempty"`
	ChildrenLimiter   string   `json:"ChildrenLimiter,omitempty"`
	CharactersLimiter string   `json:"CharactersLimiter,omitempty"`
	ItemsLimiter      string   `json:"ItemsLimiter,omitempty"`
	NarrationLimiter  string   `json:"NarrationLimiter,omitempty"`
}

// instructionAlias has the same fields without the custom methods.
type instructionAlias InstructionDoc

// UnmarshalJSON decodes an instruction, keeping Value typed.
func (in *InstructionDoc) UnmarshalJSON(data []byte) error {
	var wire struct {
		instructionAlias
		Value json.RawMessage `json:"Value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*in = InstructionDoc(wire.instructionAlias)
	if len(wire.Value) > 0 {
		v, err := UnmarshalValue(wire.Value)
		if err != nil {
			return fmt.Errorf("instruction %s: Value: %w", in.Op, err)
		}
		in.Value = v
	}
	return nil
}

// MarshalJSON encodes an instruction including its typed Value.
func (in InstructionDoc) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if in.Value != nil {
		b, err := MarshalValue(in.Value)
		if err != nil {
			return nil, fmt.Errorf("instruction %s: Value: %w", in.Op, err)
		}
		raw = b
	}
	return json.Marshal(struct {
		instructionAlias
		Value json.RawMessage `json:"Value,omitempty"`
	}{instructionAlias(in), raw})
}

// Binding records one (pattern node, world node) pair of an applied variant.
type Binding struct {
	PatternRef  string `json:"pattern_ref"`  // pattern Id, or Name when no Id
	WorldHandle string `json:"world_handle"` // graph handle string
	WorldName   string `json:"world_name,omitempty"`
}

// Move is one applied production: the history record persisted by the
// store and printed by the CLI.
type Move struct {
	ID              string    `json:"id"`  // UUIDv7
	Seq             int64     `json:"seq"` // Logical clock
	ProductionTitle string    `json:"production_title"`
	Bindings        []Binding `json:"bindings"`
	VariantHash     string    `json:"variant_hash"`
	Modified        []string  `json:"modified"` // handle strings
	Failed          []int     `json:"failed"`   // instruction indices
	Strict          bool      `json:"strict"`
	RolledBack      bool      `json:"rolled_back"`
	BeforeDigest    string    `json:"before_digest"`
	AfterDigest     string    `json:"after_digest"`
}
