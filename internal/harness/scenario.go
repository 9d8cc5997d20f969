package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/storygram/internal/compiler"
	"github.com/roach88/storygram/internal/ir"
)

// Scenario defines a story test: a starting world, productions, the steps
// to apply and the assertions that must hold afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// WorldFile is a JSON world document, relative to the scenario file.
	// Mutually exclusive with an inline world.
	WorldFile string `yaml:"world_file,omitempty"`

	// ProductionFiles are JSON productions documents, relative to the
	// scenario file. Their productions come before inline ones.
	ProductionFiles []string `yaml:"production_files,omitempty"`

	// RawWorld and RawProductions hold the inline documents as decoded YAML.
	RawWorld       any   `yaml:"world,omitempty"`
	RawProductions []any `yaml:"productions,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final world and history.
	Assertions []Assertion `yaml:"assertions"`

	// World and Productions are the resolved documents.
	World       ir.WorldDoc        `yaml:"-"`
	Productions []ir.ProductionDoc `yaml:"-"`
}

// Step applies one production.
type Step struct {
	// Production is the production Title.
	Production string `yaml:"production"`

	// Location is the Name or Id of the main Location to match in.
	Location string `yaml:"location"`

	// Subject optionally names the acting Character inside Location.
	Subject string `yaml:"subject,omitempty"`

	// Variant indexes the ordered applicable variants.
	Variant int `yaml:"variant,omitempty"`

	// Strict rolls the world back if any instruction fails.
	Strict bool `yaml:"strict,omitempty"`

	// ExpectVariants, if set, is the expected number of applicable
	// variants. Zero means the production must not apply; the step is
	// then skipped.
	ExpectVariants *int `yaml:"expect_variants,omitempty"`

	// ExpectFailed lists the instruction indices expected to fail. When
	// nil, any failure fails the scenario.
	ExpectFailed []int `yaml:"expect_failed,omitempty"`

	// ExpectDescription is the expected personalised Description.
	ExpectDescription string `yaml:"expect_description,omitempty"`
}

// Assertion validates the final world or history.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Node names the node under test (attribute_*, node_present,
	// node_absent, node_in).
	Node string `yaml:"node,omitempty"`

	// Attribute is the attribute name (attribute_*).
	Attribute string `yaml:"attribute,omitempty"`

	// Value is the expected attribute value (attribute_equals). A missing
	// value expects null.
	Value any `yaml:"value,omitempty"`

	// Ref is a reference resolved against the world (node_count).
	Ref string `yaml:"ref,omitempty"`

	// Parent names the expected owner (node_in).
	Parent string `yaml:"parent,omitempty"`

	// Production is a production Title (history_count).
	Production string `yaml:"production,omitempty"`

	// Count is the expected number of nodes or moves.
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertAttributeEquals = "attribute_equals"
	AssertAttributeAbsent = "attribute_absent"
	AssertNodeCount       = "node_count"
	AssertNodePresent     = "node_present"
	AssertNodeAbsent      = "node_absent"
	AssertNodeIn          = "node_in"
	AssertHistoryCount    = "history_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. File references are resolved
// relative to baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := scenario.resolve(baseDir); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// resolve fills World and Productions from files and inline documents.
func (s *Scenario) resolve(baseDir string) error {
	switch {
	case s.WorldFile != "" && s.RawWorld != nil:
		return fmt.Errorf("world and world_file are mutually exclusive")
	case s.WorldFile != "":
		data, err := os.ReadFile(resolvePath(baseDir, s.WorldFile))
		if err != nil {
			return fmt.Errorf("world_file: %w", err)
		}
		if err := json.Unmarshal(data, &s.World); err != nil {
			return fmt.Errorf("world_file %s: %w", s.WorldFile, err)
		}
	case s.RawWorld != nil:
		if err := viaJSON(s.RawWorld, &s.World); err != nil {
			return fmt.Errorf("world: %w", err)
		}
	}

	for _, f := range s.ProductionFiles {
		docs, err := compiler.LoadProductionsFile(resolvePath(baseDir, f))
		if err != nil {
			return fmt.Errorf("production_files: %w", err)
		}
		s.Productions = append(s.Productions, docs...)
	}
	for i, raw := range s.RawProductions {
		var doc ir.ProductionDoc
		if err := viaJSON(raw, &doc); err != nil {
			return fmt.Errorf("productions[%d]: %w", i, err)
		}
		s.Productions = append(s.Productions, doc)
	}
	return nil
}

func resolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}

// viaJSON decodes a YAML-decoded value into a document type through its
// JSON form, so documents use the same keys in YAML as in JSON.
func viaJSON(raw any, out any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.World.IsEmpty() {
		return fmt.Errorf("world must have at least one Location")
	}

	if len(s.Productions) == 0 {
		return fmt.Errorf("productions list is required and must be non-empty")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Production == "" {
			return fmt.Errorf("steps[%d]: production is required", i)
		}
		if step.Location == "" {
			return fmt.Errorf("steps[%d]: location is required", i)
		}
		if step.Variant < 0 {
			return fmt.Errorf("steps[%d]: variant must be non-negative", i)
		}
		if step.ExpectVariants != nil && *step.ExpectVariants < 0 {
			return fmt.Errorf("steps[%d]: expect_variants must be non-negative", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertAttributeEquals, AssertAttributeAbsent:
		if a.Node == "" || a.Attribute == "" {
			return fmt.Errorf("assertions[%d]: node and attribute are required for %s", index, a.Type)
		}
	case AssertNodeCount:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for node_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for node_count", index)
		}
	case AssertNodePresent, AssertNodeAbsent:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for %s", index, a.Type)
		}
	case AssertNodeIn:
		if a.Node == "" || a.Parent == "" {
			return fmt.Errorf("assertions[%d]: node and parent are required for node_in", index)
		}
	case AssertHistoryCount:
		if a.Production == "" {
			return fmt.Errorf("assertions[%d]: production is required for history_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for history_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
