package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/storygram/internal/ir"
)

// Snapshot captures the observable outcome of a scenario execution.
// It is serialized to canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Steps        []StepResult
	World        ir.WorldDoc
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
//
// Move IDs and modified nodes are left out: the former are fixed by the
// harness and the latter follow from the world.
func (s *Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, st := range s.Steps {
		failed := make([]any, len(st.Failed))
		for j, f := range st.Failed {
			failed[j] = f
		}
		m := map[string]any{
			"production": st.Production,
			"location":   st.Location,
			"variants":   st.Variants,
			"applied":    st.Applied,
			"failed":     failed,
		}
		if st.Description != "" {
			m["description"] = st.Description
		}
		if st.RolledBack {
			m["rolled_back"] = true
		}
		steps[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         steps,
		"world":         s.World,
	}
}

// MarshalSnapshot returns the canonical JSON of a scenario outcome.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snap := Snapshot{ScenarioName: name, Steps: result.Steps, World: result.World}
	return ir.MarshalCanonical(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the outcome against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the outcome doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
