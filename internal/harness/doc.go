// Package harness runs story scenarios as executable tests.
//
// A scenario starts from a world and a set of productions, applies a
// sequence of productions through the engine, and then checks assertions
// against the resulting world and move history.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: merchant_gold
//	description: "The merchant earns gold twice"
//	world: { Locations: [...] }        # or world_file: worlds/inn.json
//	productions: [ {...} ]             # and/or production_files: [...]
//	steps:
//	  - production: "Earn gold"
//	    location: Inn
//	    subject: ""                    # optional acting Character
//	    variant: 0                     # index into the ordered variants
//	    strict: false
//	    expect_variants: 1             # optional
//	    expect_failed: []              # optional failed instruction indices
//	    expect_description: "..."      # optional personalised Description
//	assertions:
//	  - type: attribute_equals
//	    node: Merchant
//	    attribute: Gold
//	    value: 20
//
// World and production documents use the same keys as their JSON form.
// File paths are relative to the scenario file.
//
// # Assertion Types
//
//   - attribute_equals: node's attribute equals value
//   - attribute_absent: node has no such attribute
//   - node_count: the reference ref resolves to exactly count nodes
//   - node_present: node resolves to at least one node
//   - node_absent: node resolves to nothing
//   - node_in: node is directly owned by parent
//   - history_count: production was applied exactly count times
//
// Node names and references resolve against the whole world: every
// segment matches a node by Id or Name.
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory store, a logical clock starting at 0
// and sequential move IDs (move-001, move-002, ...), so the same scenario
// always yields byte-identical history and world snapshots for golden
// comparison.
package harness
