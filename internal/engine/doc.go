// Package engine matches productions against a world and applies them.
//
// A production's left-hand side is a small pattern graph. Matching binds
// every pattern node to a distinct world node, producing Variants;
// preconditions then narrow the variants, and applying a production runs
// its instructions under one chosen variant, mutating the world in place.
//
// ARCHITECTURE:
//
// Match runs in three phases over the pattern's Locations:
//  1. Pruning: the main Location is bound directly, per-name Location
//     counts are checked against the world, and candidate pools are built.
//  2. Neighbor propagation: Connections of singleton candidates narrow the
//     pools of their neighbors, to a fixed point.
//  3. Enumeration: each candidate is matched recursively child layer by
//     child layer, and the Cartesian product of child bindings is kept
//     only where it is injective.
//
// The search is combinatorial in the branching factor of each layer and
// has no internal deadline.
//
// Apply is best-effort by default: a failing instruction is skipped and
// logged, and later instructions still run. In strict mode the world is
// restored from a snapshot as soon as any instruction fails.
//
// DETERMINISM:
// Handles are assigned in document order, variants are sorted by their
// world handles, and reference results are sorted by path length with
// ties in tree order, so the same inputs always give the same output.
//
// The engine is not safe for concurrent use against the same World.
package engine
