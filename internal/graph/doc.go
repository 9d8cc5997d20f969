// Package graph holds world and pattern graphs.
//
// Nodes live in a generational arena and are addressed by Handle. Every
// non-Location node is owned by exactly one parent, in exactly one of the
// Characters, Items or Narration layers. Locations are the roots; they are
// never owned and may carry Connections to other Locations.
//
// All ownership changes go through a (parent, layer) pair: AddChild,
// RemoveChild, Detach, Delete. A handle whose node was deleted becomes
// stale; Get returns nil for it instead of a recycled node.
//
// A World is not safe for concurrent use.
package graph
