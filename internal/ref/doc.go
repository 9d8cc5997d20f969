// Package ref resolves reference strings to node paths.
//
// A reference names a node by Id or Name, optionally followed by layer and
// name segments that walk down the ownership tree:
//
//	M                        the node bound to pattern node M
//	M/Items/Sword            an Item named Sword directly owned by M
//	M/Items/*                every Item directly owned by M
//	L/**/Items/Coin          a Coin at any depth below L
//
// Layer names between segments are descriptive only, except when followed
// by "*", which widens the segment to every child of that layer. "**"
// splits the reference into strips; strips must appear in order along the
// path with any number of nodes between them, and the last strip must end
// at the addressed node.
//
// Resolve anchors the first segment in a production's left-hand side and
// maps it through a variant onto the world. ResolveIn resolves within a
// single tree without a variant.
package ref
