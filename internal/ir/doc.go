// Package ir provides the document model shared by every storygram package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This ensures IR remains the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Document field names follow the authored JSON format (Id, Name,
//     Attributes, Characters, Items, Narration, Connections, IsObject)
//   - Attribute values are the sealed Value type, never bare interface{}
//   - History records use snake_case JSON tags and logical clocks (seq)
//   - Canonical JSON is the only serialization used for digests
package ir
