// Package domain defines the core business entities for the catalog
// sync pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ChangeEvent: A canonical change notification for one page
//   - Entity: A tracked catalog product, keyed by canonical URL
//   - ShardArtifact: A flat text unit uploaded to the knowledge base
//   - SyncRecord: The stored link between an artifact and its remote document
//   - SiteProfile: Per-site parameters for extraction and categorisation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
