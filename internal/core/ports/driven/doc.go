// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Scraper: Fetches structured content for an entity page
//   - KnowledgeBase: The remote document store (upload/delete/assign/verify)
//   - IndexStore: Content index and manifest persistence
//   - SyncStateStore: Artifact-to-remote-document state persistence
//   - ArtifactStore: Shard artifact persistence
//   - ProfileStore: Site profile configuration
package driven
