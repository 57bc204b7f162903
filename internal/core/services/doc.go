// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The incremental sync core lives here: payload normalisation, diff
// extraction, category resolution, content index maintenance, shard
// materialisation and the remote document lifecycle.
package services
