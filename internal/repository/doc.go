// Package repository defines the entity repository contract for the
// workspace engine.
//
// Every concrete repository, store-backed or cache-backed, implements the
// same generic contract for one entity type. Callers (the event pipeline
// and the release/policy evaluation logic) depend only on this contract;
// they never see the store or the cache directly.
//
// # Architecture
//
// The contract is implemented twice:
//   - internal/repository/postgres: workspace-scoped joined SQL against
//     the relational store
//   - internal/repository/memory: an in-process snapshot hydrated once
//     per workspace, with store write-back
//
// # Absence
//
// Absence is never an error at the contract boundary. Get and Delete
// return the zero value (nil for pointer entities) with a nil error for
// unknown ids. A workspace-scope violation is indistinguishable from
// not-found; the join predicate simply excludes foreign rows.
//
// # Thread Safety
//
// Store-backed implementations are safe for concurrent use; connection
// pools are managed at the database layer. Cache-backed implementations
// serialize map access internally but expect one owning workspace-scoped
// context per instance.
package repository
