// Package domain contains the core business entities for the workspace engine.
//
// This package defines:
//   - Entity types (Resource, ReleaseTarget, DeploymentVariable, etc.)
//   - Value objects and enums
//   - Input types for repository create operations
//
// # Design Philosophy
//
// Domain types are persistence-agnostic and represent the core
// business concepts independent of how they are stored or cached.
// Every entity is reachable from a Workspace; repositories enforce
// that boundary, not the types themselves.
//
// # Key Entities
//
//   - Resource: a deployable target (cluster, VM, account) with a metadata map
//   - ReleaseTarget: the (resource, environment, deployment) tuple the engine
//     schedules work against
//   - DeploymentVariable: a named variable scoped to a deployment, with an
//     optional default value pointer
//   - DeploymentVariableValue: a polymorphic value, either direct or a
//     reference resolved at deploy time
//
// # Naming Conventions
//
// Types ending in "Input" are used for create operations.
package domain
