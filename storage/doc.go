// Package storage provides the durable key/value store that backs authkit's
// cold-start session restoration: the current user and a trimmed session
// projection, written under fixed string keys.
//
// # Design
//
// [Store] is a minimal byte-oriented contract. Three implementations ship:
// [Memory] for tests and ephemeral processes, [File] for local on-disk
// persistence (atomic rename writes), and [Redis] for deployments that share
// the cache across processes.
//
// The root package is the single writer: no other component persists state,
// so implementations need no cross-process coordination beyond what the
// backend itself guarantees.
//
// # What this package must NOT do
//
//   - Interpret the stored payloads (the root package owns the projection).
//   - Import authkit or any sibling package.
package storage
