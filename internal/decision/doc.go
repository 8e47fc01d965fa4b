// Package decision persists per-identity moderation state in SQLite and
// enforces the status machine PENDING -> {APPROVED, DECLINED} -> EXECUTED.
//
// The store is the single resource shared by the reconciliation loop and
// the remote decision source. Every mutation is a conditional status
// transition written synchronously; the two writers never target the same
// transition (the operator only decides, the engine only creates and
// executes), and a per-key lock serializes read-then-transition sequences
// against each other. Records are append-only: stale undecided entries are
// archived, never deleted or reused.
//
// Treat this package as the single source of truth for decision semantics;
// schema changes bump schemaVersion in schema.go.
package decision
