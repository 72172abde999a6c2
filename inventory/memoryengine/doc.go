// Package memoryengine provides an in-memory implementation of the inventory store.
//
// It mirrors the postgresengine semantics: guarded commits are atomic (guards
// are evaluated under the same lock as the write), Put upserts preserving
// created_at, and Scan filters on kinds plus top-level JSON payload fields.
// Payloads are copied on write and on read so callers cannot mutate stored
// state through returned records.
//
// Intended for tests and local development; an optional simulated latency
// widens race windows so concurrency tests exercise realistic interleavings.
package memoryengine
