// Package catalog owns the Library and Book lifecycle: creation, partial
// updates, administrative status transitions, and the deletion-safety rules.
//
// Deletion safety is enforced twice: the per-id lock serializes in-process
// callers, and the store-level guard re-checks the invariant atomically with
// the delete, so a racing loan and a racing delete can never both succeed.
package catalog
