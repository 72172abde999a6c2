// Package projection provides the reconciliation cache: a read-mostly,
// eventually-consistent mirror of the inventory keyed by entity id.
//
// The cache is an ordinary subscriber of the domain event bus and applies
// each event to its in-memory state; Rebuild re-scans the store (relaxed
// reads are fine for a mirror). It is never a source of truth: deletion
// safety and loan eligibility are always decided against the store itself.
package projection
