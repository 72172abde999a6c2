// Package shell contains the imperative glue between the pure domain core
// and the inventory store: record codecs, per-id locking, the domain event
// bus, and opt-in retry for guarded writes.
//
// The managers in catalog and circulation compose these pieces; nothing in
// this package makes business decisions.
package shell
