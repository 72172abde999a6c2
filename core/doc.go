// Package core contains the pure domain model of the circulation system:
// the Library, Book and LoanRecord entities, the typed error taxonomy, the
// loan eligibility decision, and the domain events published after writes.
//
// Everything in this package is side-effect free. Entities are validated on
// construction, the eligibility check is a pure function over an explicit
// state snapshot, and events are plain values. Storage, locking and event
// delivery live in the surrounding packages.
package core
