// Package circulation owns the LoanRecord lifecycle: eligibility checks,
// loan creation, return processing, and overdue reporting.
//
// The eligibility decision itself is pure (core.DecideLoanEligibility); this
// package supplies the state it is decided against, always read fresh from
// the inventory store inside the same critical section as the write. The
// write is a single guarded commit, so the one-active-loan-per-book and
// borrow-ceiling invariants hold even against writers outside this process.
package circulation
