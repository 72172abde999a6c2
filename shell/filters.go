package shell

import (
	"github.com/openshelf/circulation-go/core"
	"github.com/openshelf/circulation-go/inventory"
)

// Payload predicate keys. They must match the JSON tags of the core entities
// since the Postgres engine compiles predicates to JSONB containment.
const (
	predicateKeyID        = "id"
	predicateKeyBookID    = "bookId"
	predicateKeyUserID    = "userId"
	predicateKeyLibraryID = "libraryId"
	predicateKeyStatus    = "status"
)

// FilterAllOfKind matches every record of one kind.
func FilterAllOfKind(kind inventory.RecordKindString) inventory.Filter {
	return inventory.BuildRecordFilter().
		Matching().
		AnyKindOf(kind).
		Finalize()
}

// FilterLibraryByID matches the library record with the given id.
func FilterLibraryByID(libraryID core.LibraryIDString) inventory.Filter {
	return inventory.BuildRecordFilter().
		Matching().
		AnyKindOf(RecordKindLibrary).
		AndAnyPredicateOf(inventory.P(predicateKeyID, libraryID)).
		Finalize()
}

// FilterBookByID matches the book record with the given id.
func FilterBookByID(bookID core.BookIDString) inventory.Filter {
	return inventory.BuildRecordFilter().
		Matching().
		AnyKindOf(RecordKindBook).
		AndAnyPredicateOf(inventory.P(predicateKeyID, bookID)).
		Finalize()
}

// FilterBooksInLibrary matches all book records owned by the given library.
func FilterBooksInLibrary(libraryID core.LibraryIDString) inventory.Filter {
	return inventory.BuildRecordFilter().
		Matching().
		AnyKindOf(RecordKindBook).
		AndAnyPredicateOf(inventory.P(predicateKeyLibraryID, libraryID)).
		Finalize()
}

// FilterBorrowedBooksInLibrary matches the borrowed book records of the given
// library. Used as the deletion-safety guard for libraries.
func FilterBorrowedBooksInLibrary(libraryID core.LibraryIDString) inventory.Filter {
	return inventory.BuildRecordFilter().
		Matching().
		AnyKindOf(RecordKindBook).
		AndAllPredicatesOf(
			inventory.P(predicateKeyLibraryID, libraryID),
			inventory.P(predicateKeyStatus, string(core.BookStatusBorrowed)),
		).
		Finalize()
}

// FilterActiveLoanForBook matches the active loan record of the given book,
// if any. Used as the mutual-exclusion guard for lending.
func FilterActiveLoanForBook(bookID core.BookIDString) inventory.Filter {
	return inventory.BuildRecordFilter().
		Matching().
		AnyKindOf(RecordKindLoan).
		AndAllPredicatesOf(
			inventory.P(predicateKeyBookID, bookID),
			inventory.P(predicateKeyStatus, string(core.LoanStatusActive)),
		).
		Finalize()
}

// FilterActiveLoansForUser matches all active loan records of the given user.
// Used for the borrow ceiling.
func FilterActiveLoansForUser(userID core.UserIDString) inventory.Filter {
	return inventory.BuildRecordFilter().
		Matching().
		AnyKindOf(RecordKindLoan).
		AndAllPredicatesOf(
			inventory.P(predicateKeyUserID, userID),
			inventory.P(predicateKeyStatus, string(core.LoanStatusActive)),
		).
		Finalize()
}

// FilterActiveLoanByID matches the loan record with the given id while it is
// still active. Used as the guard for returns.
func FilterActiveLoanByID(loanID core.LoanIDString) inventory.Filter {
	return inventory.BuildRecordFilter().
		Matching().
		AnyKindOf(RecordKindLoan).
		AndAllPredicatesOf(
			inventory.P(predicateKeyID, loanID),
			inventory.P(predicateKeyStatus, string(core.LoanStatusActive)),
		).
		Finalize()
}

// FilterActiveLoans matches every active loan record. Used for overdue
// reporting.
func FilterActiveLoans() inventory.Filter {
	return inventory.BuildRecordFilter().
		Matching().
		AnyKindOf(RecordKindLoan).
		AndAnyPredicateOf(inventory.P(predicateKeyStatus, string(core.LoanStatusActive))).
		Finalize()
}

// FilterLoansForBook matches every loan record, active or returned, of the
// given book.
func FilterLoansForBook(bookID core.BookIDString) inventory.Filter {
	return inventory.BuildRecordFilter().
		Matching().
		AnyKindOf(RecordKindLoan).
		AndAnyPredicateOf(inventory.P(predicateKeyBookID, bookID)).
		Finalize()
}
