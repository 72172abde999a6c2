package core

import (
	"time"
)

// DefaultLoanPeriod is how long a borrower may keep a book.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// DefaultBorrowLimit is how many books one user may have on active loan.
const DefaultBorrowLimit = 3

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	// LoanStatusActive means the book is out with the borrower.
	LoanStatusActive LoanStatus = "ACTIVE"
	// LoanStatusReturned means the loan is closed. Returned loans are
	// immutable and never deleted; they form the lending history.
	LoanStatusReturned LoanStatus = "RETURNED"
)

// LoanRecord represents a single borrowing episode of one book by one user.
// At most one ACTIVE loan exists per book at any time.
type LoanRecord struct {
	ID         LoanIDString    `json:"id"`
	BookID     BookIDString    `json:"bookId"`
	UserID     UserIDString    `json:"userId"`
	LibraryID  LibraryIDString `json:"libraryId"`
	Status     LoanStatus      `json:"status"`
	BorrowedAt time.Time       `json:"borrowedAt"`
	DueDate    time.Time       `json:"dueDate"`
	ReturnedAt *time.Time      `json:"returnedAt,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// BuildLoanRecord creates a new ACTIVE loan with the due date derived from
// the borrow time and the given loan period.
func BuildLoanRecord(
	id LoanIDString,
	bookID BookIDString,
	userID UserIDString,
	libraryID LibraryIDString,
	borrowedAt time.Time,
	loanPeriod time.Duration,
) LoanRecord {

	ts := ToUTCTime(borrowedAt)

	return LoanRecord{
		ID:         id,
		BookID:     bookID,
		UserID:     userID,
		LibraryID:  libraryID,
		Status:     LoanStatusActive,
		BorrowedAt: ts,
		DueDate:    ts.Add(loanPeriod),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

// MarkReturned closes the loan, leaving the due date unchanged.
// Returns a ConflictError when the loan is not ACTIVE; returning twice must
// fail the second time.
func (l LoanRecord) MarkReturned(now time.Time) (LoanRecord, error) {
	if l.Status != LoanStatusActive {
		return LoanRecord{}, BuildConflictError("already returned")
	}

	ts := ToUTCTime(now)

	l.Status = LoanStatusReturned
	l.ReturnedAt = &ts
	l.UpdatedAt = ts

	return l, nil
}

// IsOverdue reports whether an active loan is past its due date.
func (l LoanRecord) IsOverdue(now time.Time) bool {
	return l.Status == LoanStatusActive && l.DueDate.Before(now)
}

// DaysRemaining returns the whole days until the due date, rounded up, or
// nil when the loan has no due date. A negative value means the loan is
// overdue by that many days.
func (l LoanRecord) DaysRemaining(now time.Time) *int {
	if l.DueDate.IsZero() {
		return nil
	}

	remaining := l.DueDate.Sub(now)
	days := int(remaining / (24 * time.Hour))

	if remaining%(24*time.Hour) > 0 {
		days++
	}

	return &days
}
