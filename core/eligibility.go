package core

// Ineligibility reasons, suitable for direct display. The check evaluates
// its rules in a fixed order so the first failing rule determines the reason.
const (
	ReasonBorrowLimitReached = "borrow limit reached"
	ReasonAlreadyBorrowed    = "already borrowed"
	ReasonNotFound           = "not found"
	ReasonNotAvailable       = "not available"
)

// EligibilityState is the snapshot of current inventory state the loan
// eligibility decision is made against. The circulation manager assembles it
// inside the critical section so the decision cannot act on stale reads.
type EligibilityState struct {
	UserActiveLoanCount int
	BorrowLimit         int
	BookFound           bool
	BookStatus          BookStatus
	BookHasActiveLoan   bool
}

// EligibilityDecision is the outcome of the loan eligibility check.
// The reason is empty iff the user is eligible.
type EligibilityDecision struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// EligibleDecision creates a positive eligibility decision.
func EligibleDecision() EligibilityDecision {
	return EligibilityDecision{Eligible: true}
}

// IneligibleDecision creates a negative eligibility decision with a reason.
func IneligibleDecision(reason string) EligibilityDecision {
	return EligibilityDecision{Eligible: false, Reason: reason}
}

// DecideLoanEligibility is the pure eligibility check for lending a book to
// a user. Rules are evaluated in a fixed order, first failing rule wins:
//
//  1. the user already holds the maximum number of active loans
//  2. an active loan already exists for the book
//  3. the book does not exist
//  4. the book is not available (administratively withdrawn)
//
// Note the order: a user over the limit gets the limit reason even for an
// unknown book.
func DecideLoanEligibility(state EligibilityState) EligibilityDecision {
	if state.UserActiveLoanCount >= state.BorrowLimit {
		return IneligibleDecision(ReasonBorrowLimitReached)
	}

	if state.BookHasActiveLoan {
		return IneligibleDecision(ReasonAlreadyBorrowed)
	}

	if !state.BookFound {
		return IneligibleDecision(ReasonNotFound)
	}

	if state.BookStatus != BookStatusAvailable {
		return IneligibleDecision(ReasonNotAvailable)
	}

	return EligibleDecision()
}

// AsError converts a negative decision into the matching typed error:
// an unknown book is a NotFoundError, every other reason is a ConflictError.
// Returns nil for a positive decision.
func (d EligibilityDecision) AsError(bookID BookIDString) error {
	if d.Eligible {
		return nil
	}

	if d.Reason == ReasonNotFound {
		return BuildNotFoundError("book", bookID)
	}

	return BuildConflictError(d.Reason)
}
