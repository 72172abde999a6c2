package core

import (
	"time"
)

// Event type identifiers for loan lifecycle events.
const (
	LoanCreatedEventType  = "LoanCreated"
	LoanReturnedEventType = "LoanReturned"
)

// LoanCreated represents when a book was lent to a user.
type LoanCreated struct {
	EventType  string
	Loan       LoanRecord
	OccurredAt time.Time
}

// BuildLoanCreated creates a new LoanCreated event.
func BuildLoanCreated(loan LoanRecord, occurredAt time.Time) LoanCreated {
	return LoanCreated{
		EventType:  LoanCreatedEventType,
		Loan:       loan,
		OccurredAt: ToUTCTime(occurredAt),
	}
}

// IsEventType returns the event type identifier.
func (e LoanCreated) IsEventType() string {
	return LoanCreatedEventType
}

// HasOccurredAt returns when this event occurred.
func (e LoanCreated) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// LoanReturned represents when a borrowed book was returned.
type LoanReturned struct {
	EventType  string
	Loan       LoanRecord
	OccurredAt time.Time
}

// BuildLoanReturned creates a new LoanReturned event.
func BuildLoanReturned(loan LoanRecord, occurredAt time.Time) LoanReturned {
	return LoanReturned{
		EventType:  LoanReturnedEventType,
		Loan:       loan,
		OccurredAt: ToUTCTime(occurredAt),
	}
}

// IsEventType returns the event type identifier.
func (e LoanReturned) IsEventType() string {
	return LoanReturnedEventType
}

// HasOccurredAt returns when this event occurred.
func (e LoanReturned) HasOccurredAt() time.Time {
	return e.OccurredAt
}
