package core

import (
	"time"
)

// Instead of implementing full value objects, alias types and helper methods are used here ...

// LibraryIDString represents a library identifier.
type LibraryIDString = string

// BookIDString represents a book identifier.
type BookIDString = string

// UserIDString represents a user identifier.
type UserIDString = string

// LoanIDString represents a loan identifier.
type LoanIDString = string

// ToUTCTime normalizes a time to UTC with microsecond precision,
// matching what a JSONB/timestamptz round trip preserves.
func ToUTCTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
