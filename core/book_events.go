package core

import (
	"time"
)

// Event type identifiers for book lifecycle events.
const (
	BookCreatedEventType = "BookCreated"
	BookUpdatedEventType = "BookUpdated"
	BookDeletedEventType = "BookDeleted"
)

// BookCreated represents when a book copy was added to a library.
type BookCreated struct {
	EventType  string
	Book       Book
	OccurredAt time.Time
}

// BuildBookCreated creates a new BookCreated event.
func BuildBookCreated(book Book, occurredAt time.Time) BookCreated {
	return BookCreated{
		EventType:  BookCreatedEventType,
		Book:       book,
		OccurredAt: ToUTCTime(occurredAt),
	}
}

// IsEventType returns the event type identifier.
func (e BookCreated) IsEventType() string {
	return BookCreatedEventType
}

// HasOccurredAt returns when this event occurred.
func (e BookCreated) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// BookUpdated represents when book fields or status were changed.
type BookUpdated struct {
	EventType  string
	Book       Book
	OccurredAt time.Time
}

// BuildBookUpdated creates a new BookUpdated event.
func BuildBookUpdated(book Book, occurredAt time.Time) BookUpdated {
	return BookUpdated{
		EventType:  BookUpdatedEventType,
		Book:       book,
		OccurredAt: ToUTCTime(occurredAt),
	}
}

// IsEventType returns the event type identifier.
func (e BookUpdated) IsEventType() string {
	return BookUpdatedEventType
}

// HasOccurredAt returns when this event occurred.
func (e BookUpdated) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// BookDeleted represents when a book copy was removed from a library.
type BookDeleted struct {
	EventType  string
	BookID     BookIDString
	LibraryID  LibraryIDString
	OccurredAt time.Time
}

// BuildBookDeleted creates a new BookDeleted event.
func BuildBookDeleted(bookID BookIDString, libraryID LibraryIDString, occurredAt time.Time) BookDeleted {
	return BookDeleted{
		EventType:  BookDeletedEventType,
		BookID:     bookID,
		LibraryID:  libraryID,
		OccurredAt: ToUTCTime(occurredAt),
	}
}

// IsEventType returns the event type identifier.
func (e BookDeleted) IsEventType() string {
	return BookDeletedEventType
}

// HasOccurredAt returns when this event occurred.
func (e BookDeleted) HasOccurredAt() time.Time {
	return e.OccurredAt
}
