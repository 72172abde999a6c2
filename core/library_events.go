package core

import (
	"time"
)

// Event type identifiers for library lifecycle events.
const (
	LibraryCreatedEventType = "LibraryCreated"
	LibraryUpdatedEventType = "LibraryUpdated"
	LibraryDeletedEventType = "LibraryDeleted"
)

// LibraryCreated represents when a library was created.
type LibraryCreated struct {
	EventType  string
	Library    Library
	OccurredAt time.Time
}

// BuildLibraryCreated creates a new LibraryCreated event.
func BuildLibraryCreated(library Library, occurredAt time.Time) LibraryCreated {
	return LibraryCreated{
		EventType:  LibraryCreatedEventType,
		Library:    library,
		OccurredAt: ToUTCTime(occurredAt),
	}
}

// IsEventType returns the event type identifier.
func (e LibraryCreated) IsEventType() string {
	return LibraryCreatedEventType
}

// HasOccurredAt returns when this event occurred.
func (e LibraryCreated) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// LibraryUpdated represents when library fields were changed.
type LibraryUpdated struct {
	EventType  string
	Library    Library
	OccurredAt time.Time
}

// BuildLibraryUpdated creates a new LibraryUpdated event.
func BuildLibraryUpdated(library Library, occurredAt time.Time) LibraryUpdated {
	return LibraryUpdated{
		EventType:  LibraryUpdatedEventType,
		Library:    library,
		OccurredAt: ToUTCTime(occurredAt),
	}
}

// IsEventType returns the event type identifier.
func (e LibraryUpdated) IsEventType() string {
	return LibraryUpdatedEventType
}

// HasOccurredAt returns when this event occurred.
func (e LibraryUpdated) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// LibraryDeleted represents when a library was deleted. Deletion is refused
// while any book of the library is borrowed, so subscribers never see this
// event for a library with in-flight loans.
type LibraryDeleted struct {
	EventType  string
	LibraryID  LibraryIDString
	OccurredAt time.Time
}

// BuildLibraryDeleted creates a new LibraryDeleted event.
func BuildLibraryDeleted(libraryID LibraryIDString, occurredAt time.Time) LibraryDeleted {
	return LibraryDeleted{
		EventType:  LibraryDeletedEventType,
		LibraryID:  libraryID,
		OccurredAt: ToUTCTime(occurredAt),
	}
}

// IsEventType returns the event type identifier.
func (e LibraryDeleted) IsEventType() string {
	return LibraryDeletedEventType
}

// HasOccurredAt returns when this event occurred.
func (e LibraryDeleted) HasOccurredAt() time.Time {
	return e.OccurredAt
}
