package core

import (
	"strings"
	"time"
)

const (
	maxBookTitleLength  = 500
	maxBookAuthorLength = 200
)

// BookStatus is the circulation status of a single physical copy.
type BookStatus string

const (
	// BookStatusAvailable means the copy can be lent out.
	BookStatusAvailable BookStatus = "AVAILABLE"
	// BookStatusBorrowed means exactly one active loan exists for the copy.
	BookStatusBorrowed BookStatus = "BORROWED"
	// BookStatusUnavailable means the copy is administratively withdrawn from circulation.
	BookStatusUnavailable BookStatus = "UNAVAILABLE"
)

// IsValid reports whether the status is one of the known values.
func (s BookStatus) IsValid() bool {
	switch s {
	case BookStatusAvailable, BookStatusBorrowed, BookStatusUnavailable:
		return true
	default:
		return false
	}
}

// Book represents one physical copy owned by a library. Duplicates with the
// same title and author are distinct copies; identity is by ID, not content.
type Book struct {
	ID              BookIDString    `json:"id"`
	LibraryID       LibraryIDString `json:"libraryId"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	Edition         string          `json:"edition,omitempty"`
	PublicationDate string          `json:"publicationDate,omitempty"`
	ISBN            string          `json:"isbn,omitempty"`
	CoverImage      string          `json:"coverImage,omitempty"`
	Status          BookStatus      `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	AddedBy         UserIDString    `json:"addedBy"`
}

// BookFields carries the caller-supplied fields for creating or updating a
// book. Zero-valued optional fields are left unchanged on update.
type BookFields struct {
	Title           string
	Author          string
	Edition         string
	PublicationDate string
	ISBN            string
	CoverImage      string
}

// BookCandidate is the partial shape an external catalog can supply for
// manual book creation. It is distinct from the validated Book entity and
// carries no status or ownership.
type BookCandidate struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	Edition         string `json:"edition,omitempty"`
	PublicationDate string `json:"publicationDate,omitempty"`
	ISBN            string `json:"isbn,omitempty"`
	CoverImage      string `json:"coverImage,omitempty"`
}

// Fields converts a candidate into book fields for validation by BuildBook.
func (c BookCandidate) Fields() BookFields {
	return BookFields{
		Title:           c.Title,
		Author:          c.Author,
		Edition:         c.Edition,
		PublicationDate: c.PublicationDate,
		ISBN:            c.ISBN,
		CoverImage:      c.CoverImage,
	}
}

// BuildBook creates a validated Book with initial status AVAILABLE.
// All string inputs are trimmed; title and author are required.
func BuildBook(
	id BookIDString,
	libraryID LibraryIDString,
	fields BookFields,
	addedBy UserIDString,
	now time.Time,
) (Book, error) {

	title := strings.TrimSpace(fields.Title)
	author := strings.TrimSpace(fields.Author)

	if title == "" {
		return Book{}, BuildValidationError("title required")
	}

	if len(title) > maxBookTitleLength {
		return Book{}, BuildValidationError("title too long")
	}

	if author == "" {
		return Book{}, BuildValidationError("author required")
	}

	if len(author) > maxBookAuthorLength {
		return Book{}, BuildValidationError("author too long")
	}

	ts := ToUTCTime(now)

	book := Book{
		ID:              id,
		LibraryID:       libraryID,
		Title:           title,
		Author:          author,
		Edition:         strings.TrimSpace(fields.Edition),
		PublicationDate: strings.TrimSpace(fields.PublicationDate),
		ISBN:            strings.TrimSpace(fields.ISBN),
		CoverImage:      strings.TrimSpace(fields.CoverImage),
		Status:          BookStatusAvailable,
		CreatedAt:       ts,
		UpdatedAt:       ts,
		AddedBy:         addedBy,
	}

	return book, nil
}

// ApplyUpdate applies a partial update: empty fields keep their current
// value, whitespace-only required fields are rejected.
func (b Book) ApplyUpdate(fields BookFields, now time.Time) (Book, error) {
	if fields.Title != "" {
		title := strings.TrimSpace(fields.Title)

		if title == "" {
			return Book{}, BuildValidationError("title required")
		}

		if len(title) > maxBookTitleLength {
			return Book{}, BuildValidationError("title too long")
		}

		b.Title = title
	}

	if fields.Author != "" {
		author := strings.TrimSpace(fields.Author)

		if author == "" {
			return Book{}, BuildValidationError("author required")
		}

		if len(author) > maxBookAuthorLength {
			return Book{}, BuildValidationError("author too long")
		}

		b.Author = author
	}

	if fields.Edition != "" {
		b.Edition = strings.TrimSpace(fields.Edition)
	}

	if fields.PublicationDate != "" {
		b.PublicationDate = strings.TrimSpace(fields.PublicationDate)
	}

	if fields.ISBN != "" {
		b.ISBN = strings.TrimSpace(fields.ISBN)
	}

	if fields.CoverImage != "" {
		b.CoverImage = strings.TrimSpace(fields.CoverImage)
	}

	b.UpdatedAt = ToUTCTime(now)

	return b, nil
}

// WithStatus returns a copy of the book with the given status and a
// refreshed update timestamp. Status transition rules live in the managers.
func (b Book) WithStatus(status BookStatus, now time.Time) Book {
	b.Status = status
	b.UpdatedAt = ToUTCTime(now)

	return b
}
