package core

import (
	"strings"
	"time"
)

const maxLibraryNameLength = 200

// Library represents a physical library owning zero or more books.
// A library cannot be destroyed while any of its books is borrowed.
type Library struct {
	ID          LibraryIDString `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	CreatedBy   UserIDString    `json:"createdBy"`
}

// LibraryFields carries the caller-supplied fields for creating or updating
// a library. Zero-valued optional fields are left unchanged on update.
type LibraryFields struct {
	Name        string
	Description string
	Location    string
}

// BuildLibrary creates a validated Library. All string inputs are trimmed;
// the name is required and limited to 200 characters.
func BuildLibrary(id LibraryIDString, fields LibraryFields, createdBy UserIDString, now time.Time) (Library, error) {
	name := strings.TrimSpace(fields.Name)

	if name == "" {
		return Library{}, BuildValidationError("name required")
	}

	if len(name) > maxLibraryNameLength {
		return Library{}, BuildValidationError("name too long")
	}

	ts := ToUTCTime(now)

	library := Library{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(fields.Description),
		Location:    strings.TrimSpace(fields.Location),
		CreatedAt:   ts,
		UpdatedAt:   ts,
		CreatedBy:   createdBy,
	}

	return library, nil
}

// ApplyUpdate applies a partial update: empty fields keep their current
// value, a whitespace-only name is rejected because the name is required.
func (l Library) ApplyUpdate(fields LibraryFields, now time.Time) (Library, error) {
	if fields.Name != "" {
		name := strings.TrimSpace(fields.Name)

		if name == "" {
			return Library{}, BuildValidationError("name required")
		}

		if len(name) > maxLibraryNameLength {
			return Library{}, BuildValidationError("name too long")
		}

		l.Name = name
	}

	if fields.Description != "" {
		l.Description = strings.TrimSpace(fields.Description)
	}

	if fields.Location != "" {
		l.Location = strings.TrimSpace(fields.Location)
	}

	l.UpdatedAt = ToUTCTime(now)

	return l, nil
}
