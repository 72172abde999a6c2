package core_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/circulation-go/core"
)

func Test_BuildLibrary_Validation(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		fields      core.LibraryFields
		expectedErr string
	}{
		{name: "empty name", fields: core.LibraryFields{Name: ""}, expectedErr: "name required"},
		{name: "whitespace name", fields: core.LibraryFields{Name: "   "}, expectedErr: "name required"},
		{name: "name too long", fields: core.LibraryFields{Name: strings.Repeat("x", 201)}, expectedErr: "name too long"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := core.BuildLibrary("lib-1", tc.fields, "user-1", now)

			// assert
			assert.ErrorIs(t, err, core.ErrValidation)
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}

func Test_BuildLibrary_TrimsInputs(t *testing.T) {
	// act
	library, err := core.BuildLibrary(
		"lib-1",
		core.LibraryFields{Name: "  Main  ", Description: " downtown branch ", Location: " 1st Ave "},
		"user-1",
		time.Now(),
	)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "Main", library.Name)
	assert.Equal(t, "downtown branch", library.Description)
	assert.Equal(t, "1st Ave", library.Location)
}

func Test_Library_ApplyUpdate_PartialSemantics(t *testing.T) {
	// arrange
	library, err := core.BuildLibrary("lib-1", core.LibraryFields{Name: "Main"}, "user-1", time.Now())
	require.NoError(t, err)

	// act
	updated, err := library.ApplyUpdate(core.LibraryFields{Location: "2nd Ave"}, time.Now())

	// assert
	require.NoError(t, err)
	assert.Equal(t, "Main", updated.Name)
	assert.Equal(t, "2nd Ave", updated.Location)

	// a whitespace-only name is a rejected update, not "no change"
	_, err = library.ApplyUpdate(core.LibraryFields{Name: "   "}, time.Now())
	assert.ErrorIs(t, err, core.ErrValidation)
}

func Test_BuildBook_Validation(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		fields      core.BookFields
		expectedErr string
	}{
		{name: "empty title", fields: core.BookFields{Title: "", Author: "Thoreau"}, expectedErr: "title required"},
		{name: "whitespace title", fields: core.BookFields{Title: "  ", Author: "Thoreau"}, expectedErr: "title required"},
		{name: "title too long", fields: core.BookFields{Title: strings.Repeat("x", 501), Author: "Thoreau"}, expectedErr: "title too long"},
		{name: "empty author", fields: core.BookFields{Title: "Walden", Author: ""}, expectedErr: "author required"},
		{name: "author too long", fields: core.BookFields{Title: "Walden", Author: strings.Repeat("x", 201)}, expectedErr: "author too long"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := core.BuildBook("book-1", "lib-1", tc.fields, "user-1", now)

			// assert
			assert.ErrorIs(t, err, core.ErrValidation)
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}

func Test_BuildBook_TrimsAndStartsAvailable(t *testing.T) {
	// act
	book, err := core.BuildBook(
		"book-1",
		"lib-1",
		core.BookFields{Title: "  Trimmed  ", Author: " Thoreau "},
		"user-1",
		time.Now(),
	)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "Trimmed", book.Title)
	assert.Equal(t, "Thoreau", book.Author)
	assert.Equal(t, core.BookStatusAvailable, book.Status)
}

func Test_BookCandidate_Fields_CarriesCatalogMetadata(t *testing.T) {
	// arrange
	candidate := core.BookCandidate{
		Title:  "Walden",
		Author: "Henry David Thoreau",
		ISBN:   "978-1505297720",
	}

	// act
	book, err := core.BuildBook("book-1", "lib-1", candidate.Fields(), "user-1", time.Now())

	// assert
	require.NoError(t, err)
	assert.Equal(t, "Walden", book.Title)
	assert.Equal(t, "978-1505297720", book.ISBN)
}

func Test_BookStatus_IsValid(t *testing.T) {
	assert.True(t, core.BookStatusAvailable.IsValid())
	assert.True(t, core.BookStatusBorrowed.IsValid())
	assert.True(t, core.BookStatusUnavailable.IsValid())
	assert.False(t, core.BookStatus("LOST").IsValid())
}
