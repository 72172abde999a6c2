package shell_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/circulation-go/core"
	"github.com/openshelf/circulation-go/shell"
)

func Test_LoanCodec_PayloadCarriesGuardPredicateFields(t *testing.T) {
	// arrange
	loan := core.BuildLoanRecord("loan-1", "book-1", "user-1", "lib-1", time.Now(), core.DefaultLoanPeriod)

	// act
	record, err := shell.StorableRecordFromLoan(loan)

	// assert: the guard filters match on these top-level payload fields
	require.NoError(t, err)
	assert.Equal(t, shell.RecordKindLoan, record.Kind)
	assert.Contains(t, string(record.PayloadJSON), `"bookId":"book-1"`)
	assert.Contains(t, string(record.PayloadJSON), `"userId":"user-1"`)
	assert.Contains(t, string(record.PayloadJSON), `"status":"ACTIVE"`)

	decoded, err := shell.LoanFromStorableRecord(record)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, decoded.ID)
	assert.True(t, decoded.DueDate.Equal(loan.DueDate))
}

func Test_BookCodec_PayloadCarriesGuardPredicateFields(t *testing.T) {
	// arrange
	book, err := core.BuildBook("book-1", "lib-1", core.BookFields{Title: "Walden", Author: "Thoreau"}, "user-1", time.Now())
	require.NoError(t, err)

	// act
	record, err := shell.StorableRecordFromBook(book)

	// assert
	require.NoError(t, err)
	assert.Equal(t, shell.RecordKindBook, record.Kind)
	assert.Contains(t, string(record.PayloadJSON), `"libraryId":"lib-1"`)
	assert.Contains(t, string(record.PayloadJSON), `"status":"AVAILABLE"`)
}

func Test_FromStorableRecord_InvalidPayload_ReturnsMappingError(t *testing.T) {
	// arrange
	library, err := core.BuildLibrary("lib-1", core.LibraryFields{Name: "Main"}, "user-1", time.Now())
	require.NoError(t, err)

	record, err := shell.StorableRecordFromLibrary(library)
	require.NoError(t, err)
	record.PayloadJSON = []byte(`[1, 2, 3]`) // valid JSON, wrong shape

	// act
	_, err = shell.LibraryFromStorableRecord(record)

	// assert
	assert.ErrorIs(t, err, shell.ErrMappingFromStorableRecordFailed)
}
