package shell

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/openshelf/circulation-go/core"
	"github.com/openshelf/circulation-go/inventory"
)

// Record kinds for the three keyspaces of the inventory store.
const (
	RecordKindLibrary = "library"
	RecordKindBook    = "book"
	RecordKindLoan    = "loan"
)

var json = jsoniter.ConfigFastest

// ErrMappingToStorableRecordFailed is returned when entity serialization fails.
var ErrMappingToStorableRecordFailed = errors.New("mapping to storable record failed")

// ErrMappingFromStorableRecordFailed is returned when payload deserialization fails.
var ErrMappingFromStorableRecordFailed = errors.New("mapping from storable record failed")

// StorableRecordFromLibrary converts a Library entity to a storable record.
func StorableRecordFromLibrary(library core.Library) (inventory.StorableRecord, error) {
	payloadJSON, err := json.Marshal(library)
	if err != nil {
		return inventory.StorableRecord{}, errors.Join(ErrMappingToStorableRecordFailed, err)
	}

	record, err := inventory.BuildStorableRecord(RecordKindLibrary, library.ID, payloadJSON, library.CreatedAt, library.UpdatedAt)
	if err != nil {
		return inventory.StorableRecord{}, errors.Join(ErrMappingToStorableRecordFailed, err)
	}

	return record, nil
}

// LibraryFromStorableRecord converts a storable record back to a Library entity.
func LibraryFromStorableRecord(record inventory.StorableRecord) (core.Library, error) {
	var library core.Library

	if err := json.Unmarshal(record.PayloadJSON, &library); err != nil {
		return core.Library{}, errors.Join(ErrMappingFromStorableRecordFailed, err)
	}

	return library, nil
}

// StorableRecordFromBook converts a Book entity to a storable record.
func StorableRecordFromBook(book core.Book) (inventory.StorableRecord, error) {
	payloadJSON, err := json.Marshal(book)
	if err != nil {
		return inventory.StorableRecord{}, errors.Join(ErrMappingToStorableRecordFailed, err)
	}

	record, err := inventory.BuildStorableRecord(RecordKindBook, book.ID, payloadJSON, book.CreatedAt, book.UpdatedAt)
	if err != nil {
		return inventory.StorableRecord{}, errors.Join(ErrMappingToStorableRecordFailed, err)
	}

	return record, nil
}

// BookFromStorableRecord converts a storable record back to a Book entity.
func BookFromStorableRecord(record inventory.StorableRecord) (core.Book, error) {
	var book core.Book

	if err := json.Unmarshal(record.PayloadJSON, &book); err != nil {
		return core.Book{}, errors.Join(ErrMappingFromStorableRecordFailed, err)
	}

	return book, nil
}

// StorableRecordFromLoan converts a LoanRecord entity to a storable record.
func StorableRecordFromLoan(loan core.LoanRecord) (inventory.StorableRecord, error) {
	payloadJSON, err := json.Marshal(loan)
	if err != nil {
		return inventory.StorableRecord{}, errors.Join(ErrMappingToStorableRecordFailed, err)
	}

	record, err := inventory.BuildStorableRecord(RecordKindLoan, loan.ID, payloadJSON, loan.CreatedAt, loan.UpdatedAt)
	if err != nil {
		return inventory.StorableRecord{}, errors.Join(ErrMappingToStorableRecordFailed, err)
	}

	return record, nil
}

// LoanFromStorableRecord converts a storable record back to a LoanRecord entity.
func LoanFromStorableRecord(record inventory.StorableRecord) (core.LoanRecord, error) {
	var loan core.LoanRecord

	if err := json.Unmarshal(record.PayloadJSON, &loan); err != nil {
		return core.LoanRecord{}, errors.Join(ErrMappingFromStorableRecordFailed, err)
	}

	return loan, nil
}

// LoansFromStorableRecords converts a scan result into LoanRecord entities.
func LoansFromStorableRecords(records inventory.StorableRecords) ([]core.LoanRecord, error) {
	loans := make([]core.LoanRecord, 0, len(records))

	for _, record := range records {
		loan, err := LoanFromStorableRecord(record)
		if err != nil {
			return nil, err
		}

		loans = append(loans, loan)
	}

	return loans, nil
}

// BooksFromStorableRecords converts a scan result into Book entities.
func BooksFromStorableRecords(records inventory.StorableRecords) ([]core.Book, error) {
	books := make([]core.Book, 0, len(records))

	for _, record := range records {
		book, err := BookFromStorableRecord(record)
		if err != nil {
			return nil, err
		}

		books = append(books, book)
	}

	return books, nil
}

// LibrariesFromStorableRecords converts a scan result into Library entities.
func LibrariesFromStorableRecords(records inventory.StorableRecords) ([]core.Library, error) {
	libraries := make([]core.Library, 0, len(records))

	for _, record := range records {
		library, err := LibraryFromStorableRecord(record)
		if err != nil {
			return nil, err
		}

		libraries = append(libraries, library)
	}

	return libraries, nil
}
