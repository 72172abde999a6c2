package inventory

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrEmptyRecordKind   = errors.New("record kind must not be empty")
	ErrEmptyRecordID     = errors.New("record id must not be empty")
	ErrInvalidPayloadJSON = errors.New("payload json is not valid")
)

// StorableRecords is an alias type for a slice of StorableRecord.
type StorableRecords = []StorableRecord

// StorableRecord is a DTO (data transfer object) used by the inventory store
// to upsert entities and read them back.
//
// It is built on scalars to be completely agnostic of the implementation of
// domain entities in the client code: managers serialize entities to JSON and
// the store never inspects the payload beyond predicate matching.
//
// While its properties are exported, it should only be constructed with the
// supplied factory method BuildStorableRecord.
type StorableRecord struct {
	Kind        RecordKindString
	ID          RecordIDString
	PayloadJSON []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BuildStorableRecord is a factory method for StorableRecord.
//
// It populates the StorableRecord with the given scalar input.
// Returns an error if kind or id are empty or payloadJSON is not valid JSON.
func BuildStorableRecord(
	kind RecordKindString,
	id RecordIDString,
	payloadJSON []byte,
	createdAt time.Time,
	updatedAt time.Time,
) (StorableRecord, error) {

	if kind == "" {
		return StorableRecord{}, ErrEmptyRecordKind
	}

	if id == "" {
		return StorableRecord{}, ErrEmptyRecordID
	}

	if !json.Valid(payloadJSON) {
		return StorableRecord{}, ErrInvalidPayloadJSON
	}

	return StorableRecord{
		Kind:        kind,
		ID:          id,
		PayloadJSON: payloadJSON,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
