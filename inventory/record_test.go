package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

//nolint:funlen
func Test_BuildStorableRecord_ErrorCases(t *testing.T) {
	validTime := time.Now()
	validPayloadJSON := []byte(`{"id": "abc", "title": "Clean Code"}`)

	tests := []struct {
		name        string
		kind        string
		id          string
		payloadJSON []byte
		expectedErr error
	}{
		{
			name:        "empty kind",
			kind:        "",
			id:          "abc",
			payloadJSON: validPayloadJSON,
			expectedErr: ErrEmptyRecordKind,
		},
		{
			name:        "empty id",
			kind:        "book",
			id:          "",
			payloadJSON: validPayloadJSON,
			expectedErr: ErrEmptyRecordID,
		},
		{
			name:        "invalid payload JSON",
			kind:        "book",
			id:          "abc",
			payloadJSON: []byte(`{"invalid": json}`),
			expectedErr: ErrInvalidPayloadJSON,
		},
		{
			name:        "empty payload JSON",
			kind:        "book",
			id:          "abc",
			payloadJSON: []byte(``),
			expectedErr: ErrInvalidPayloadJSON,
		},
		{
			name:        "nil payload JSON",
			kind:        "book",
			id:          "abc",
			payloadJSON: nil,
			expectedErr: ErrInvalidPayloadJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildStorableRecord(tt.kind, tt.id, tt.payloadJSON, validTime, validTime)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func Test_BuildStorableRecord_Success(t *testing.T) {
	// arrange
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	updatedAt := createdAt.Add(time.Hour)
	payloadJSON := []byte(`{"id": "abc", "title": "Clean Code"}`)

	// act
	record, err := BuildStorableRecord("book", "abc", payloadJSON, createdAt, updatedAt)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "book", record.Kind)
	assert.Equal(t, "abc", record.ID)
	assert.Equal(t, payloadJSON, record.PayloadJSON)
	assert.Equal(t, createdAt, record.CreatedAt)
	assert.Equal(t, updatedAt, record.UpdatedAt)
}
