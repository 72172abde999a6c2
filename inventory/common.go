package inventory

import (
	"errors"
)

var (
	// ErrRecordNotFound is returned by Get and Delete when no record exists for the given kind and id.
	ErrRecordNotFound = errors.New("inventory record not found")

	// ErrGuardViolated is returned by guarded commits when a guard condition
	// does not hold at commit time. Zero rows are written in that case.
	ErrGuardViolated = errors.New("commit guard violated, no rows were affected")

	// ErrNilDatabaseConnection is returned by engine constructors when the supplied connection is nil.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned when an empty table name is supplied to an engine option.
	ErrEmptyTableName = errors.New("empty table name supplied")

	// ErrStorageFailure is the category error joined onto any underlying
	// storage failure (I/O, driver, corruption) so callers can detect the
	// transient class with errors.Is without depending on driver errors.
	ErrStorageFailure = errors.New("inventory storage failure")

	// ErrBuildingQueryFailed is returned when an engine fails to build SQL from a filter or record set.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrScanningRowFailed is returned when an engine fails to scan a database row into a record.
	ErrScanningRowFailed = errors.New("scanning database row failed")
)

// RecordKindString is a type alias for the logical keyspace of a record (library, book, loan).
type RecordKindString = string

// RecordIDString is a type alias for the opaque record identifier within a kind.
type RecordIDString = string
