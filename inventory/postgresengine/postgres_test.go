package postgresengine_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/circulation-go/inventory"
	"github.com/openshelf/circulation-go/inventory/postgresengine"
)

const testTableName = "inventory_records_test"

const createTestTableDDL = `
CREATE TABLE IF NOT EXISTS %s (
	kind       TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	payload    JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (kind, id)
)`

func setupStore(t *testing.T, options ...postgresengine.Option) *postgresengine.InventoryStore {
	t.Helper()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set, skipping postgres engine tests")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, fmt.Sprintf(createTestTableDDL, testTableName))
	require.NoError(t, err)

	_, err = pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", testTableName))
	require.NoError(t, err)

	options = append([]postgresengine.Option{postgresengine.WithTableName(testTableName)}, options...)

	store, err := postgresengine.NewInventoryStoreFromPGXPool(pool, options...)
	require.NoError(t, err)

	return store
}

func givenRecord(t *testing.T, kind string, payload string) inventory.StorableRecord {
	t.Helper()

	now := time.Now().UTC()
	record, err := inventory.BuildStorableRecord(kind, uuid.NewString(), []byte(payload), now, now)
	require.NoError(t, err)

	return record
}

func Test_PutAndGet_RoundTrip(t *testing.T) {
	// arrange
	store := setupStore(t)
	ctx := context.Background()
	record := givenRecord(t, "book", `{"title": "Walden", "status": "AVAILABLE"}`)

	// act
	putErr := store.Put(ctx, record)
	loaded, getErr := store.Get(ctx, record.Kind, record.ID)

	// assert
	require.NoError(t, putErr)
	require.NoError(t, getErr)
	assert.Equal(t, record.Kind, loaded.Kind)
	assert.Equal(t, record.ID, loaded.ID)
	assert.JSONEq(t, string(record.PayloadJSON), string(loaded.PayloadJSON))
}

func Test_Put_OverwritesPayloadAndKeepsCreatedAt(t *testing.T) {
	// arrange
	store := setupStore(t)
	ctx := context.Background()
	record := givenRecord(t, "book", `{"status": "AVAILABLE"}`)
	require.NoError(t, store.Put(ctx, record))

	// act
	record.PayloadJSON = []byte(`{"status": "BORROWED"}`)
	record.UpdatedAt = record.UpdatedAt.Add(time.Second)
	require.NoError(t, store.Put(ctx, record))

	// assert
	loaded, err := store.Get(ctx, record.Kind, record.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "BORROWED"}`, string(loaded.PayloadJSON))
	assert.True(t, loaded.CreatedAt.Equal(record.CreatedAt))
	assert.True(t, loaded.UpdatedAt.After(loaded.CreatedAt))
}

func Test_Get_UnknownRecord_ReturnsNotFound(t *testing.T) {
	// arrange
	store := setupStore(t)
	ctx := context.Background()

	// act
	_, err := store.Get(ctx, "book", uuid.NewString())

	// assert
	assert.ErrorIs(t, err, inventory.ErrRecordNotFound)
}

func Test_Scan_FiltersByKindAndPredicate(t *testing.T) {
	// arrange
	store := setupStore(t)
	ctx := context.Background()
	available := givenRecord(t, "book", `{"status": "AVAILABLE"}`)
	borrowed := givenRecord(t, "book", `{"status": "BORROWED"}`)
	library := givenRecord(t, "library", `{"name": "Central"}`)
	require.NoError(t, store.Put(ctx, available))
	require.NoError(t, store.Put(ctx, borrowed))
	require.NoError(t, store.Put(ctx, library))

	filter := inventory.BuildRecordFilter().
		Matching().
		AnyKindOf("book").
		AndAnyPredicateOf(inventory.P("status", "BORROWED")).
		Finalize()

	// act
	records, err := store.Scan(ctx, filter)

	// assert
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, borrowed.ID, records[0].ID)
}

func Test_Commit_GuardAbsent_BlocksSecondWriter(t *testing.T) {
	// arrange
	store := setupStore(t)
	ctx := context.Background()
	bookID := uuid.NewString()

	activeLoanFilter := inventory.BuildRecordFilter().
		Matching().
		AnyKindOf("loan").
		AndAllPredicatesOf(inventory.P("bookId", bookID), inventory.P("status", "ACTIVE")).
		Finalize()

	firstLoan := givenRecord(t, "loan", fmt.Sprintf(`{"bookId": %q, "status": "ACTIVE"}`, bookID))
	secondLoan := givenRecord(t, "loan", fmt.Sprintf(`{"bookId": %q, "status": "ACTIVE"}`, bookID))

	// act
	firstErr := store.Commit(ctx, inventory.StorableRecords{firstLoan}, inventory.GuardAbsent(activeLoanFilter))
	secondErr := store.Commit(ctx, inventory.StorableRecords{secondLoan}, inventory.GuardAbsent(activeLoanFilter))

	// assert
	require.NoError(t, firstErr)
	assert.ErrorIs(t, secondErr, inventory.ErrGuardViolated)
}

func Test_Commit_GuardPresent_RequiresExistingRecord(t *testing.T) {
	// arrange
	store := setupStore(t)
	ctx := context.Background()
	libraryID := uuid.NewString()

	libraryExists := inventory.BuildRecordFilter().
		Matching().
		AnyKindOf("library").
		AndAnyPredicateOf(inventory.P("id", libraryID)).
		Finalize()

	book := givenRecord(t, "book", fmt.Sprintf(`{"libraryId": %q}`, libraryID))

	// act
	blockedErr := store.Commit(ctx, inventory.StorableRecords{book}, inventory.GuardPresent(libraryExists))

	library := givenRecord(t, "library", fmt.Sprintf(`{"id": %q, "name": "Central"}`, libraryID))
	library.ID = libraryID
	require.NoError(t, store.Put(ctx, library))

	allowedErr := store.Commit(ctx, inventory.StorableRecords{book}, inventory.GuardPresent(libraryExists))

	// assert
	assert.ErrorIs(t, blockedErr, inventory.ErrGuardViolated)
	require.NoError(t, allowedErr)
}

func Test_Commit_MultipleRecords_AllOrNothing(t *testing.T) {
	// arrange
	store := setupStore(t)
	ctx := context.Background()

	blocker := givenRecord(t, "loan", `{"status": "ACTIVE", "marker": "blocker"}`)
	require.NoError(t, store.Put(ctx, blocker))

	markerTaken := inventory.BuildRecordFilter().
		Matching().
		AnyKindOf("loan").
		AndAnyPredicateOf(inventory.P("marker", "blocker")).
		Finalize()

	first := givenRecord(t, "loan", `{"status": "ACTIVE", "marker": "batch"}`)
	second := givenRecord(t, "loan", `{"status": "ACTIVE", "marker": "batch"}`)

	// act
	err := store.Commit(ctx, inventory.StorableRecords{first, second}, inventory.GuardAbsent(markerTaken))

	// assert
	assert.ErrorIs(t, err, inventory.ErrGuardViolated)

	_, firstGetErr := store.Get(ctx, first.Kind, first.ID)
	_, secondGetErr := store.Get(ctx, second.Kind, second.ID)
	assert.ErrorIs(t, firstGetErr, inventory.ErrRecordNotFound)
	assert.ErrorIs(t, secondGetErr, inventory.ErrRecordNotFound)
}

func Test_Delete_RemovesRecord(t *testing.T) {
	// arrange
	store := setupStore(t)
	ctx := context.Background()
	record := givenRecord(t, "book", `{"status": "AVAILABLE"}`)
	require.NoError(t, store.Put(ctx, record))

	// act
	deleteErr := store.Delete(ctx, record.Kind, record.ID)
	_, getErr := store.Get(ctx, record.Kind, record.ID)

	// assert
	require.NoError(t, deleteErr)
	assert.ErrorIs(t, getErr, inventory.ErrRecordNotFound)
}

func Test_Delete_UnknownRecord_ReturnsNotFound(t *testing.T) {
	// arrange
	store := setupStore(t)
	ctx := context.Background()

	// act
	err := store.Delete(ctx, "book", uuid.NewString())

	// assert
	assert.ErrorIs(t, err, inventory.ErrRecordNotFound)
}

func Test_DeleteGuarded_BlockedWhileDependentRecordExists(t *testing.T) {
	// arrange
	store := setupStore(t)
	ctx := context.Background()
	libraryID := uuid.NewString()

	library := givenRecord(t, "library", `{"name": "Central"}`)
	library.ID = libraryID
	require.NoError(t, store.Put(ctx, library))

	borrowedBook := givenRecord(t, "book", fmt.Sprintf(`{"libraryId": %q, "status": "BORROWED"}`, libraryID))
	require.NoError(t, store.Put(ctx, borrowedBook))

	borrowedInLibrary := inventory.BuildRecordFilter().
		Matching().
		AnyKindOf("book").
		AndAllPredicatesOf(inventory.P("libraryId", libraryID), inventory.P("status", "BORROWED")).
		Finalize()

	// act
	blockedErr := store.DeleteGuarded(ctx, library.Kind, library.ID, inventory.GuardAbsent(borrowedInLibrary))

	borrowedBook.PayloadJSON = []byte(fmt.Sprintf(`{"libraryId": %q, "status": "AVAILABLE"}`, libraryID))
	require.NoError(t, store.Put(ctx, borrowedBook))

	allowedErr := store.DeleteGuarded(ctx, library.Kind, library.ID, inventory.GuardAbsent(borrowedInLibrary))

	// assert
	assert.ErrorIs(t, blockedErr, inventory.ErrGuardViolated)
	require.NoError(t, allowedErr)
}

func Test_NewInventoryStore_NilConnection_ReturnsError(t *testing.T) {
	// act
	_, err := postgresengine.NewInventoryStoreFromPGXPool(nil)

	// assert
	assert.ErrorIs(t, err, inventory.ErrNilDatabaseConnection)
}

func Test_NewInventoryStore_EmptyTableName_ReturnsError(t *testing.T) {
	// arrange
	store := setupStore(t)
	_ = store // ensure DSN is configured before exercising option validation

	dsn := os.Getenv("POSTGRES_DSN")
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	defer pool.Close()

	// act
	_, err = postgresengine.NewInventoryStoreFromPGXPool(pool, postgresengine.WithTableName(""))

	// assert
	assert.ErrorIs(t, err, inventory.ErrEmptyTableName)
}
