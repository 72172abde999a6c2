package memoryengine_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/circulation-go/inventory"
	"github.com/openshelf/circulation-go/inventory/memoryengine"
)

func givenStore(t *testing.T, options ...memoryengine.Option) *memoryengine.InventoryStore {
	t.Helper()

	store, err := memoryengine.NewInventoryStore(options...)
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
	store := givenStore(t)
	ctx := context.Background()
	record := givenRecord(t, "book", `{"title": "Walden"}`)

	// act
	putErr := store.Put(ctx, record)
	loaded, getErr := store.Get(ctx, record.Kind, record.ID)

	// assert
	require.NoError(t, putErr)
	require.NoError(t, getErr)
	assert.Equal(t, record.ID, loaded.ID)
	assert.JSONEq(t, string(record.PayloadJSON), string(loaded.PayloadJSON))
}

func Test_Get_UnknownRecord_ReturnsNotFound(t *testing.T) {
	// arrange
	store := givenStore(t)

	// act
	_, err := store.Get(context.Background(), "book", uuid.NewString())

	// assert
	assert.ErrorIs(t, err, inventory.ErrRecordNotFound)
}

func Test_Put_PreservesCreatedAtOnUpdate(t *testing.T) {
	// arrange
	store := givenStore(t)
	ctx := context.Background()
	record := givenRecord(t, "book", `{"status": "AVAILABLE"}`)
	require.NoError(t, store.Put(ctx, record))

	// act
	updated := record
	updated.PayloadJSON = []byte(`{"status": "BORROWED"}`)
	updated.CreatedAt = record.CreatedAt.Add(time.Hour) // must be ignored
	updated.UpdatedAt = record.UpdatedAt.Add(time.Hour)
	require.NoError(t, store.Put(ctx, updated))

	// assert
	loaded, err := store.Get(ctx, record.Kind, record.ID)
	require.NoError(t, err)
	assert.True(t, loaded.CreatedAt.Equal(record.CreatedAt))
	assert.JSONEq(t, `{"status": "BORROWED"}`, string(loaded.PayloadJSON))
}

func Test_Get_ReturnsCopy_MutationDoesNotLeakIntoStore(t *testing.T) {
	// arrange
	store := givenStore(t)
	ctx := context.Background()
	record := givenRecord(t, "book", `{"status": "AVAILABLE"}`)
	require.NoError(t, store.Put(ctx, record))

	// act
	loaded, err := store.Get(ctx, record.Kind, record.ID)
	require.NoError(t, err)
	for i := range loaded.PayloadJSON {
		loaded.PayloadJSON[i] = 'x'
	}

	// assert
	reloaded, err := store.Get(ctx, record.Kind, record.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "AVAILABLE"}`, string(reloaded.PayloadJSON))
}

func Test_Scan_FiltersByKindAndPredicates(t *testing.T) {
	// arrange
	store := givenStore(t)
	ctx := context.Background()
	available := givenRecord(t, "book", `{"status": "AVAILABLE", "libraryId": "lib-1"}`)
	borrowed := givenRecord(t, "book", `{"status": "BORROWED", "libraryId": "lib-1"}`)
	otherLibrary := givenRecord(t, "book", `{"status": "BORROWED", "libraryId": "lib-2"}`)
	library := givenRecord(t, "library", `{"name": "Central"}`)
	for _, record := range []inventory.StorableRecord{available, borrowed, otherLibrary, library} {
		require.NoError(t, store.Put(ctx, record))
	}

	filter := inventory.BuildRecordFilter().
		Matching().
		AnyKindOf("book").
		AndAllPredicatesOf(inventory.P("status", "BORROWED"), inventory.P("libraryId", "lib-1")).
		Finalize()

	// act
	records, err := store.Scan(ctx, filter)

	// assert
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, borrowed.ID, records[0].ID)
}

func Test_Scan_OrdersByCreatedAtThenID(t *testing.T) {
	// arrange
	store := givenStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	older, err := inventory.BuildStorableRecord("book", "b-older", []byte(`{}`), base.Add(-time.Hour), base)
	require.NoError(t, err)
	newer, err := inventory.BuildStorableRecord("book", "a-newer", []byte(`{}`), base, base)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, newer))
	require.NoError(t, store.Put(ctx, older))

	filter := inventory.BuildRecordFilter().Matching().AnyKindOf("book").Finalize()

	// act
	records, err := store.Scan(ctx, filter)

	// assert
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b-older", records[0].ID)
	assert.Equal(t, "a-newer", records[1].ID)
}

func Test_Commit_GuardAbsent_BlocksWhenMatchExists(t *testing.T) {
	// arrange
	store := givenStore(t)
	ctx := context.Background()
	bookID := uuid.NewString()

	activeLoanForBook := inventory.BuildRecordFilter().
		Matching().
		AnyKindOf("loan").
		AndAllPredicatesOf(inventory.P("bookId", bookID), inventory.P("status", "ACTIVE")).
		Finalize()

	firstLoan := givenRecord(t, "loan", fmt.Sprintf(`{"bookId": %q, "status": "ACTIVE"}`, bookID))
	secondLoan := givenRecord(t, "loan", fmt.Sprintf(`{"bookId": %q, "status": "ACTIVE"}`, bookID))

	// act
	firstErr := store.Commit(ctx, inventory.StorableRecords{firstLoan}, inventory.GuardAbsent(activeLoanForBook))
	secondErr := store.Commit(ctx, inventory.StorableRecords{secondLoan}, inventory.GuardAbsent(activeLoanForBook))

	// assert
	require.NoError(t, firstErr)
	assert.ErrorIs(t, secondErr, inventory.ErrGuardViolated)
}

func Test_Commit_GuardPresent_RequiresExistingRecord(t *testing.T) {
	// arrange
	store := givenStore(t)
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

	library := givenRecord(t, "library", fmt.Sprintf(`{"id": %q}`, libraryID))
	require.NoError(t, store.Put(ctx, library))

	allowedErr := store.Commit(ctx, inventory.StorableRecords{book}, inventory.GuardPresent(libraryExists))

	// assert
	assert.ErrorIs(t, blockedErr, inventory.ErrGuardViolated)
	require.NoError(t, allowedErr)
}

func Test_Commit_FailedGuard_WritesNothing(t *testing.T) {
	// arrange
	store := givenStore(t)
	ctx := context.Background()

	blocker := givenRecord(t, "loan", `{"marker": "blocker"}`)
	require.NoError(t, store.Put(ctx, blocker))

	markerTaken := inventory.BuildRecordFilter().
		Matching().
		AnyKindOf("loan").
		AndAnyPredicateOf(inventory.P("marker", "blocker")).
		Finalize()

	first := givenRecord(t, "loan", `{"marker": "batch"}`)
	second := givenRecord(t, "loan", `{"marker": "batch"}`)

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
	store := givenStore(t)
	ctx := context.Background()
	record := givenRecord(t, "book", `{}`)
	require.NoError(t, store.Put(ctx, record))

	// act
	deleteErr := store.Delete(ctx, record.Kind, record.ID)
	_, getErr := store.Get(ctx, record.Kind, record.ID)

	// assert
	require.NoError(t, deleteErr)
	assert.ErrorIs(t, getErr, inventory.ErrRecordNotFound)

	// deleting again reports not found
	assert.ErrorIs(t, store.Delete(ctx, record.Kind, record.ID), inventory.ErrRecordNotFound)
}

func Test_DeleteGuarded_BlockedWhileDependentRecordExists(t *testing.T) {
	// arrange
	store := givenStore(t)
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

	returned := borrowedBook
	returned.PayloadJSON = []byte(fmt.Sprintf(`{"libraryId": %q, "status": "AVAILABLE"}`, libraryID))
	require.NoError(t, store.Put(ctx, returned))

	allowedErr := store.DeleteGuarded(ctx, library.Kind, library.ID, inventory.GuardAbsent(borrowedInLibrary))

	// assert
	assert.ErrorIs(t, blockedErr, inventory.ErrGuardViolated)
	require.NoError(t, allowedErr)
}

func Test_Commit_ConcurrentGuardedWrites_ExactlyOneSucceeds(t *testing.T) {
	// arrange
	store := givenStore(t, memoryengine.WithSimulatedLatency(time.Millisecond))
	ctx := context.Background()
	bookID := uuid.NewString()

	activeLoanForBook := inventory.BuildRecordFilter().
		Matching().
		AnyKindOf("loan").
		AndAllPredicatesOf(inventory.P("bookId", bookID), inventory.P("status", "ACTIVE")).
		Finalize()

	const writers = 16

	loans := make(inventory.StorableRecords, writers)
	for i := 0; i < writers; i++ {
		loans[i] = givenRecord(t, "loan", fmt.Sprintf(`{"bookId": %q, "status": "ACTIVE"}`, bookID))
	}

	var wg sync.WaitGroup
	results := make([]error, writers)

	// act
	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func(slot int) {
			defer wg.Done()

			results[slot] = store.Commit(ctx, inventory.StorableRecords{loans[slot]}, inventory.GuardAbsent(activeLoanForBook))
		}(i)
	}

	wg.Wait()

	// assert
	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, inventory.ErrGuardViolated)
		}
	}

	assert.Equal(t, 1, successes)
}
