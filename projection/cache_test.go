package projection_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/circulation-go/catalog"
	"github.com/openshelf/circulation-go/circulation"
	"github.com/openshelf/circulation-go/core"
	"github.com/openshelf/circulation-go/inventory/memoryengine"
	"github.com/openshelf/circulation-go/projection"
	"github.com/openshelf/circulation-go/shell"
)

const actorID = "user-admin"

func givenLibraryEvent(t *testing.T) (core.Library, core.LibraryCreated) {
	t.Helper()

	library, err := core.BuildLibrary("lib-1", core.LibraryFields{Name: "Main"}, actorID, time.Now())
	require.NoError(t, err)

	return library, core.BuildLibraryCreated(library, time.Now())
}

func givenBookEvent(t *testing.T, libraryID core.LibraryIDString) (core.Book, core.BookCreated) {
	t.Helper()

	book, err := core.BuildBook("book-1", libraryID, core.BookFields{Title: "Walden", Author: "Thoreau"}, actorID, time.Now())
	require.NoError(t, err)

	return book, core.BuildBookCreated(book, time.Now())
}

func Test_Apply_MirrorsEntityLifecycle(t *testing.T) {
	// arrange
	cache := projection.NewReconciliationCache()
	library, libraryCreated := givenLibraryEvent(t)
	book, bookCreated := givenBookEvent(t, library.ID)

	// act
	cache.Apply(libraryCreated)
	cache.Apply(bookCreated)

	// assert
	mirroredLibrary, found := cache.Library(library.ID)
	require.True(t, found)
	assert.Equal(t, "Main", mirroredLibrary.Name)

	mirroredBook, found := cache.Book(book.ID)
	require.True(t, found)
	assert.Equal(t, core.BookStatusAvailable, mirroredBook.Status)

	// deletion removes the mirror entry
	cache.Apply(core.BuildBookDeleted(book.ID, library.ID, time.Now()))
	_, found = cache.Book(book.ID)
	assert.False(t, found)

	cache.Apply(core.BuildLibraryDeleted(library.ID, time.Now()))
	_, found = cache.Library(library.ID)
	assert.False(t, found)
}

func Test_Apply_LoanEventsTrackBookStatusAndCount(t *testing.T) {
	// arrange
	cache := projection.NewReconciliationCache()
	library, libraryCreated := givenLibraryEvent(t)
	book, bookCreated := givenBookEvent(t, library.ID)
	cache.Apply(libraryCreated)
	cache.Apply(bookCreated)

	loan := core.BuildLoanRecord("loan-1", book.ID, "user-reader", library.ID, time.Now(), core.DefaultLoanPeriod)

	// act
	cache.Apply(core.BuildLoanCreated(loan, time.Now()))

	// assert
	mirroredBook, found := cache.Book(book.ID)
	require.True(t, found)
	assert.Equal(t, core.BookStatusBorrowed, mirroredBook.Status)
	assert.Equal(t, 1, cache.ActiveLoanCount("user-reader"))

	// returning flips it back
	returned, err := loan.MarkReturned(time.Now())
	require.NoError(t, err)
	cache.Apply(core.BuildLoanReturned(returned, time.Now()))

	mirroredBook, _ = cache.Book(book.ID)
	assert.Equal(t, core.BookStatusAvailable, mirroredBook.Status)
	assert.Equal(t, 0, cache.ActiveLoanCount("user-reader"))
}

func Test_SnapshotReads_ReturnCopies(t *testing.T) {
	// arrange
	cache := projection.NewReconciliationCache()
	library, libraryCreated := givenLibraryEvent(t)
	cache.Apply(libraryCreated)

	// act
	snapshot, found := cache.Library(library.ID)
	require.True(t, found)
	snapshot.Name = "Mutated"

	// assert
	reloaded, _ := cache.Library(library.ID)
	assert.Equal(t, "Main", reloaded.Name)
}

func Test_Subscribe_NotifiesOnChange_SlowSubscriberDrops(t *testing.T) {
	// arrange
	cache := projection.NewReconciliationCache()
	notifications, cancel := cache.Subscribe(1)
	defer cancel()

	library, libraryCreated := givenLibraryEvent(t)

	// act: second apply overflows the buffer of 1
	cache.Apply(libraryCreated)
	cache.Apply(core.BuildLibraryUpdated(library, time.Now()))

	// assert
	first := <-notifications
	assert.Equal(t, shell.RecordKindLibrary, first.Kind)
	assert.Equal(t, core.LibraryCreatedEventType, first.EventType)
	assert.Equal(t, library.ID, first.ID)

	select {
	case notification := <-notifications:
		t.Fatalf("expected the overflow notification to be dropped, got %v", notification)
	default:
	}
}

func Test_ConsumeFrom_MirrorsManagerWrites(t *testing.T) {
	// arrange
	store, err := memoryengine.NewInventoryStore()
	require.NoError(t, err)

	bus := shell.NewFanOutBus()
	defer bus.Close()

	cache := projection.NewReconciliationCache()
	stop := cache.ConsumeFrom(bus, 16)
	defer stop()

	notifications, cancel := cache.Subscribe(16)
	defer cancel()

	catalogManager, err := catalog.NewManager(store, catalog.WithEventPublisher(bus))
	require.NoError(t, err)
	circulationManager, err := circulation.NewManager(store, circulation.WithEventPublisher(bus))
	require.NoError(t, err)

	ctx := context.Background()

	// act
	library, err := catalogManager.CreateLibrary(ctx, actorID, core.LibraryFields{Name: "Main"})
	require.NoError(t, err)
	book, err := catalogManager.CreateBook(ctx, actorID, library.ID, core.BookFields{Title: "Walden", Author: "Thoreau"})
	require.NoError(t, err)
	_, err = circulationManager.CreateLoan(ctx, "user-reader", book.ID, library.ID)
	require.NoError(t, err)

	// assert: wait for the three notifications, then check the mirror
	for i := 0; i < 3; i++ {
		select {
		case <-notifications:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for cache notification")
		}
	}

	mirroredBook, found := cache.Book(book.ID)
	require.True(t, found)
	assert.Equal(t, core.BookStatusBorrowed, mirroredBook.Status)
	assert.Equal(t, 1, cache.ActiveLoanCount("user-reader"))
}

func Test_Rebuild_ReplacesMirrorFromStore(t *testing.T) {
	// arrange
	store, err := memoryengine.NewInventoryStore()
	require.NoError(t, err)

	catalogManager, err := catalog.NewManager(store)
	require.NoError(t, err)

	ctx := context.Background()
	library, err := catalogManager.CreateLibrary(ctx, actorID, core.LibraryFields{Name: "Main"})
	require.NoError(t, err)
	book, err := catalogManager.CreateBook(ctx, actorID, library.ID, core.BookFields{Title: "Walden", Author: "Thoreau"})
	require.NoError(t, err)

	cache := projection.NewReconciliationCache()

	// poison the mirror with a stale entry that the store does not have
	stale, staleEvent := givenLibraryEvent(t)
	_ = stale
	cache.Apply(staleEvent)

	// act
	require.NoError(t, cache.Rebuild(ctx, store))

	// assert
	_, found := cache.Library("lib-1")
	assert.False(t, found, "stale entry must be gone after rebuild")

	rebuiltLibrary, found := cache.Library(library.ID)
	require.True(t, found)
	assert.Equal(t, "Main", rebuiltLibrary.Name)

	rebuiltBook, found := cache.Book(book.ID)
	require.True(t, found)
	assert.Equal(t, book.Title, rebuiltBook.Title)
}
