package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/circulation-go/core"
	"github.com/openshelf/circulation-go/inventory"
	"github.com/openshelf/circulation-go/shell"
)

// ErrNilInventoryStore is returned when the manager is built without a store.
var ErrNilInventoryStore = errors.New("inventory store must not be nil")

// Manager owns the Library and Book lifecycle. All decision reads go
// straight to the inventory store with strong consistency; the reconciliation
// cache is never consulted here.
type Manager struct {
	store     shell.InventoryStore
	publisher shell.EventPublisher
	locks     *shell.KeyedLock
	clock     func() time.Time
	newID     func() string
}

// Option defines a functional option for configuring the Manager.
type Option func(*Manager) error

// WithEventPublisher sets the bus successful mutations are published to.
func WithEventPublisher(publisher shell.EventPublisher) Option {
	return func(m *Manager) error {
		m.publisher = publisher
		return nil
	}
}

// WithKeyedLock sets the lock instance. Pass the same instance to the
// circulation manager so catalog deletes and loan writes serialize in-process.
func WithKeyedLock(locks *shell.KeyedLock) Option {
	return func(m *Manager) error {
		m.locks = locks
		return nil
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) error {
		m.clock = clock
		return nil
	}
}

// WithIDGenerator overrides the id source, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) error {
		m.newID = newID
		return nil
	}
}

// NewManager creates a catalog Manager backed by the given store.
func NewManager(store shell.InventoryStore, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, ErrNilInventoryStore
	}

	manager := &Manager{
		store: store,
		clock: time.Now,
		newID: uuid.NewString,
	}

	for _, option := range options {
		if err := option(manager); err != nil {
			return nil, err
		}
	}

	if manager.locks == nil {
		manager.locks = shell.NewKeyedLock()
	}

	return manager, nil
}

// CreateLibrary creates a new library. The name is required and trimmed.
func (m *Manager) CreateLibrary(ctx context.Context, actorID core.UserIDString, fields core.LibraryFields) (core.Library, error) {
	library, err := core.BuildLibrary(m.newID(), fields, actorID, m.clock())
	if err != nil {
		return core.Library{}, err
	}

	record, err := shell.StorableRecordFromLibrary(library)
	if err != nil {
		return core.Library{}, core.BuildStorageError(err)
	}

	if err := m.store.Put(ctx, record); err != nil {
		return core.Library{}, core.BuildStorageError(err)
	}

	m.publish(core.BuildLibraryCreated(library, m.clock()))

	return library, nil
}

// UpdateLibrary applies a partial update to a library. Empty fields keep
// their value; emptying a required field is a ValidationError.
func (m *Manager) UpdateLibrary(ctx context.Context, libraryID core.LibraryIDString, fields core.LibraryFields) (core.Library, error) {
	lockKey := shell.LibraryLockKey(libraryID)
	m.locks.Lock(lockKey)
	defer m.locks.Unlock(lockKey)

	library, err := m.loadLibrary(ctx, libraryID)
	if err != nil {
		return core.Library{}, err
	}

	updated, err := library.ApplyUpdate(fields, m.clock())
	if err != nil {
		return core.Library{}, err
	}

	record, err := shell.StorableRecordFromLibrary(updated)
	if err != nil {
		return core.Library{}, core.BuildStorageError(err)
	}

	if err := m.store.Put(ctx, record); err != nil {
		return core.Library{}, core.BuildStorageError(err)
	}

	m.publish(core.BuildLibraryUpdated(updated, m.clock()))

	return updated, nil
}

// GetLibrary retrieves a library by id.
func (m *Manager) GetLibrary(ctx context.Context, libraryID core.LibraryIDString) (core.Library, error) {
	return m.loadLibrary(ctx, libraryID)
}

// ListLibraries retrieves all libraries.
func (m *Manager) ListLibraries(ctx context.Context) ([]core.Library, error) {
	records, err := m.store.Scan(ctx, shell.FilterAllOfKind(shell.RecordKindLibrary))
	if err != nil {
		return nil, core.BuildStorageError(err)
	}

	libraries, err := shell.LibrariesFromStorableRecords(records)
	if err != nil {
		return nil, core.BuildStorageError(err)
	}

	return libraries, nil
}

// CanDeleteLibrary reports whether the library can be deleted right now:
// true iff none of its books is borrowed. Computed from the store, never the
// cache. The answer can go stale immediately; DeleteLibrary re-checks
// atomically at commit time.
func (m *Manager) CanDeleteLibrary(ctx context.Context, libraryID core.LibraryIDString) (bool, error) {
	if _, err := m.loadLibrary(ctx, libraryID); err != nil {
		return false, err
	}

	borrowed, err := m.store.Scan(ctx, shell.FilterBorrowedBooksInLibrary(libraryID))
	if err != nil {
		return false, core.BuildStorageError(err)
	}

	return len(borrowed) == 0, nil
}

// DeleteLibrary deletes a library unless any of its books is borrowed.
// The check and the delete are one guarded store operation, so a racing
// loan and this delete can never both succeed.
func (m *Manager) DeleteLibrary(ctx context.Context, libraryID core.LibraryIDString) error {
	lockKey := shell.LibraryLockKey(libraryID)
	m.locks.Lock(lockKey)
	defer m.locks.Unlock(lockKey)

	if _, err := m.loadLibrary(ctx, libraryID); err != nil {
		return err
	}

	err := m.store.DeleteGuarded(
		ctx,
		shell.RecordKindLibrary,
		libraryID,
		inventory.GuardAbsent(shell.FilterBorrowedBooksInLibrary(libraryID)),
	)

	if err != nil {
		if errors.Is(err, inventory.ErrGuardViolated) {
			return core.BuildConflictError("library has borrowed books")
		}

		return core.BuildStorageError(err)
	}

	m.publish(core.BuildLibraryDeleted(libraryID, m.clock()))

	return nil
}

// CreateBook adds a book copy to a library with initial status AVAILABLE.
// The commit is guarded on the library still existing, so a racing
// DeleteLibrary cannot leave an orphan book.
func (m *Manager) CreateBook(
	ctx context.Context,
	actorID core.UserIDString,
	libraryID core.LibraryIDString,
	fields core.BookFields,
) (core.Book, error) {

	if _, err := m.loadLibrary(ctx, libraryID); err != nil {
		return core.Book{}, err
	}

	book, err := core.BuildBook(m.newID(), libraryID, fields, actorID, m.clock())
	if err != nil {
		return core.Book{}, err
	}

	record, err := shell.StorableRecordFromBook(book)
	if err != nil {
		return core.Book{}, core.BuildStorageError(err)
	}

	err = m.store.Commit(
		ctx,
		inventory.StorableRecords{record},
		inventory.GuardPresent(shell.FilterLibraryByID(libraryID)),
	)

	if err != nil {
		if errors.Is(err, inventory.ErrGuardViolated) {
			return core.Book{}, core.BuildNotFoundError(shell.RecordKindLibrary, libraryID)
		}

		return core.Book{}, core.BuildStorageError(err)
	}

	m.publish(core.BuildBookCreated(book, m.clock()))

	return book, nil
}

// CreateBookFromCandidate adds a book copy from external catalog metadata.
// The candidate fields go through the same validation as manual creation.
func (m *Manager) CreateBookFromCandidate(
	ctx context.Context,
	actorID core.UserIDString,
	libraryID core.LibraryIDString,
	candidate core.BookCandidate,
) (core.Book, error) {

	return m.CreateBook(ctx, actorID, libraryID, candidate.Fields())
}

// UpdateBook applies a partial update to a book's descriptive fields.
// Status transitions go through UpdateBookStatus or the circulation manager.
func (m *Manager) UpdateBook(ctx context.Context, bookID core.BookIDString, fields core.BookFields) (core.Book, error) {
	lockKey := shell.BookLockKey(bookID)
	m.locks.Lock(lockKey)
	defer m.locks.Unlock(lockKey)

	book, err := m.loadBook(ctx, bookID)
	if err != nil {
		return core.Book{}, err
	}

	updated, err := book.ApplyUpdate(fields, m.clock())
	if err != nil {
		return core.Book{}, err
	}

	if err := m.putBook(ctx, updated); err != nil {
		return core.Book{}, err
	}

	m.publish(core.BuildBookUpdated(updated, m.clock()))

	return updated, nil
}

// UpdateBookStatus performs the administrative AVAILABLE <-> UNAVAILABLE
// transition. BORROWED is owned by the loan flow: a borrowed book cannot be
// edited here, and no book can be marked borrowed here.
func (m *Manager) UpdateBookStatus(ctx context.Context, bookID core.BookIDString, status core.BookStatus) (core.Book, error) {
	if !status.IsValid() {
		return core.Book{}, core.BuildValidationError("invalid status")
	}

	if status == core.BookStatusBorrowed {
		return core.Book{}, core.BuildConflictError("borrowed status is managed by the loan flow")
	}

	lockKey := shell.BookLockKey(bookID)
	m.locks.Lock(lockKey)
	defer m.locks.Unlock(lockKey)

	book, err := m.loadBook(ctx, bookID)
	if err != nil {
		return core.Book{}, err
	}

	if book.Status == core.BookStatusBorrowed {
		return core.Book{}, core.BuildConflictError("book is borrowed")
	}

	updated := book.WithStatus(status, m.clock())

	if err := m.putBook(ctx, updated); err != nil {
		return core.Book{}, err
	}

	m.publish(core.BuildBookUpdated(updated, m.clock()))

	return updated, nil
}

// DeleteBook removes a book copy. Refused while the book is borrowed; the
// store-level guard re-checks for an active loan atomically with the delete.
func (m *Manager) DeleteBook(ctx context.Context, bookID core.BookIDString) error {
	lockKey := shell.BookLockKey(bookID)
	m.locks.Lock(lockKey)
	defer m.locks.Unlock(lockKey)

	book, err := m.loadBook(ctx, bookID)
	if err != nil {
		return err
	}

	if book.Status == core.BookStatusBorrowed {
		return core.BuildConflictError("book is borrowed")
	}

	err = m.store.DeleteGuarded(
		ctx,
		shell.RecordKindBook,
		bookID,
		inventory.GuardAbsent(shell.FilterActiveLoanForBook(bookID)),
	)

	if err != nil {
		if errors.Is(err, inventory.ErrGuardViolated) {
			return core.BuildConflictError("book is borrowed")
		}

		return core.BuildStorageError(err)
	}

	m.publish(core.BuildBookDeleted(bookID, book.LibraryID, m.clock()))

	return nil
}

// GetBook retrieves a book by id.
func (m *Manager) GetBook(ctx context.Context, bookID core.BookIDString) (core.Book, error) {
	return m.loadBook(ctx, bookID)
}

// ListBooks retrieves all books of a library.
func (m *Manager) ListBooks(ctx context.Context, libraryID core.LibraryIDString) ([]core.Book, error) {
	records, err := m.store.Scan(ctx, shell.FilterBooksInLibrary(libraryID))
	if err != nil {
		return nil, core.BuildStorageError(err)
	}

	books, err := shell.BooksFromStorableRecords(records)
	if err != nil {
		return nil, core.BuildStorageError(err)
	}

	return books, nil
}

func (m *Manager) loadLibrary(ctx context.Context, libraryID core.LibraryIDString) (core.Library, error) {
	record, err := m.store.Get(ctx, shell.RecordKindLibrary, libraryID)
	if err != nil {
		if errors.Is(err, inventory.ErrRecordNotFound) {
			return core.Library{}, core.BuildNotFoundError(shell.RecordKindLibrary, libraryID)
		}

		return core.Library{}, core.BuildStorageError(err)
	}

	library, err := shell.LibraryFromStorableRecord(record)
	if err != nil {
		return core.Library{}, core.BuildStorageError(err)
	}

	return library, nil
}

func (m *Manager) loadBook(ctx context.Context, bookID core.BookIDString) (core.Book, error) {
	record, err := m.store.Get(ctx, shell.RecordKindBook, bookID)
	if err != nil {
		if errors.Is(err, inventory.ErrRecordNotFound) {
			return core.Book{}, core.BuildNotFoundError(shell.RecordKindBook, bookID)
		}

		return core.Book{}, core.BuildStorageError(err)
	}

	book, err := shell.BookFromStorableRecord(record)
	if err != nil {
		return core.Book{}, core.BuildStorageError(err)
	}

	return book, nil
}

func (m *Manager) putBook(ctx context.Context, book core.Book) error {
	record, err := shell.StorableRecordFromBook(book)
	if err != nil {
		return core.BuildStorageError(err)
	}

	if err := m.store.Put(ctx, record); err != nil {
		return core.BuildStorageError(err)
	}

	return nil
}

func (m *Manager) publish(events ...core.DomainEvent) {
	if m.publisher != nil {
		m.publisher.Publish(events...)
	}
}
